package keywords

import (
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
)

// Defaults
const (
	DefaultWeight         = 1.0
	DefaultMinTokenLength = 2
	DefaultFuzzyThreshold = 0
	DefaultFuzzyMinLength = 4
	DefaultPhraseWeight   = 1.0

	MinPhraseWords = 2
	MaxPhraseWords = 4
)

// phrase is a compiled multi-word term.
type phrase struct {
	words     []string
	canonical string
	weight    float64
}

// Config is the immutable extraction and matching configuration. Build it
// with NewConfig; the zero value is not usable.
type Config struct {
	stopwords map[string]struct{}
	// phrases are indexed by their first canonical word, longest first.
	phrases     map[string][]phrase
	phraseCount int
	// phraseWeights maps each canonical phrase to its weight.
	phraseWeights map[string]float64
	aliases       map[string]string
	// hyphenated folds the one-token spelling of a phrase onto it
	// (machine-learning -> machine learning).
	hyphenated map[string]string
	weights    map[string]float64
	// vocabulary, when non-empty, is the only set of canonical forms kept.
	vocabulary map[string]struct{}

	minTokenLength     int
	fuzzyThreshold     int
	fuzzyMinLength     int
	phraseWeight       float64
	retainConstituents bool
	stemming           bool
}

// settings collects options before compilation. Terms are compiled only
// after every option ran, because stemming changes their canonical form.
type settings struct {
	stopwords          []string
	phrases            map[string]float64
	aliases            map[string]string
	weights            map[string]float64
	vocabulary         []string
	minTokenLength     int
	fuzzyThreshold     int
	fuzzyMinLength     int
	phraseWeight       float64
	retainConstituents bool
	stemming           bool
}

// Option configures NewConfig.
type Option func(*settings)

// WithStopwords replaces the stop-word list.
func WithStopwords(words ...string) Option {
	return func(s *settings) {
		s.stopwords = slices.Clone(words)
	}
}

// WithExtraStopwords extends the stop-word list.
func WithExtraStopwords(words ...string) Option {
	return func(s *settings) {
		s.stopwords = append(s.stopwords, words...)
	}
}

// WithPhrases replaces the phrase list. Phrases use the default phrase weight.
func WithPhrases(phrases ...string) Option {
	return func(s *settings) {
		s.phrases = make(map[string]float64, len(phrases))
		for _, p := range phrases {
			s.phrases[p] = 0
		}
	}
}

// WithExtraPhrases adds phrases with an explicit weight; zero means the
// default phrase weight.
func WithExtraPhrases(phrases map[string]float64) Option {
	return func(s *settings) {
		if s.phrases == nil {
			s.phrases = make(map[string]float64, len(phrases))
		}
		maps.Copy(s.phrases, phrases)
	}
}

// WithAliases adds variant -> canonical mappings (golang -> go).
func WithAliases(aliases map[string]string) Option {
	return func(s *settings) {
		if s.aliases == nil {
			s.aliases = make(map[string]string, len(aliases))
		}
		maps.Copy(s.aliases, aliases)
	}
}

// WithoutAliases drops the built-in aliases.
func WithoutAliases() Option {
	return func(s *settings) {
		s.aliases = map[string]string{}
	}
}

// WithWeights overrides the weight of individual terms.
func WithWeights(weights map[string]float64) Option {
	return func(s *settings) {
		if s.weights == nil {
			s.weights = make(map[string]float64, len(weights))
		}
		maps.Copy(s.weights, weights)
	}
}

// WithVocabulary restricts extraction to the given terms, the way a curated
// skills catalog does. An empty list removes the restriction.
func WithVocabulary(terms ...string) Option {
	return func(s *settings) {
		s.vocabulary = slices.Clone(terms)
	}
}

func WithMinTokenLength(n int) Option {
	return func(s *settings) { s.minTokenLength = n }
}

// WithFuzzyThreshold sets the maximum edit distance for a fuzzy match. Zero
// disables fuzzy matching.
func WithFuzzyThreshold(n int) Option {
	return func(s *settings) { s.fuzzyThreshold = n }
}

func WithFuzzyMinLength(n int) Option {
	return func(s *settings) { s.fuzzyMinLength = n }
}

func WithPhraseWeight(w float64) Option {
	return func(s *settings) { s.phraseWeight = w }
}

// WithRetainPhraseConstituents keeps the words of a detected phrase as
// separate requirements in job descriptions too.
func WithRetainPhraseConstituents(retain bool) Option {
	return func(s *settings) { s.retainConstituents = retain }
}

func WithStemming(enabled bool) Option {
	return func(s *settings) { s.stemming = enabled }
}

func defaultSettings() *settings {
	phrases := make(map[string]float64, len(defaultPhrases))
	for _, p := range defaultPhrases {
		phrases[p] = 0
	}
	return &settings{
		stopwords:      slices.Clone(defaultStopwords),
		phrases:        phrases,
		aliases:        maps.Clone(defaultAliases),
		weights:        map[string]float64{},
		minTokenLength: DefaultMinTokenLength,
		fuzzyThreshold: DefaultFuzzyThreshold,
		fuzzyMinLength: DefaultFuzzyMinLength,
		phraseWeight:   DefaultPhraseWeight,
		stemming:       true,
	}
}

// NewConfig applies opts on top of the defaults and validates the result.
// Every problem found is reported, joined, and wraps ErrConfiguration.
func NewConfig(opts ...Option) (*Config, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}

	var errs []error
	if s.minTokenLength < 1 {
		errs = append(errs, configError("minimum token length must be at least 1, got %d", s.minTokenLength))
	}
	if s.fuzzyThreshold < 0 {
		errs = append(errs, configError("fuzzy threshold must not be negative, got %d", s.fuzzyThreshold))
	}
	if s.fuzzyMinLength < 1 {
		errs = append(errs, configError("fuzzy minimum length must be at least 1, got %d", s.fuzzyMinLength))
	}
	if s.phraseWeight <= 0 {
		errs = append(errs, configError("phrase weight must be positive, got %g", s.phraseWeight))
	}

	cfg := &Config{
		stopwords:          make(map[string]struct{}, len(s.stopwords)*2),
		phrases:            make(map[string][]phrase),
		phraseWeights:      make(map[string]float64, len(s.phrases)),
		aliases:            make(map[string]string, len(s.aliases)),
		hyphenated:         make(map[string]string, len(s.phrases)),
		weights:            make(map[string]float64, len(s.weights)),
		vocabulary:         make(map[string]struct{}, len(s.vocabulary)),
		minTokenLength:     s.minTokenLength,
		fuzzyThreshold:     s.fuzzyThreshold,
		fuzzyMinLength:     s.fuzzyMinLength,
		phraseWeight:       s.phraseWeight,
		retainConstituents: s.retainConstituents,
		stemming:           s.stemming,
	}

	for _, w := range s.stopwords {
		for _, t := range tokenize(w) {
			cfg.stopwords[t.text] = struct{}{}
			if cfg.stemming {
				cfg.stopwords[stem(t.text)] = struct{}{}
			}
		}
	}

	errs = append(errs, cfg.compileAliases(s.aliases)...)
	errs = append(errs, cfg.compilePhrases(s.phrases)...)
	errs = append(errs, cfg.compileWeights(s.weights)...)
	errs = append(errs, cfg.compileVocabulary(s.vocabulary)...)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	cfg, err := NewConfig()
	if err != nil {
		panic("keywords: built-in configuration is invalid: " + err.Error())
	}
	return cfg
}

func (c *Config) compileAliases(aliases map[string]string) []error {
	var errs []error
	for _, from := range sortedKeys(aliases) {
		to := aliases[from]
		fromKey := strings.Join(normalizeTerm(from, c.stemming), " ")
		toKey := strings.Join(normalizeTerm(to, c.stemming), " ")
		if fromKey == "" || toKey == "" {
			errs = append(errs, configError("alias %q -> %q normalizes to an empty term", from, to))
			continue
		}
		if fromKey != toKey {
			c.aliases[fromKey] = toKey
		}
	}
	return errs
}

func (c *Config) compilePhrases(phrases map[string]float64) []error {
	var errs []error
	seen := make(map[string]struct{}, len(phrases))
	for _, raw := range sortedKeys(phrases) {
		weight := phrases[raw]
		if weight < 0 {
			errs = append(errs, configError("phrase %q has negative weight %g", raw, weight))
			continue
		}
		if weight == 0 {
			weight = c.phraseWeight
		}

		words := normalizeTerm(raw, c.stemming)
		if len(words) < MinPhraseWords || len(words) > MaxPhraseWords {
			errs = append(errs, configError("phrase %q must have %d to %d words, got %d",
				raw, MinPhraseWords, MaxPhraseWords, len(words)))
			continue
		}

		canonical := strings.Join(words, " ")
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		c.phraseWeights[canonical] = weight

		c.phrases[words[0]] = append(c.phrases[words[0]], phrase{
			words:     words,
			canonical: canonical,
			weight:    weight,
		})
		c.phraseCount++
		c.hyphenated[strings.Join(words, "-")] = c.resolveAlias(canonical)
	}

	for first := range c.phrases {
		candidates := c.phrases[first]
		sort.SliceStable(candidates, func(i, j int) bool {
			return len(candidates[i].words) > len(candidates[j].words)
		})
	}
	return errs
}

func (c *Config) compileWeights(weights map[string]float64) []error {
	var errs []error
	for _, term := range sortedKeys(weights) {
		w := weights[term]
		if w <= 0 {
			errs = append(errs, configError("weight for %q must be positive, got %g", term, w))
			continue
		}
		key := c.resolveAlias(strings.Join(normalizeTerm(term, c.stemming), " "))
		if key == "" {
			errs = append(errs, configError("weighted term %q normalizes to an empty term", term))
			continue
		}
		c.weights[key] = w
	}
	return errs
}

func (c *Config) compileVocabulary(terms []string) []error {
	var errs []error
	for _, term := range terms {
		key := c.resolveAlias(strings.Join(normalizeTerm(term, c.stemming), " "))
		if key == "" {
			errs = append(errs, configError("vocabulary term %q normalizes to an empty term", term))
			continue
		}
		c.vocabulary[key] = struct{}{}
	}
	return errs
}

func (c *Config) resolveAlias(canonical string) string {
	if to, ok := c.aliases[canonical]; ok {
		return to
	}
	if to, ok := c.hyphenated[canonical]; ok {
		return to
	}
	return canonical
}

func (c *Config) isStopword(text, stemmed string) bool {
	if _, ok := c.stopwords[text]; ok {
		return true
	}
	_, ok := c.stopwords[stemmed]
	return ok
}

func (c *Config) allowed(canonical string) bool {
	if len(c.vocabulary) == 0 {
		return true
	}
	_, ok := c.vocabulary[canonical]
	return ok
}

func (c *Config) weightFor(canonical string, fallback float64) float64 {
	if w, ok := c.weights[canonical]; ok {
		return w
	}
	return fallback
}

// unigramWeight is the default weight of a single token whose canonical
// form may be a phrase reached through an alias.
func (c *Config) unigramWeight(canonical string) float64 {
	if !strings.Contains(canonical, " ") {
		return DefaultWeight
	}
	if w, ok := c.phraseWeights[canonical]; ok {
		return w
	}
	return c.phraseWeight
}

// MinTokenLength returns the shortest token kept as a keyword.
func (c *Config) MinTokenLength() int { return c.minTokenLength }

// FuzzyThreshold returns the maximum edit distance for fuzzy matches.
func (c *Config) FuzzyThreshold() int { return c.fuzzyThreshold }

// FuzzyMinLength returns the shortest keyword eligible for fuzzy matching.
func (c *Config) FuzzyMinLength() int { return c.fuzzyMinLength }

// PhraseWeight returns the weight given to phrases without an explicit one.
func (c *Config) PhraseWeight() float64 { return c.phraseWeight }

// RetainPhraseConstituents reports whether phrase words stay separate requirements.
func (c *Config) RetainPhraseConstituents() bool { return c.retainConstituents }

// Stemming reports whether plural folding is enabled.
func (c *Config) Stemming() bool { return c.stemming }

// Stopwords returns the normalized stop-words, sorted.
func (c *Config) Stopwords() []string {
	return slices.Sorted(maps.Keys(c.stopwords))
}

// Phrases returns the canonical phrases, sorted.
func (c *Config) Phrases() []string {
	out := make([]string, 0, c.phraseCount)
	for _, candidates := range c.phrases {
		for _, p := range candidates {
			out = append(out, p.canonical)
		}
	}
	sort.Strings(out)
	return out
}

// Vocabulary returns the restricted vocabulary, sorted. Empty means unrestricted.
func (c *Config) Vocabulary() []string {
	return slices.Sorted(maps.Keys(c.vocabulary))
}

// Aliases returns a copy of the canonical alias table.
func (c *Config) Aliases() map[string]string {
	return maps.Clone(c.aliases)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

package keywords

import (
	"strings"
	"unicode/utf8"
)

// Extractor turns text into a KeywordSet. It holds only immutable
// configuration and is safe for concurrent use.
type Extractor struct {
	cfg *Config
}

// NewExtractor returns an extractor for cfg, or for the defaults when cfg is nil.
func NewExtractor(cfg *Config) *Extractor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Extractor{cfg: cfg}
}

// phraseMatch is a phrase occurrence starting at a token index.
type phraseMatch struct {
	phrase phrase
	start  int
}

// Extract derives the keyword set of text. Empty text yields an empty set.
// Text that is not decodable as text fails with ErrInvalidInput.
func (e *Extractor) Extract(text string, role Role) (*KeywordSet, error) {
	if role != RoleJobDescription && role != RoleResume {
		return nil, invalidInput("unknown role " + role.String())
	}
	if strings.TrimSpace(text) == "" {
		return newKeywordSet(0), nil
	}
	if err := checkText(text); err != nil {
		return nil, err
	}

	tokens := tokenize(text)
	stems := make([]string, len(tokens))
	for i, t := range tokens {
		stems[i] = e.canonicalWord(t.text)
	}

	matches, covered := e.findPhrases(tokens, stems)
	keepConstituents := role == RoleResume || e.cfg.retainConstituents

	set := newKeywordSet(len(tokens))
	next := 0
	for i, t := range tokens {
		if next < len(matches) && matches[next].start == i {
			m := matches[next]
			canonical := e.cfg.resolveAlias(m.phrase.canonical)
			if e.cfg.allowed(canonical) {
				set.add(Keyword{
					Canonical: canonical,
					Display:   joinDisplay(tokens[i : i+len(m.phrase.words)]),
					Weight:    e.cfg.weightFor(canonical, m.phrase.weight),
					Position:  i,
					Phrase:    true,
				})
			}
			next++
		}

		if covered[i] && !keepConstituents {
			continue
		}
		if utf8.RuneCountInString(t.text) < e.cfg.minTokenLength || !hasLetter(t.text) {
			continue
		}
		if e.cfg.isStopword(t.text, stems[i]) {
			continue
		}

		canonical := e.cfg.resolveAlias(stems[i])
		if !e.cfg.allowed(canonical) {
			continue
		}
		set.add(Keyword{
			Canonical: canonical,
			Display:   t.text,
			Weight:    e.cfg.weightFor(canonical, e.cfg.unigramWeight(canonical)),
			Position:  i,
			Phrase:    strings.Contains(canonical, " "),
		})
	}

	return set, nil
}

func (e *Extractor) canonicalWord(text string) string {
	if e.cfg.stemming {
		return stem(text)
	}
	return text
}

// findPhrases scans left to right, taking the longest phrase at each
// position. Occurrences do not overlap and never cross a boundary.
func (e *Extractor) findPhrases(tokens []token, stems []string) ([]phraseMatch, []bool) {
	covered := make([]bool, len(tokens))
	if e.cfg.phraseCount == 0 {
		return nil, covered
	}

	var matches []phraseMatch
	for i := 0; i < len(tokens); {
		p, ok := e.phraseAt(tokens, stems, i)
		if !ok {
			i++
			continue
		}
		matches = append(matches, phraseMatch{phrase: p, start: i})
		for j := i; j < i+len(p.words); j++ {
			covered[j] = true
		}
		i += len(p.words)
	}
	return matches, covered
}

func (e *Extractor) phraseAt(tokens []token, stems []string, start int) (phrase, bool) {
	for _, p := range e.cfg.phrases[stems[start]] {
		end := start + len(p.words)
		if end > len(tokens) {
			continue
		}
		if phraseMatches(p, tokens, stems, start) {
			return p, true
		}
	}
	return phrase{}, false
}

func phraseMatches(p phrase, tokens []token, stems []string, start int) bool {
	for k, word := range p.words {
		i := start + k
		if stems[i] != word {
			return false
		}
		// the last word may end a sentence, inner words may not
		if k < len(p.words)-1 && tokens[i].boundary {
			return false
		}
	}
	return true
}

func joinDisplay(tokens []token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

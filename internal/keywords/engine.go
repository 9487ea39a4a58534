package keywords

import (
	"cmp"
	"slices"
	"strings"
	"sync/atomic"
)

// Engine bundles an Extractor and a Matcher built from one Config.
type Engine struct {
	cfg       *Config
	extractor *Extractor
	matcher   *Matcher
}

// NewEngine builds an engine for cfg, or for the defaults when cfg is nil.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		cfg:       cfg,
		extractor: NewExtractor(cfg),
		matcher:   NewMatcher(cfg),
	}
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Extract runs the extractor.
func (e *Engine) Extract(text string, role Role) (*KeywordSet, error) {
	return e.extractor.Extract(text, role)
}

// Score runs the matcher.
func (e *Engine) Score(required, available *KeywordSet) AnalysisResult {
	return e.matcher.Score(required, available)
}

// Analyze scores resume against jobDescription. An empty resume is an
// error; an empty job description yields the zero result.
func (e *Engine) Analyze(jobDescription, resume string) (AnalysisResult, error) {
	if strings.TrimSpace(resume) == "" {
		return AnalysisResult{}, invalidInput("resume text is empty")
	}

	required, err := e.extractor.Extract(jobDescription, RoleJobDescription)
	if err != nil {
		return AnalysisResult{}, err
	}
	available, err := e.extractor.Extract(resume, RoleResume)
	if err != nil {
		return AnalysisResult{}, err
	}

	return e.matcher.Score(required, available), nil
}

// Candidate is one resume taking part in a ranking.
type Candidate struct {
	Name string
	Text string
	// Err is set when the resume text could not be obtained at all
	Err error
}

// RankedResult is a candidate's position in a ranking. Err is set when the
// resume could not be analyzed; such candidates sort last.
type RankedResult struct {
	Rank      int            `json:"rank"`
	Candidate string         `json:"candidate"`
	Band      string         `json:"band"`
	Result    AnalysisResult `json:"result"`
	Err       string         `json:"error,omitempty"`
}

// Rank scores every candidate against one job description. The required set
// is extracted once. Results are ordered by score, then by name.
func (e *Engine) Rank(jobDescription string, candidates []Candidate) ([]RankedResult, error) {
	required, err := e.extractor.Extract(jobDescription, RoleJobDescription)
	if err != nil {
		return nil, err
	}

	results := make([]RankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = e.rankOne(required, c)
	}

	slices.SortStableFunc(results, func(a, b RankedResult) int {
		if (a.Err == "") != (b.Err == "") {
			if a.Err == "" {
				return -1
			}
			return 1
		}
		if a.Result.Score != b.Result.Score {
			return cmp.Compare(b.Result.Score, a.Result.Score)
		}
		return cmp.Compare(a.Candidate, b.Candidate)
	})
	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func (e *Engine) rankOne(required *KeywordSet, c Candidate) RankedResult {
	ranked := RankedResult{Candidate: c.Name}

	if c.Err != nil {
		ranked.Err = c.Err.Error()
		ranked.Result = AnalysisResult{Found: []string{}, Missing: required.Displays()}
		ranked.Band = BandWeak
		return ranked
	}
	if strings.TrimSpace(c.Text) == "" {
		ranked.Err = invalidInput("resume text is empty").Error()
		ranked.Result = AnalysisResult{Found: []string{}, Missing: required.Displays()}
		ranked.Band = BandWeak
		return ranked
	}
	available, err := e.extractor.Extract(c.Text, RoleResume)
	if err != nil {
		ranked.Err = err.Error()
		ranked.Result = AnalysisResult{Found: []string{}, Missing: required.Displays()}
		ranked.Band = BandWeak
		return ranked
	}

	ranked.Result = e.matcher.Score(required, available)
	ranked.Band = Band(ranked.Result.Score)
	return ranked
}

// Store holds the active engine and lets a reloader swap it while requests
// are in flight. Readers always see a complete snapshot.
type Store struct {
	current atomic.Pointer[Engine]
}

// NewStore returns a store holding engine.
func NewStore(engine *Engine) *Store {
	s := &Store{}
	s.current.Store(engine)
	return s
}

// Engine returns the active engine.
func (s *Store) Engine() *Engine {
	return s.current.Load()
}

// Swap installs engine and returns the previous one.
func (s *Store) Swap(engine *Engine) *Engine {
	return s.current.Swap(engine)
}

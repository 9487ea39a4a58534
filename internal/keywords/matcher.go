package keywords

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Matcher partitions a required set into found and missing keywords and
// scores the result.
type Matcher struct {
	threshold int
	minLength int
}

// NewMatcher returns a matcher for cfg, or for the defaults when cfg is nil.
func NewMatcher(cfg *Config) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Matcher{
		threshold: cfg.fuzzyThreshold,
		minLength: cfg.fuzzyMinLength,
	}
}

// Score compares required against available. found and missing follow the
// order of first appearance in required and together cover all of it.
func (m *Matcher) Score(required, available *KeywordSet) AnalysisResult {
	result := AnalysisResult{
		Found:   make([]string, 0, required.Len()),
		Missing: make([]string, 0, required.Len()),
	}
	if required.Len() == 0 {
		return result
	}

	var candidates []Keyword
	if m.threshold > 0 {
		candidates = available.Keywords()
	}

	var total, matched float64
	for _, kw := range required.items {
		total += kw.Weight
		if available.Contains(kw.Canonical) || m.fuzzyMatch(kw.Canonical, candidates) {
			matched += kw.Weight
			result.Found = append(result.Found, kw.Display)
		} else {
			result.Missing = append(result.Missing, kw.Display)
		}
	}

	result.Score = percentage(matched, total)
	return result
}

func (m *Matcher) fuzzyMatch(canonical string, candidates []Keyword) bool {
	if m.threshold == 0 {
		return false
	}
	length := utf8.RuneCountInString(canonical)
	if length < m.minLength {
		return false
	}
	for _, c := range candidates {
		other := utf8.RuneCountInString(c.Canonical)
		if other < m.minLength || abs(length-other) > m.threshold {
			continue
		}
		if levenshtein.ComputeDistance(canonical, c.Canonical) <= m.threshold {
			return true
		}
	}
	return false
}

func percentage(part, total float64) int {
	if total <= 0 {
		return 0
	}
	score := int(math.Round(100 * part / total))
	return max(0, min(100, score))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

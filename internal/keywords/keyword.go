package keywords

import (
	"fmt"
	"strings"
)

// Role says which side of the comparison a text belongs to.
type Role int

const (
	// RoleJobDescription produces the required set.
	RoleJobDescription Role = iota
	// RoleResume produces the available set.
	RoleResume
)

func (r Role) String() string {
	switch r {
	case RoleJobDescription:
		return "job-description"
	case RoleResume:
		return "resume"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole accepts the names used on the command line and in API requests.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jd", "job", "job-description", "jobdescription":
		return RoleJobDescription, nil
	case "resume", "cv":
		return RoleResume, nil
	default:
		return 0, invalidInput(fmt.Sprintf("unknown role %q (use jd or resume)", s))
	}
}

// Keyword is a normalized token or short phrase.
type Keyword struct {
	// Canonical is the lowercased, plural-folded, alias-resolved form used for equality.
	Canonical string `json:"canonical"`
	// Display is the normalized surface form as it first appeared in the text.
	Display  string  `json:"display"`
	Weight   float64 `json:"weight"`
	Position int     `json:"position"`
	Phrase   bool    `json:"phrase,omitempty"`
}

// KeywordSet is a set of keywords keyed by canonical form. It remembers the
// order of first appearance and is read-only once returned by an Extractor.
type KeywordSet struct {
	index map[string]int
	items []Keyword
}

func newKeywordSet(capacity int) *KeywordSet {
	return &KeywordSet{
		index: make(map[string]int, capacity),
		items: make([]Keyword, 0, capacity),
	}
}

// NewKeywordSet builds a set from keywords, keeping the first occurrence of
// every canonical form and the highest weight seen for it.
func NewKeywordSet(keywords ...Keyword) *KeywordSet {
	s := newKeywordSet(len(keywords))
	for _, k := range keywords {
		if k.Weight <= 0 {
			k.Weight = DefaultWeight
		}
		if k.Display == "" {
			k.Display = k.Canonical
		}
		s.add(k)
	}
	return s
}

func (s *KeywordSet) add(k Keyword) {
	if i, ok := s.index[k.Canonical]; ok {
		if k.Weight > s.items[i].Weight {
			s.items[i].Weight = k.Weight
		}
		return
	}
	s.index[k.Canonical] = len(s.items)
	s.items = append(s.items, k)
}

// Len returns the number of distinct keywords.
func (s *KeywordSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Contains reports whether canonical is a member of the set.
func (s *KeywordSet) Contains(canonical string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[canonical]
	return ok
}

// Get returns the keyword stored under canonical.
func (s *KeywordSet) Get(canonical string) (Keyword, bool) {
	if s == nil {
		return Keyword{}, false
	}
	i, ok := s.index[canonical]
	if !ok {
		return Keyword{}, false
	}
	return s.items[i], true
}

// Keywords returns a copy of the members in order of first appearance.
func (s *KeywordSet) Keywords() []Keyword {
	if s == nil {
		return []Keyword{}
	}
	out := make([]Keyword, len(s.items))
	copy(out, s.items)
	return out
}

// Canonicals returns the canonical forms in order of first appearance.
func (s *KeywordSet) Canonicals() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for _, k := range s.items {
		out = append(out, k.Canonical)
	}
	return out
}

// Displays returns the display forms in order of first appearance.
func (s *KeywordSet) Displays() []string {
	out := make([]string, 0, s.Len())
	if s == nil {
		return out
	}
	for _, k := range s.items {
		out = append(out, k.Display)
	}
	return out
}

// TotalWeight sums the weights of all members.
func (s *KeywordSet) TotalWeight() float64 {
	var total float64
	if s == nil {
		return total
	}
	for _, k := range s.items {
		total += k.Weight
	}
	return total
}

// AnalysisResult is the outcome of scoring a resume against a job description.
type AnalysisResult struct {
	Score   int      `json:"score"`
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
}

// Band buckets a score the way the report colours it.
func Band(score int) string {
	switch {
	case score >= 75:
		return BandStrong
	case score >= 50:
		return BandPartial
	default:
		return BandWeak
	}
}

// Score bands
const (
	BandStrong  = "strong"
	BandPartial = "partial"
	BandWeak    = "weak"
)

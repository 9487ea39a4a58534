package keywords

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, cfg *Config, jd, resume string) AnalysisResult {
	t.Helper()
	result, err := NewEngine(cfg).Analyze(jd, resume)
	require.NoError(t, err)
	return result
}

func TestScoreExample(t *testing.T) {
	result := analyze(t, nil, exampleJobDescription, exampleResume)

	assert.Equal(t, 40, result.Score)
	assert.Equal(t, []string{"python", "sql"}, result.Found)
	assert.Equal(t, []string{"developer", "machine learning", "experience"}, result.Missing)
}

func TestScoreMatchingRules(t *testing.T) {
	tests := []struct {
		name          string
		opts          []Option
		jd            string
		resume        string
		expectedScore int
		found         []string
		missing       []string
	}{
		{
			name:          "case and punctuation insensitive",
			jd:            "Python",
			resume:        "python,",
			expectedScore: 100,
			found:         []string{"python"},
			missing:       []string{},
		},
		{
			name:          "ellipsis before a keyword",
			jd:            "We need ...Kubernetes experts",
			resume:        "kubernetes expert",
			expectedScore: 100,
			found:         []string{"kubernetes", "experts"},
			missing:       []string{},
		},
		{
			name:          "missing space after a period",
			jd:            "Python.SQL",
			resume:        "python sql",
			expectedScore: 100,
			found:         []string{"python", "sql"},
			missing:       []string{},
		},
		{
			name:          "hyphenated phrase in the resume",
			jd:            "Machine learning and neural networks",
			resume:        "machine-learning, neural-networks",
			expectedScore: 100,
			found:         []string{"machine learning", "neural networks"},
			missing:       []string{},
		},
		{
			name:          "typo does not match by default",
			jd:            "python",
			resume:        "Pythom",
			expectedScore: 0,
			found:         []string{},
			missing:       []string{"python"},
		},
		{
			name:          "typo matches with fuzzy threshold",
			opts:          []Option{WithFuzzyThreshold(1)},
			jd:            "python",
			resume:        "Pythom",
			expectedScore: 100,
			found:         []string{"python"},
			missing:       []string{},
		},
		{
			name:          "short keywords are never fuzzy matched",
			opts:          []Option{WithFuzzyThreshold(1)},
			jd:            "go",
			resume:        "gx",
			expectedScore: 0,
			found:         []string{},
			missing:       []string{"go"},
		},
		{
			name:          "distance above threshold",
			opts:          []Option{WithFuzzyThreshold(1)},
			jd:            "kubernetes",
			resume:        "kuberneetz",
			expectedScore: 0,
			found:         []string{},
			missing:       []string{"kubernetes"},
		},
		{
			name:          "plural in resume",
			jd:            "REST API design",
			resume:        "Designed REST APIs",
			expectedScore: 50,
			found:         []string{"rest api"},
			missing:       []string{"design"},
		},
		{
			name:          "alias in resume",
			jd:            "Go and Kubernetes",
			resume:        "Golang, k8s",
			expectedScore: 100,
			found:         []string{"go", "kubernetes"},
			missing:       []string{},
		},
		{
			name:          "phrase words in resume satisfy job description word",
			jd:            "learning",
			resume:        "machine learning",
			expectedScore: 100,
			found:         []string{"learning"},
			missing:       []string{},
		},
		{
			name:          "one of three rounds down",
			jd:            "python sql docker",
			resume:        "python",
			expectedScore: 33,
			found:         []string{"python"},
			missing:       []string{"sql", "docker"},
		},
		{
			name:          "two of three rounds up",
			jd:            "python sql docker",
			resume:        "python docker",
			expectedScore: 67,
			found:         []string{"python", "docker"},
			missing:       []string{"sql"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := analyze(t, mustConfig(t, tt.opts...), tt.jd, tt.resume)
			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.found, result.Found)
			assert.Equal(t, tt.missing, result.Missing)
		})
	}
}

func TestScoreWeighted(t *testing.T) {
	required := NewKeywordSet(
		Keyword{Canonical: "go", Weight: 3},
		Keyword{Canonical: "sql", Weight: 1},
	)
	available := NewKeywordSet(Keyword{Canonical: "go"})

	result := NewMatcher(nil).Score(required, available)

	assert.Equal(t, 75, result.Score)
	assert.Equal(t, []string{"go"}, result.Found)
	assert.Equal(t, []string{"sql"}, result.Missing)
}

func TestScoreEmptyRequired(t *testing.T) {
	result := NewMatcher(nil).Score(NewKeywordSet(), NewKeywordSet(Keyword{Canonical: "go"}))

	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.Found)
	assert.Empty(t, result.Missing)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":0,"found":[],"missing":[]}`, string(data))
}

func TestScoreNilSets(t *testing.T) {
	result := NewMatcher(nil).Score(nil, nil)
	assert.Equal(t, AnalysisResult{Found: []string{}, Missing: []string{}}, result)

	result = NewMatcher(nil).Score(NewKeywordSet(Keyword{Canonical: "go"}), nil)
	assert.Equal(t, 0, result.Score)
	assert.Equal(t, []string{"go"}, result.Missing)
}

var propertyCases = []struct {
	jd     string
	resume string
}{
	{exampleJobDescription, exampleResume},
	{"Senior Go engineer: Kubernetes, AWS, PostgreSQL, CI/CD", "Go developer. Kubernetes and Amazon Web Services."},
	{"Data science, machine learning, Python, statistics", "Machine learning engineer with Python"},
	{"Front-end developer, React, TypeScript", "frontend: React.js, TS"},
	{"", "anything at all"},
	{"python", "python"},
}

func TestScorePartitionsRequiredSet(t *testing.T) {
	engine := NewEngine(nil)

	for _, tc := range propertyCases {
		required, err := engine.Extract(tc.jd, RoleJobDescription)
		require.NoError(t, err)
		available, err := engine.Extract(tc.resume, RoleResume)
		require.NoError(t, err)

		result := engine.Score(required, available)

		for _, f := range result.Found {
			assert.NotContains(t, result.Missing, f, "found and missing overlap for %q", tc.jd)
		}
		union := append(slices.Clone(result.Found), result.Missing...)
		assert.ElementsMatch(t, required.Displays(), union, "union differs from required set for %q", tc.jd)
		assert.GreaterOrEqual(t, result.Score, 0)
		assert.LessOrEqual(t, result.Score, 100)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	engine := NewEngine(mustConfig(t, WithFuzzyThreshold(2)))

	for _, tc := range propertyCases {
		first, err := engine.Analyze(tc.jd, tc.resume)
		require.NoError(t, err)
		firstJSON, err := json.Marshal(first)
		require.NoError(t, err)

		for range 5 {
			again, err := engine.Analyze(tc.jd, tc.resume)
			require.NoError(t, err)
			againJSON, err := json.Marshal(again)
			require.NoError(t, err)
			assert.Equal(t, string(firstJSON), string(againJSON))
		}
	}
}

func TestScoreIsMonotonic(t *testing.T) {
	engine := NewEngine(nil)
	jd := "Python, SQL, Docker, Kubernetes, machine learning, Terraform"
	words := []string{"python", "sql", "docker", "kubernetes", "machine learning", "terraform"}

	previous := -1
	resume := "notes"
	for _, w := range words {
		resume += " " + w
		result, err := engine.Analyze(jd, resume)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Score, previous, "score dropped after adding %q", w)
		previous = result.Score
	}
	assert.Equal(t, 100, previous)
}

func BenchmarkScore(b *testing.B) {
	engine := NewEngine(nil)
	required, _ := engine.Extract(exampleJobDescription, RoleJobDescription)
	available, _ := engine.Extract(exampleResume, RoleResume)
	for b.Loop() {
		engine.Score(required, available)
	}
}

func BenchmarkScoreFuzzy(b *testing.B) {
	cfg, _ := NewConfig(WithFuzzyThreshold(2))
	engine := NewEngine(cfg)
	required, _ := engine.Extract(exampleJobDescription, RoleJobDescription)
	available, _ := engine.Extract(exampleResume, RoleResume)
	for b.Loop() {
		engine.Score(required, available)
	}
}

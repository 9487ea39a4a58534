package keywords

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeInputs(t *testing.T) {
	engine := NewEngine(nil)

	t.Run("empty resume is invalid input", func(t *testing.T) {
		_, err := engine.Analyze(exampleJobDescription, "  ")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("binary resume is invalid input", func(t *testing.T) {
		_, err := engine.Analyze(exampleJobDescription, "PK\x03\x04\x00\x00binary")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("binary job description is invalid input", func(t *testing.T) {
		_, err := engine.Analyze("\xff\xfe", exampleResume)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty job description is the degenerate result", func(t *testing.T) {
		result, err := engine.Analyze("", exampleResume)
		require.NoError(t, err)
		assert.Equal(t, AnalysisResult{Found: []string{}, Missing: []string{}}, result)
	})
}

func TestRank(t *testing.T) {
	engine := NewEngine(nil)
	candidates := []Candidate{
		{Name: "carol", Text: "Python"},
		{Name: "alice", Text: "Python developer with SQL and machine learning experience"},
		{Name: "dave", Text: ""},
		{Name: "bob", Text: "Python"},
	}

	ranked, err := engine.Rank(exampleJobDescription, candidates)
	require.NoError(t, err)
	require.Len(t, ranked, 4)

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Candidate
		assert.Equal(t, i+1, r.Rank)
	}
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, names)

	assert.Equal(t, 100, ranked[0].Result.Score)
	assert.Equal(t, BandStrong, ranked[0].Band)
	assert.Equal(t, 20, ranked[1].Result.Score)
	assert.Equal(t, BandWeak, ranked[1].Band)

	assert.NotEmpty(t, ranked[3].Err)
	assert.Equal(t, []string{"python", "developer", "machine learning", "sql", "experience"}, ranked[3].Result.Missing)
}

func TestRankCandidateWithReadError(t *testing.T) {
	ranked, err := NewEngine(nil).Rank(exampleJobDescription, []Candidate{
		{Name: "scanned.pdf", Err: errors.New("no text could be extracted from scanned.pdf")},
		{Name: "erin", Text: exampleResume},
	})
	require.NoError(t, err)
	require.Len(t, ranked, 2)

	assert.Equal(t, "erin", ranked[0].Candidate)
	assert.Equal(t, 40, ranked[0].Result.Score)

	assert.Equal(t, "scanned.pdf", ranked[1].Candidate)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, "no text could be extracted from scanned.pdf", ranked[1].Err)
	assert.Equal(t, BandWeak, ranked[1].Band)
	assert.Len(t, ranked[1].Result.Missing, 5)
}

func TestRankInvalidJobDescription(t *testing.T) {
	_, err := NewEngine(nil).Rank("\x00\x01", []Candidate{{Name: "a", Text: "go"}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBand(t *testing.T) {
	tests := map[int]string{
		100: BandStrong,
		75:  BandStrong,
		74:  BandPartial,
		50:  BandPartial,
		49:  BandWeak,
		0:   BandWeak,
	}
	for score, expected := range tests {
		assert.Equal(t, expected, Band(score), "score %d", score)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input       string
		expected    Role
		expectError bool
	}{
		{input: "jd", expected: RoleJobDescription},
		{input: "Job-Description", expected: RoleJobDescription},
		{input: "resume", expected: RoleResume},
		{input: " cv ", expected: RoleResume},
		{input: "cover-letter", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, err := ParseRole(tt.input)
			if tt.expectError {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, role)
		})
	}
}

func TestStoreSwap(t *testing.T) {
	first := NewEngine(nil)
	store := NewStore(first)
	assert.Same(t, first, store.Engine())

	second := NewEngine(mustConfig(t, WithFuzzyThreshold(1)))
	previous := store.Swap(second)

	assert.Same(t, first, previous)
	assert.Same(t, second, store.Engine())
	assert.Equal(t, 1, store.Engine().Config().FuzzyThreshold())
}

func TestEngineConcurrentUse(t *testing.T) {
	store := NewStore(NewEngine(nil))

	var wg sync.WaitGroup
	results := make([]AnalysisResult, 32)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%8 == 0 {
				store.Swap(NewEngine(nil))
			}
			result, err := store.Engine().Analyze(exampleJobDescription, exampleResume)
			if err == nil {
				results[i] = result
			}
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, 40, r.Score)
	}
}

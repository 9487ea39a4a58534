package formatters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

func exampleMatch() types.MatchResponse {
	return types.NewMatchResponse(keywords.AnalysisResult{
		Score:   40,
		Found:   []string{"python", "sql"},
		Missing: []string{"developer", "machine learning", "experience"},
	})
}

func TestFormatMatch(t *testing.T) {
	registry := NewFormatterRegistry()

	text, err := registry.Format(exampleMatch(), "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 40/100 (weak)")
	assert.Contains(t, text, "Found (2):\npython, sql")
	assert.Contains(t, text, "Missing (3):\ndeveloper, machine learning, experience")

	md, err := registry.Format(exampleMatch(), "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "**Score:** 40/100 (weak)")
	assert.Contains(t, md, "- machine learning\n")

	js, err := registry.Format(exampleMatch(), "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":40,"found":["python","sql"],"missing":["developer","machine learning","experience"],"band":"weak"}`, js)
}

func TestFormatEmptyMatch(t *testing.T) {
	resp := types.NewMatchResponse(keywords.AnalysisResult{Found: []string{}, Missing: []string{}})

	text, err := NewFormatterRegistry().Format(resp, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Found (0):\n(none)")

	md, err := NewFormatterRegistry().Format(resp, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "_None_")
}

func TestFormatKeywordList(t *testing.T) {
	set := keywords.NewKeywordSet(
		keywords.Keyword{Canonical: "python", Display: "Python"},
		keywords.Keyword{Canonical: "machine learning", Weight: 2, Phrase: true},
	)
	list := types.NewKeywordList("jd.txt", keywords.RoleJobDescription, set)

	text, err := NewFormatterRegistry().Format(list, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Source: jd.txt")
	assert.Contains(t, text, "Count: 2 (total weight 3)")
	assert.Contains(t, text, `as "Python"`)
	assert.Contains(t, text, "weight 2, phrase")

	md, err := NewFormatterRegistry().Format(list, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| machine learning | machine learning | 2 | yes |")
}

func TestFormatRanking(t *testing.T) {
	report := types.NewRankingReport("backend.txt", []keywords.RankedResult{
		{Rank: 1, Candidate: "alice.txt", Band: keywords.BandStrong, Result: keywords.AnalysisResult{Score: 100, Found: []string{"go"}, Missing: []string{}}},
		{Rank: 2, Candidate: "bob.pdf", Err: "invalid input: no text"},
	})

	text, err := NewFormatterRegistry().Format(report, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Candidates: 2 (scored 1, failed 1)")
	assert.Contains(t, text, "alice.txt")
	assert.Contains(t, text, "error: invalid input: no text")

	md, err := NewFormatterRegistry().Format(report, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "| 1 | alice.txt | 100 | strong | (none) |")
	assert.Contains(t, md, "| 2 | bob.pdf | - | - | error: invalid input: no text |")
}

func TestFormatUnknown(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(exampleMatch(), "xml")
	assert.Error(t, err)

	_, err = registry.Format(42, "text")
	assert.Error(t, err)

	assert.Equal(t, []string{"json", "markdown", "text"}, registry.GetSupportedFormats())
}

package common

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(nil, 0)

	txt := writeFile(t, dir, "resume.txt", "Python engineer")
	doc, err := fp.ReadDocument(txt)
	require.NoError(t, err)
	assert.Equal(t, "resume.txt", doc.Name)
	assert.Contains(t, doc.Text, "Python engineer")

	html := writeFile(t, dir, "job.html", "<html><body><script>x()</script><p>Go developer</p></body></html>")
	doc, err = fp.ReadDocument(html)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Go developer")
	assert.NotContains(t, doc.Text, "x()")

	noExt := writeFile(t, dir, "README", "SQL and Kubernetes")
	doc, err = fp.ReadDocument(noExt)
	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Kubernetes")
}

func TestReadDocumentsConcurrently(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(nil, 0)

	var files []string
	for i := range 6 {
		files = append(files, writeFile(t, dir, "resume"+strings.Repeat("x", i)+".txt", "candidate "+strings.Repeat("y", i)))
	}

	docs, err := fp.ReadDocumentsConcurrently(context.Background(), 3, files...)
	require.NoError(t, err)
	require.Len(t, docs, len(files))
	for i, doc := range docs {
		assert.Equal(t, filepath.Base(files[i]), doc.Name, "order follows the input")
	}

	_, err = fp.ReadDocumentsConcurrently(context.Background(), 3, append(files, filepath.Join(dir, "missing.txt"))...)
	assert.Error(t, err)
}

func TestReadDocumentSetToleratesLaterFailures(t *testing.T) {
	dir := t.TempDir()
	fp := NewFileProcessor(nil, 0)

	job := writeFile(t, dir, "job.txt", "Go developer")
	good := writeFile(t, dir, "good.txt", "Go")
	empty := writeFile(t, dir, "empty.txt", "   ")
	binary := writeFile(t, dir, "binary.txt", "\x00\x01\x02\x03")

	for _, limit := range []int{1, 3} {
		docs, err := fp.ReadDocumentSet(context.Background(), limit, 1, job, good, empty, binary)
		require.NoError(t, err)
		require.Len(t, docs, 4)

		assert.NoError(t, docs[0].Err)
		assert.NoError(t, docs[1].Err)
		assert.Equal(t, "Go", docs[1].Text)

		assert.Equal(t, "empty.txt", docs[2].Name)
		appErr, ok := errors.AsAppError(docs[2].Err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeEmptyDocument, appErr.Code)

		assert.Equal(t, "binary.txt", docs[3].Name)
		assert.Error(t, docs[3].Err)
	}

	_, err := fp.ReadDocumentSet(context.Background(), 3, 1, empty, good)
	assert.Error(t, err, "the required documents must read cleanly")
}

func TestReadDocumentErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewFileProcessor(nil, 0).ReadDocument(filepath.Join(dir, "missing.txt"))
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInput, appErr.Code)

	big := writeFile(t, dir, "big.txt", strings.Repeat("a", 64))
	_, err = NewFileProcessor(nil, 32).ReadDocument(big)
	appErr, ok = errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeFileTooLarge, appErr.Code)

	fake := writeFile(t, dir, "fake.pdf", "not really a pdf")
	_, err = NewFileProcessor(nil, 0).ReadDocument(fake)
	assert.Error(t, err)
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	target := filepath.Join(t.TempDir(), "out", "report.md")

	require.NoError(t, NewFileProcessor(nil, 0).WriteFile(target, "# report"))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "# report", string(data))
}

func TestHandleOutputToWriter(t *testing.T) {
	var buf bytes.Buffer
	handler := NewOutputHandler(nil).WithStdout(&buf)

	response := types.NewMatchResponse(keywords.AnalysisResult{Score: 80, Found: []string{"go"}, Missing: []string{}})
	require.NoError(t, handler.HandleOutput(response, CommandConfig{OutputFormat: "json"}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(80), decoded["score"])
	assert.Equal(t, keywords.BandStrong, decoded["band"])
}

func TestHandleOutputUnknownFormat(t *testing.T) {
	err := NewOutputHandler(nil).WithStdout(&bytes.Buffer{}).HandleOutput(struct{}{}, CommandConfig{OutputFormat: "yaml"})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidFormat, appErr.Code)
}

func TestRunDocumentCommand(t *testing.T) {
	dir := t.TempDir()
	job := writeFile(t, dir, "job.txt", "Python developer with SQL")
	resume := writeFile(t, dir, "resume.md", "# Python engineer")

	var buf bytes.Buffer
	runner := Runner{Output: NewOutputHandler(nil).WithStdout(&buf)}
	engine := keywords.NewEngine(nil)

	logged := false
	result, err := RunDocumentCommand(context.Background(), runner,
		CommandConfig{OutputFormat: "text"},
		[]string{resume, job},
		func(docs []Document) (types.MatchRequest, error) {
			return types.MatchRequest{ResumeText: docs[0].Text, JobDescription: docs[1].Text}, nil
		},
		func(_ context.Context, in types.MatchRequest) (types.MatchResponse, error) {
			res, err := engine.Analyze(in.JobDescription, in.ResumeText)
			return types.NewMatchResponse(res), err
		},
		func(types.MatchRequest, CommandConfig) { logged = true },
	)
	require.NoError(t, err)
	assert.True(t, logged)
	assert.Equal(t, []string{"python"}, result.Found)
	assert.ElementsMatch(t, []string{"developer", "sql"}, result.Missing)
	assert.NotEmpty(t, buf.String())
}

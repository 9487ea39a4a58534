package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumatch/internal/config"
	"resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/staging"
	"resumatch/internal/types"
)

const (
	testJobDescription = "Looking for a Python developer with machine learning and SQL experience"
	testResume         = "Experienced Python engineer, SQL expert"
)

var testExtensions = []string{".pdf", ".docx", ".txt", ".md", ".html", ".htm"}

func newTestServer(t *testing.T, cfg ServerConfig, store staging.Store) *Server {
	t.Helper()
	if cfg.AllowedExtensions == nil {
		cfg.AllowedExtensions = testExtensions
	}
	logger := errors.NewLoggerWithWriter(io.Discard, slog.LevelError)
	s := NewServer(nil, cfg, keywords.NewStore(keywords.NewEngine(nil)), store, logger)
	t.Cleanup(s.cleanupRateLimiter)
	return s
}

func postJSON(t *testing.T, h http.Handler, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postUpload(t *testing.T, h http.Handler, filename string, content []byte, jobDescription string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("resumeFile", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.WriteField("jobDescription", jobDescription))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeMatch(t *testing.T, rec *httptest.ResponseRecorder) types.MatchResponse {
	t.Helper()
	var resp types.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var resp types.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestMatchEndpoint(t *testing.T) {
	h := newTestServer(t, ServerConfig{}, nil).Handler()

	rec := postJSON(t, h, "/match", types.MatchRequest{ResumeText: testResume, JobDescription: testJobDescription})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeMatch(t, rec)
	assert.Equal(t, 40, resp.Score)
	assert.Equal(t, []string{"python", "sql"}, resp.Found)
	assert.Equal(t, []string{"developer", "machine learning", "experience"}, resp.Missing)
	assert.Equal(t, keywords.BandWeak, resp.Band)
}

func TestMatchEndpointErrors(t *testing.T) {
	h := newTestServer(t, ServerConfig{MaxRequestSize: 1024}, nil).Handler()

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{
			name:   "blank job description",
			body:   types.MatchRequest{ResumeText: testResume, JobDescription: "   "},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeInvalidRequest,
		},
		{
			name:   "missing resume",
			body:   map[string]string{"jobDescription": testJobDescription},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeInvalidRequest,
		},
		{
			name:   "no keywords in job description",
			body:   types.MatchRequest{ResumeText: testResume, JobDescription: "and the of"},
			status: http.StatusUnprocessableEntity,
			code:   errors.ErrCodeNoKeywords,
		},
		{
			name:   "binary resume",
			body:   types.MatchRequest{ResumeText: "%PDF-1.7\x00\x01\x02", JobDescription: testJobDescription},
			status: http.StatusBadRequest,
			code:   errors.ErrCodeInvalidInput,
		},
		{
			name:   "body over the limit",
			body:   types.MatchRequest{ResumeText: strings.Repeat("python ", 500), JobDescription: testJobDescription},
			status: http.StatusRequestEntityTooLarge,
			code:   errors.ErrCodeFileTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/match", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.Zero(t, resp.Score)
			assert.Equal(t, []string{}, resp.Found)
			assert.Equal(t, []string{}, resp.Missing)
		})
	}
}

func TestMatchRequiresJSON(t *testing.T) {
	h := newTestServer(t, ServerConfig{}, nil).Handler()

	req := httptest.NewRequest(http.MethodPost, "/match", strings.NewReader("resumeText=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidRequest, decodeError(t, rec).Code)

	req = httptest.NewRequest(http.MethodPost, "/match", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON body", decodeError(t, rec).Error)
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, ServerConfig{}, nil).Handler()

	for path, method := range map[string]string{
		"/match":   http.MethodGet,
		"/analyze": http.MethodPut,
		"/extract": http.MethodDelete,
		"/health":  http.MethodPost,
	} {
		req := httptest.NewRequest(method, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		assert.NotEmpty(t, rec.Header().Get("Allow"), path)
		assert.Equal(t, errors.ErrCodeMethodNotAllowed, decodeError(t, rec).Code, path)
	}
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, ServerConfig{APIKeys: []string{"secret-key-1"}}, nil)
	h := s.Handler()
	body := types.MatchRequest{ResumeText: testResume, JobDescription: testJobDescription}

	rec := postJSON(t, h, "/match", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errors.ErrCodeMissingAPIKey, decodeError(t, rec).Code)

	rec = postJSON(t, h, "/match", body, "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, errors.ErrCodeInvalidAPIKey, decodeError(t, rec).Code)

	rec = postJSON(t, h, "/match", body, "X-API-Key", "secret-key-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, h, "/match", body, "Authorization", "Bearer secret-key-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	// health stays public
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	healthRec := httptest.NewRecorder()
	h.ServeHTTP(healthRec, req)
	assert.Equal(t, http.StatusOK, healthRec.Code)

	// rotated keys take effect immediately
	s.rotateAPIKeys([]string{"secret-key-2"}, nil)
	rec = postJSON(t, h, "/match", body, "X-API-Key", "secret-key-1")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = postJSON(t, h, "/match", body, "X-API-Key", "secret-key-2")
	assert.Equal(t, http.StatusOK, rec.Code)

	// an empty rotation keeps the current keys
	s.rotateAPIKeys(nil, nil)
	assert.Equal(t, 1, s.APIKeys.Len())
}

func TestRateLimiting(t *testing.T) {
	h := newTestServer(t, ServerConfig{
		RateLimit: &config.RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 1,
			BurstCapacity:  2,
			ByIP:           true,
		},
	}, nil).Handler()
	body := types.MatchRequest{ResumeText: testResume, JobDescription: testJobDescription}

	for range 2 {
		rec := postJSON(t, h, "/match", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postJSON(t, h, "/match", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, errors.ErrCodeRateLimited, decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// another client has its own bucket
	rec = postJSON(t, h, "/match", body, "X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyzeUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := staging.NewLocalStore(dir)
	require.NoError(t, err)
	h := newTestServer(t, ServerConfig{MaxFileSize: 1024}, store).Handler()

	rec := postUpload(t, h, "resume.txt", []byte(testResume), testJobDescription)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeMatch(t, rec)
	assert.Equal(t, 40, resp.Score)
	assert.Equal(t, []string{"python", "sql"}, resp.Found)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staged upload must be removed after analysis")
}

func TestAnalyzeKeepsStagedUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := staging.NewLocalStore(dir)
	require.NoError(t, err)
	h := newTestServer(t, ServerConfig{MaxFileSize: 1024, KeepStaged: true}, store).Handler()

	rec := postUpload(t, h, "resume.md", []byte("# Resume\n\n"+testResume), testJobDescription)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAnalyzeUploadErrors(t *testing.T) {
	h := newTestServer(t, ServerConfig{MaxFileSize: 64}, nil).Handler()

	tests := []struct {
		name     string
		filename string
		content  []byte
		job      string
		status   int
		code     string
	}{
		{
			name:     "unsupported extension",
			filename: "resume.exe",
			content:  []byte(testResume),
			job:      testJobDescription,
			status:   http.StatusUnsupportedMediaType,
			code:     errors.ErrCodeUnsupportedFileType,
		},
		{
			name:     "file too large",
			filename: "resume.txt",
			content:  bytes.Repeat([]byte("python "), 20),
			job:      testJobDescription,
			status:   http.StatusRequestEntityTooLarge,
			code:     errors.ErrCodeFileTooLarge,
		},
		{
			name:   "missing file",
			job:    testJobDescription,
			status: http.StatusBadRequest,
			code:   errors.ErrCodeInvalidRequest,
		},
		{
			name:     "missing job description",
			filename: "resume.txt",
			content:  []byte("python"),
			job:      " ",
			status:   http.StatusBadRequest,
			code:     errors.ErrCodeInvalidRequest,
		},
		{
			name:     "corrupt pdf",
			filename: "resume.pdf",
			content:  []byte("not a pdf"),
			job:      testJobDescription,
			status:   http.StatusBadRequest,
			code:     errors.ErrCodeInvalidFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postUpload(t, h, tt.filename, tt.content, tt.job)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, rec).Code)
			}
		})
	}
}

type failingStore struct{ staging.NopStore }

func (failingStore) Put(context.Context, string, []byte) (string, error) {
	return "", errors.NewStorageError(errors.ErrCodeStorageFailed, "bucket unavailable", nil)
}

func TestAnalyzeStagingFailure(t *testing.T) {
	h := newTestServer(t, ServerConfig{MaxFileSize: 1024}, failingStore{}).Handler()

	rec := postUpload(t, h, "resume.txt", []byte(testResume), testJobDescription)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, errors.ErrCodeStorageFailed, decodeError(t, rec).Code)
	assert.Contains(t, rec.Body.String(), `"score":0,"found":[],"missing":[],"error":"bucket unavailable"`)
}

// countingStore records staging calls on top of a real store
type countingStore struct {
	staging.Store
	gets    int
	deletes int
	getErr  error
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Store.Get(ctx, key)
}

func (c *countingStore) Delete(ctx context.Context, key string) error {
	c.deletes++
	return c.Store.Delete(ctx, key)
}

func TestAnalyzeReadsStagedCopy(t *testing.T) {
	dir := t.TempDir()
	local, err := staging.NewLocalStore(dir)
	require.NoError(t, err)
	store := &countingStore{Store: local}
	h := newTestServer(t, ServerConfig{MaxFileSize: 1024}, store).Handler()

	rec := postUpload(t, h, "resume.txt", []byte(testResume), testJobDescription)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 40, decodeMatch(t, rec).Score)
	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.deletes)

	store.getErr = errors.NewStorageError(errors.ErrCodeStorageFailed, "object vanished", nil)
	rec = postUpload(t, h, "resume.txt", []byte(testResume), testJobDescription)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, 2, store.deletes, "an unreadable staged copy is removed")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractEndpoint(t *testing.T) {
	h := newTestServer(t, ServerConfig{}, nil).Handler()

	rec := postJSON(t, h, "/extract", types.ExtractRequest{Text: testJobDescription})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var list types.KeywordList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, keywords.RoleJobDescription.String(), list.Role)
	assert.Equal(t, 5, list.Count)
	require.Len(t, list.Keywords, 5)
	assert.Equal(t, "machine learning", list.Keywords[2].Canonical)

	rec = postJSON(t, h, "/extract", types.ExtractRequest{Text: "Machine learning engineer", Role: "resume"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 4, list.Count)

	rec = postJSON(t, h, "/extract", types.ExtractRequest{Text: "python", Role: "manager"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndStats(t *testing.T) {
	h := newTestServer(t, ServerConfig{Version: "1.2.3", MaxFileSize: 2048}, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var health types.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Contains(t, health.Details, "engine")
	assert.Contains(t, health.Details, "staging")

	req = httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, "resumatch", stats["service"])
	assert.Equal(t, map[string]any{"enabled": false}, stats["rate_limiting"])
	server := stats["server"].(map[string]any)
	assert.Equal(t, float64(2048), server["max_file_size_bytes"])
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{errors.NewValidationError(errors.ErrCodeFileTooLarge, "big", nil), http.StatusRequestEntityTooLarge, errors.ErrCodeFileTooLarge},
		{errors.NewInputError(errors.ErrCodeEmptyDocument, "empty", nil), http.StatusBadRequest, errors.ErrCodeEmptyDocument},
		{errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "slow", nil), http.StatusServiceUnavailable, errors.ErrCodeNetworkTimeout},
		{errors.NewInternalError(errors.ErrCodeInternal, "secret detail", nil), http.StatusInternalServerError, errors.ErrCodeInternal},
		{keywords.ErrInvalidInput, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError, errors.ErrCodeInternal},
		{asAppError(io.ErrUnexpectedEOF), http.StatusInternalServerError, errors.ErrCodeInternal},
	}

	for _, tt := range tests {
		status, code, message := statusForError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
		if status == http.StatusInternalServerError {
			assert.Equal(t, "Internal server error", message)
		}
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := asAppError(io.ErrUnexpectedEOF)
	appErr, ok := errors.AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, errors.ErrorTypeInternal, appErr.Type)
	assert.Equal(t, errors.ErrCodeInternal, appErr.Code)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)

	coded := errors.NewInputError(errors.ErrCodeEmptyDocument, "empty", nil)
	assert.Same(t, coded, asAppError(coded))
	assert.Equal(t, keywords.ErrInvalidInput, asAppError(keywords.ErrInvalidInput))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, ServerConfig{Host: "127.0.0.1", Port: "0"}, nil)
	s.AppConfig = &config.Config{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after context cancellation")
	}
}

package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"time"

	"resumatch/internal/errors"
	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

// breakerReporter is implemented by staging backends guarded by a circuit breaker
type breakerReporter interface {
	BreakerStats() map[string]any
}

// healthHandler reports engine, lexicon and staging health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	details := map[string]any{
		"engine":  s.engineStatus(),
		"staging": s.stagingStatus(),
	}
	healthy := true

	if s.LexiconWatcher != nil {
		status := s.LexiconWatcher.Status()
		details["lexicon"] = status
		if running, ok := status["running"].(bool); ok && !running {
			healthy = false
		}
	}

	if breaker, ok := s.Staging.(breakerReporter); ok {
		stats := breaker.BreakerStats()
		details["circuit_breaker"] = stats
		if state, ok := stats["state"].(string); ok && state == "open" {
			healthy = false
		}
	}

	response := types.HealthResponse{
		Status:    "healthy",
		Version:   s.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Details:   details,
	}
	status := http.StatusOK
	if !healthy {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func (s *Server) engineStatus() map[string]any {
	cfg := s.Engines.Engine().Config()
	return map[string]any{
		"phrases":         len(cfg.Phrases()),
		"stopwords":       len(cfg.Stopwords()),
		"aliases":         len(cfg.Aliases()),
		"vocabulary":      len(cfg.Vocabulary()),
		"fuzzy_threshold": cfg.FuzzyThreshold(),
		"stemming":        cfg.Stemming(),
	}
}

func (s *Server) stagingStatus() map[string]any {
	return map[string]any{
		"backend":     s.Staging.Backend(),
		"keep_staged": s.KeepStaged,
	}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service":        "resumatch",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.MaxFileSize,
			"allowed_extensions":     s.AllowedExtensions,
			"api_keys_configured":    s.APIKeys.Len(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.KeyWatcher != nil {
		response["api_key_rotation"] = s.KeyWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Content-Type must be application/json", err)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeFileTooLarge,
				fmt.Sprintf("Request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return errors.NewIOError(errors.ErrCodeInvalidRequest, "Failed to read request body", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "Invalid JSON body", err)
	}

	return nil
}

// statusForError maps an error onto an HTTP status, error code and client message
func statusForError(err error) (int, string, string) {
	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Code {
		case errors.ErrCodeFileTooLarge:
			return http.StatusRequestEntityTooLarge, appErr.Code, appErr.Message
		case errors.ErrCodeUnsupportedFileType:
			return http.StatusUnsupportedMediaType, appErr.Code, appErr.Message
		}
		switch appErr.Type {
		case errors.ErrorTypeValidation, errors.ErrorTypeInput, errors.ErrorTypeIO:
			return http.StatusBadRequest, appErr.Code, appErr.Message
		case errors.ErrorTypeNetwork:
			return http.StatusServiceUnavailable, appErr.Code, appErr.Message
		case errors.ErrorTypeStorage:
			return http.StatusBadGateway, appErr.Code, appErr.Message
		default:
			return http.StatusInternalServerError, appErr.Code, "Internal server error"
		}
	}
	if stderrors.Is(err, keywords.ErrInvalidInput) {
		return http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error()
	}
	return http.StatusInternalServerError, errors.ErrCodeInternal, "Internal server error"
}

// writeErrorResponse writes the analysis-shaped error envelope
func writeErrorResponse(w http.ResponseWriter, code, message string, statusCode int) {
	writeJSON(w, statusCode, types.NewErrorResponse(code, message))
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

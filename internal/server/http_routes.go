package server

import (
	"net/http"
	"slices"
	"strings"

	"resumatch/internal/errors"
	"resumatch/internal/observability"
)

// multipartOverhead is allowed on top of the file size for form fields and boundaries
const multipartOverhead = 1 << 20

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	rateLimitHandler := s.createRateLimitMiddleware(om)
	jsonLimit := s.requestSizeLimitMiddleware(s.MaxRequestSize)
	uploadLimit := s.requestSizeLimitMiddleware(s.uploadLimit())

	mux.HandleFunc("/health", allowMethods(s.healthHandler, http.MethodGet))
	mux.HandleFunc("/stats", allowMethods(s.statsHandler, http.MethodGet))
	mux.HandleFunc("/analyze",
		allowMethods(rateLimitHandler(
			s.authMiddleware(uploadLimit(s.createAnalyzeHandler(om))),
		), http.MethodPost),
	)
	mux.HandleFunc("/match",
		allowMethods(rateLimitHandler(
			s.authMiddleware(jsonLimit(s.createMatchHandler(om))),
		), http.MethodPost),
	)
	mux.HandleFunc("/extract",
		allowMethods(rateLimitHandler(
			s.authMiddleware(jsonLimit(s.createExtractHandler(om))),
		), http.MethodPost),
	)

	if handler := om.PrometheusHandler(); handler != nil {
		mux.Handle(om.PrometheusEndpoint(), handler)
	}

	return mux
}

// allowMethods answers 405 with the error envelope for any other method
func allowMethods(next http.HandlerFunc, methods ...string) http.HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		if !slices.Contains(methods, r.Method) {
			w.Header().Set("Allow", allow)
			writeErrorResponse(w, errors.ErrCodeMethodNotAllowed,
				"Invalid request method, "+allow+" required", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if s.APIKeys == nil || s.APIKeys.Len() == 0 {
			next(w, r)
			return
		}

		apiKey := getAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, errors.ErrCodeMissingAPIKey,
				"X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys.Contains(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, errors.ErrCodeInvalidAPIKey, "Invalid API key", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestSizeLimitMiddleware caps the request body at limit bytes
func (s *Server) requestSizeLimitMiddleware(limit int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next(w, r)
		}
	}
}

func (s *Server) uploadLimit() int64 {
	if s.MaxFileSize <= 0 {
		return 0
	}
	return s.MaxFileSize + multipartOverhead
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}

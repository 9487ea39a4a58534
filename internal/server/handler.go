package server

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"resumatch/internal/errors"
	"resumatch/internal/ingestion"
	"resumatch/internal/keywords"
	"resumatch/internal/observability"
	"resumatch/internal/types"
	"resumatch/internal/utils"
)

// multipartMemory is how much of a multipart form is held in memory
const multipartMemory = 8 << 20

// upload is a validated multipart analyze request
type upload struct {
	Name           string
	Data           []byte
	JobDescription string
}

// createAnalyzeHandler scores an uploaded resume file against a job description.
// The upload is staged first and the text is extracted from the staged copy.
// Error responses carry score 0 and empty found and missing lists next to
// error and code, the envelope upload clients already parse.
func (s *Server) createAnalyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumatch.api").Start(r.Context(), "api.analyze")
		defer span.End()
		metrics := om.GetMetrics()

		up, err := s.readUpload(r)
		if err != nil {
			s.fail(w, span, err)
			return
		}
		format := ingestion.Extension(up.Name)
		span.SetAttributes(
			attribute.String("request.file_type", format),
			attribute.Int("request.file_size", len(up.Data)),
			attribute.Int("request.job_length", len(up.JobDescription)),
		)

		data, key, err := s.stage(ctx, up)
		if err != nil {
			s.fail(w, span, err)
			return
		}
		if key != "" && !s.KeepStaged {
			defer s.unstage(context.WithoutCancel(ctx), key)
		}

		text, err := ingestion.ExtractText(up.Name, data)
		metrics.RecordBusinessMetric(ctx, observability.MetricDocumentIngested, err == nil,
			attribute.String("format", format))
		if err != nil {
			s.fail(w, span, err)
			return
		}

		s.respondMatch(ctx, w, span, om, "analyze", up.JobDescription, text)
	}
}

// readUpload parses and validates the multipart form of /analyze
func (s *Server) readUpload(r *http.Request) (*upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
				"File size exceeds the "+utils.FormatFileSize(s.MaxFileSize)+" limit", err)
		}
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			"Expected a multipart/form-data request", err)
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("resumeFile")
	if err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "No file uploaded (resumeFile)", err)
	}
	defer file.Close()

	name := utils.SanitizeFilename(header.Filename)
	if !utils.HasAllowedExtension(name, s.AllowedExtensions) || !ingestion.IsSupported(name) {
		return nil, errors.NewValidationError(errors.ErrCodeUnsupportedFileType,
			"Invalid file extension. Allowed: "+strings.Join(s.AllowedExtensions, ", "), nil)
	}
	if s.MaxFileSize > 0 && header.Size > s.MaxFileSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			"File size exceeds the "+utils.FormatFileSize(s.MaxFileSize)+" limit", nil)
	}

	var reader io.Reader = file
	if s.MaxFileSize > 0 {
		reader = io.LimitReader(file, s.MaxFileSize+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable, "Cannot read uploaded file", err)
	}
	if s.MaxFileSize > 0 && int64(len(data)) > s.MaxFileSize {
		return nil, errors.NewValidationError(errors.ErrCodeFileTooLarge,
			"File size exceeds the "+utils.FormatFileSize(s.MaxFileSize)+" limit", nil)
	}

	jobDescription := r.FormValue("jobDescription")
	if strings.TrimSpace(jobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "Job description is required", nil)
	}

	return &upload{Name: name, Data: data, JobDescription: jobDescription}, nil
}

// stage stores the upload and reads it back. Without a staging backend the
// uploaded bytes are used directly.
func (s *Server) stage(ctx context.Context, up *upload) ([]byte, string, error) {
	key, err := s.Staging.Put(ctx, up.Name, up.Data)
	if err != nil || key == "" {
		return up.Data, "", err
	}
	data, err := s.Staging.Get(ctx, key)
	if err != nil {
		s.unstage(context.WithoutCancel(ctx), key)
		return nil, "", err
	}
	return data, key, nil
}

func (s *Server) unstage(ctx context.Context, key string) {
	if err := s.Staging.Delete(ctx, key); err != nil {
		s.Logger.LogError(err, "Failed to delete staged upload", "key", key, "backend", s.Staging.Backend())
	}
}

// createMatchHandler scores resume text against a job description
func (s *Server) createMatchHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumatch.api").Start(r.Context(), "api.match")
		defer span.End()

		var req types.MatchRequest
		if err := parseJSONRequest(r, &req); err != nil {
			s.fail(w, span, err)
			return
		}
		if err := req.Validate(); err != nil {
			s.fail(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), nil))
			return
		}

		span.SetAttributes(
			attribute.Int("request.resume_length", len(req.ResumeText)),
			attribute.Int("request.job_length", len(req.JobDescription)),
		)
		s.respondMatch(ctx, w, span, om, "match", req.JobDescription, req.ResumeText)
	}
}

// respondMatch runs the active engine and writes the analysis or error envelope
func (s *Server) respondMatch(ctx context.Context, w http.ResponseWriter, span oteltrace.Span, om *observability.ObservabilityManager, operation, jobDescription, resume string) {
	metrics := om.GetMetrics()
	metrics.RecordContentSize(ctx, "resume", len(resume))
	metrics.RecordContentSize(ctx, "job_description", len(jobDescription))

	var result keywords.AnalysisResult
	err := metrics.TrackMatchOperation(ctx, om.Tracer("resumatch.match"), operation, func(context.Context) *observability.MatchOperationResult {
		var err error
		result, err = s.Engines.Engine().Analyze(jobDescription, resume)
		if err != nil {
			return &observability.MatchOperationResult{Error: err}
		}
		return &observability.MatchOperationResult{
			Scored:   true,
			Score:    result.Score,
			Required: len(result.Found) + len(result.Missing),
			Found:    len(result.Found),
			Missing:  len(result.Missing),
		}
	})
	if err != nil {
		s.fail(w, span, err)
		return
	}

	if len(result.Found)+len(result.Missing) == 0 {
		span.SetAttributes(attribute.String("error.type", "no_keywords"))
		writeErrorResponse(w, errors.ErrCodeNoKeywords,
			"No recognizable keywords found in the job description", http.StatusUnprocessableEntity)
		return
	}

	span.SetAttributes(attribute.Int("match.score", result.Score))
	writeJSON(w, http.StatusOK, types.NewMatchResponse(result))
}

// createExtractHandler lists the keywords of a text
func (s *Server) createExtractHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumatch.api").Start(r.Context(), "api.extract")
		defer span.End()
		metrics := om.GetMetrics()

		var req types.ExtractRequest
		if err := parseJSONRequest(r, &req); err != nil {
			s.fail(w, span, err)
			return
		}
		if err := req.Validate(); err != nil {
			s.fail(w, span, errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), nil))
			return
		}
		role, err := req.ParsedRole()
		if err != nil {
			s.fail(w, span, err)
			return
		}
		metrics.RecordContentSize(ctx, role.String(), len(req.Text))

		var set *keywords.KeywordSet
		err = metrics.TrackMatchOperation(ctx, om.Tracer("resumatch.match"), "extract", func(context.Context) *observability.MatchOperationResult {
			var err error
			set, err = s.Engines.Engine().Extract(req.Text, role)
			return &observability.MatchOperationResult{Error: err}
		})
		if err != nil {
			s.fail(w, span, err)
			return
		}

		span.SetAttributes(
			attribute.String("request.role", role.String()),
			attribute.Int("response.keywords", set.Len()),
		)
		writeJSON(w, http.StatusOK, types.NewKeywordList("", role, set))
	}
}

// fail records err on the span and writes the matching error envelope
func (s *Server) fail(w http.ResponseWriter, span oteltrace.Span, err error) {
	err = asAppError(err)
	status, code, message := statusForError(err)
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.code", code))
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed")
	} else {
		s.Logger.Debug("Request rejected", "code", code, "error", err)
	}
	writeErrorResponse(w, code, message, status)
}

// asAppError wraps errors that carry no application code as internal errors
func asAppError(err error) error {
	if _, ok := errors.AsAppError(err); ok || stderrors.Is(err, keywords.ErrInvalidInput) {
		return err
	}
	return errors.NewInternalError(errors.ErrCodeInternal, "Unexpected request failure", err)
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	limit := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := limit(next)
		return func(w http.ResponseWriter, r *http.Request) {
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			limited(wrapper, r)

			if wrapper.statusCode == http.StatusTooManyRequests {
				om.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, true,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		}
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

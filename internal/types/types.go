package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"resumatch/internal/keywords"
)

var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
})

// validateStruct reports the first failing field by its JSON name.
func validateStruct(s any, names map[string]string) error {
	err := validate().Struct(s)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		name := names[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		switch fe.Tag() {
		case "required", "notblank":
			return fmt.Errorf("%s is required", name)
		case "oneof":
			return fmt.Errorf("%s must be one of: %s", name, fe.Param())
		default:
			return fmt.Errorf("%s is invalid", name)
		}
	}
	return err
}

// MatchRequest scores a resume text against a job description
type MatchRequest struct {
	ResumeText     string `json:"resumeText" validate:"notblank"`
	JobDescription string `json:"jobDescription" validate:"notblank"`
}

// Validate validates the MatchRequest
func (r *MatchRequest) Validate() error {
	return validateStruct(r, map[string]string{
		"ResumeText":     "resumeText",
		"JobDescription": "jobDescription",
	})
}

// MatchResponse is an analysis result with its band
type MatchResponse struct {
	keywords.AnalysisResult
	Band string `json:"band"`
}

// NewMatchResponse attaches the band to result
func NewMatchResponse(result keywords.AnalysisResult) MatchResponse {
	return MatchResponse{AnalysisResult: result, Band: keywords.Band(result.Score)}
}

// ErrorResponse keeps the analysis shape so clients can read score,
// found and missing on failures too
type ErrorResponse struct {
	Score   int      `json:"score"`
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
}

// NewErrorResponse builds an empty analysis carrying message
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Found:   []string{},
		Missing: []string{},
		Error:   message,
		Code:    code,
	}
}

// ExtractRequest lists the keywords of a text
type ExtractRequest struct {
	Text string `json:"text" validate:"notblank"`
	Role string `json:"role" validate:"omitempty,oneof=jd job job-description jobdescription resume cv"`
}

// Validate validates the ExtractRequest
func (r *ExtractRequest) Validate() error {
	return validateStruct(r, map[string]string{"Text": "text", "Role": "role"})
}

// ParsedRole returns the requested role, defaulting to job description
func (r *ExtractRequest) ParsedRole() (keywords.Role, error) {
	if r.Role == "" {
		return keywords.RoleJobDescription, nil
	}
	return keywords.ParseRole(r.Role)
}

// KeywordList is the extracted keyword set of one document
type KeywordList struct {
	Source      string             `json:"source,omitempty"`
	Role        string             `json:"role"`
	Count       int                `json:"count"`
	TotalWeight float64            `json:"totalWeight"`
	Keywords    []keywords.Keyword `json:"keywords"`
}

// NewKeywordList summarizes set
func NewKeywordList(source string, role keywords.Role, set *keywords.KeywordSet) KeywordList {
	kws := set.Keywords()
	if kws == nil {
		kws = []keywords.Keyword{}
	}
	return KeywordList{
		Source:      source,
		Role:        role.String(),
		Count:       set.Len(),
		TotalWeight: set.TotalWeight(),
		Keywords:    kws,
	}
}

// RankingSummary aggregates a ranking
type RankingSummary struct {
	Candidates int            `json:"candidates"`
	Scored     int            `json:"scored"`
	Failed     int            `json:"failed"`
	Average    float64        `json:"average"`
	Min        int            `json:"min"`
	Max        int            `json:"max"`
	Bands      map[string]int `json:"bands"`
}

// RankingReport is the result of ranking several resumes against one job
type RankingReport struct {
	Job     string                  `json:"job"`
	Summary RankingSummary          `json:"summary"`
	Results []keywords.RankedResult `json:"results"`
}

// NewRankingReport summarizes ranked results
func NewRankingReport(job string, results []keywords.RankedResult) RankingReport {
	summary := RankingSummary{
		Candidates: len(results),
		Bands: map[string]int{
			keywords.BandStrong:  0,
			keywords.BandPartial: 0,
			keywords.BandWeak:    0,
		},
	}

	total := 0
	for _, r := range results {
		if r.Err != "" {
			summary.Failed++
			continue
		}
		score := r.Result.Score
		if summary.Scored == 0 || score < summary.Min {
			summary.Min = score
		}
		if score > summary.Max {
			summary.Max = score
		}
		summary.Scored++
		total += score
		summary.Bands[r.Band]++
	}
	if summary.Scored > 0 {
		summary.Average = float64(total) / float64(summary.Scored)
	}

	return RankingReport{Job: job, Summary: summary, Results: results}
}

// QueueRequest is a match job consumed from the message queue
type QueueRequest struct {
	ID             string `json:"id" validate:"required"`
	JobDescription string `json:"jobDescription" validate:"notblank"`
	ResumeText     string `json:"resumeText" validate:"notblank"`
}

// Validate validates the QueueRequest
func (r *QueueRequest) Validate() error {
	return validateStruct(r, map[string]string{
		"ID":             "id",
		"JobDescription": "jobDescription",
		"ResumeText":     "resumeText",
	})
}

// Queue result statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// QueueResult is published for every consumed QueueRequest
type QueueResult struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Result *MatchResponse `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// HealthResponse reports service health
type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Timestamp string         `json:"timestamp"`
	Details   map[string]any `json:"details,omitempty"`
}

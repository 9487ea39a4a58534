package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumatch/internal/keywords"
	"resumatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "MatchResponse", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchResponse", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "KeywordList", &KeywordListTextFormatter{})
	registry.RegisterFormatter("markdown", "KeywordList", &KeywordListMarkdownFormatter{})
	registry.RegisterFormatter("text", "RankingReport", &RankingTextFormatter{})
	registry.RegisterFormatter("markdown", "RankingReport", &RankingMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.MatchResponse:
		return "MatchResponse"
	case types.KeywordList:
		return "KeywordList"
	case types.RankingReport:
		return "RankingReport"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// MatchTextFormatter handles text formatting for match results
type MatchTextFormatter struct{}

func (mtf *MatchTextFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchResponse)
	if !ok {
		return "", fmt.Errorf("expected MatchResponse, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== KEYWORD MATCH ===\n")
	fmt.Fprintf(&output, "Score: %d/100 (%s)\n\n", result.Score, result.Band)
	fmt.Fprintf(&output, "Found (%d):\n%s\n\n", len(result.Found), joinOrNone(result.Found))
	fmt.Fprintf(&output, "Missing (%d):\n%s\n", len(result.Missing), joinOrNone(result.Missing))
	return output.String(), nil
}

func (mtf *MatchTextFormatter) SupportedType() string {
	return "MatchResponse"
}

// MatchMarkdownFormatter handles markdown formatting for match results
type MatchMarkdownFormatter struct{}

func (mmf *MatchMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(types.MatchResponse)
	if !ok {
		return "", fmt.Errorf("expected MatchResponse, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Keyword Match\n\n")
	fmt.Fprintf(&output, "**Score:** %d/100 (%s)\n\n", result.Score, result.Band)
	output.WriteString("## Found\n\n")
	writeMarkdownList(&output, result.Found)
	output.WriteString("\n## Missing\n\n")
	writeMarkdownList(&output, result.Missing)
	return output.String(), nil
}

func (mmf *MatchMarkdownFormatter) SupportedType() string {
	return "MatchResponse"
}

func writeMarkdownList(output *strings.Builder, items []string) {
	if len(items) == 0 {
		output.WriteString("_None_\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(output, "- %s\n", item)
	}
}

// KeywordListTextFormatter handles text formatting for extracted keywords
type KeywordListTextFormatter struct{}

func (ktf *KeywordListTextFormatter) Format(data any) (string, error) {
	list, ok := data.(types.KeywordList)
	if !ok {
		return "", fmt.Errorf("expected KeywordList, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== KEYWORDS ===\n")
	if list.Source != "" {
		fmt.Fprintf(&output, "Source: %s\n", list.Source)
	}
	fmt.Fprintf(&output, "Role: %s\n", list.Role)
	fmt.Fprintf(&output, "Count: %d (total weight %g)\n\n", list.Count, list.TotalWeight)
	for _, kw := range list.Keywords {
		fmt.Fprintf(&output, "%-30s %s\n", kw.Canonical, keywordNotes(kw))
	}
	return output.String(), nil
}

func (ktf *KeywordListTextFormatter) SupportedType() string {
	return "KeywordList"
}

func keywordNotes(kw keywords.Keyword) string {
	var notes []string
	if kw.Weight != keywords.DefaultWeight {
		notes = append(notes, fmt.Sprintf("weight %g", kw.Weight))
	}
	if kw.Phrase {
		notes = append(notes, "phrase")
	}
	if kw.Display != kw.Canonical {
		notes = append(notes, fmt.Sprintf("as %q", kw.Display))
	}
	return strings.Join(notes, ", ")
}

// KeywordListMarkdownFormatter handles markdown formatting for extracted keywords
type KeywordListMarkdownFormatter struct{}

func (kmf *KeywordListMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.(types.KeywordList)
	if !ok {
		return "", fmt.Errorf("expected KeywordList, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Keywords\n\n")
	if list.Source != "" {
		fmt.Fprintf(&output, "**Source:** %s\n\n", list.Source)
	}
	fmt.Fprintf(&output, "**Role:** %s | **Count:** %d | **Total weight:** %g\n\n", list.Role, list.Count, list.TotalWeight)
	output.WriteString("| Keyword | As written | Weight | Phrase |\n")
	output.WriteString("|---|---|---|---|\n")
	for _, kw := range list.Keywords {
		phrase := ""
		if kw.Phrase {
			phrase = "yes"
		}
		fmt.Fprintf(&output, "| %s | %s | %g | %s |\n", kw.Canonical, kw.Display, kw.Weight, phrase)
	}
	return output.String(), nil
}

func (kmf *KeywordListMarkdownFormatter) SupportedType() string {
	return "KeywordList"
}

// RankingTextFormatter handles text formatting for rankings
type RankingTextFormatter struct{}

func (rtf *RankingTextFormatter) Format(data any) (string, error) {
	report, ok := data.(types.RankingReport)
	if !ok {
		return "", fmt.Errorf("expected RankingReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== CANDIDATE RANKING ===\n")
	fmt.Fprintf(&output, "Job: %s\n", report.Job)
	writeSummaryText(&output, report.Summary)
	output.WriteString("\n")

	for _, r := range report.Results {
		if r.Err != "" {
			fmt.Fprintf(&output, "%3d. %-30s   error: %s\n", r.Rank, r.Candidate, r.Err)
			continue
		}
		fmt.Fprintf(&output, "%3d. %-30s %3d  %-7s missing: %s\n",
			r.Rank, r.Candidate, r.Result.Score, r.Band, joinOrNone(r.Result.Missing))
	}
	return output.String(), nil
}

func (rtf *RankingTextFormatter) SupportedType() string {
	return "RankingReport"
}

func writeSummaryText(output *strings.Builder, s types.RankingSummary) {
	fmt.Fprintf(output, "Candidates: %d (scored %d, failed %d)\n", s.Candidates, s.Scored, s.Failed)
	if s.Scored > 0 {
		fmt.Fprintf(output, "Scores: average %.1f, min %d, max %d\n", s.Average, s.Min, s.Max)
	}
	fmt.Fprintf(output, "Bands: strong %d, partial %d, weak %d\n",
		s.Bands[keywords.BandStrong], s.Bands[keywords.BandPartial], s.Bands[keywords.BandWeak])
}

// RankingMarkdownFormatter handles markdown formatting for rankings
type RankingMarkdownFormatter struct{}

func (rmf *RankingMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(types.RankingReport)
	if !ok {
		return "", fmt.Errorf("expected RankingReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Candidate Ranking\n\n")
	fmt.Fprintf(&output, "**Job:** %s\n\n", report.Job)
	output.WriteString("## Summary\n\n")
	writeSummaryText(&output, report.Summary)
	output.WriteString("\n## Results\n\n")
	output.WriteString("| Rank | Candidate | Score | Band | Missing |\n")
	output.WriteString("|---|---|---|---|---|\n")
	for _, r := range report.Results {
		if r.Err != "" {
			fmt.Fprintf(&output, "| %d | %s | - | - | error: %s |\n", r.Rank, r.Candidate, r.Err)
			continue
		}
		fmt.Fprintf(&output, "| %d | %s | %d | %s | %s |\n",
			r.Rank, r.Candidate, r.Result.Score, r.Band, joinOrNone(r.Result.Missing))
	}
	return output.String(), nil
}

func (rmf *RankingMarkdownFormatter) SupportedType() string {
	return "RankingReport"
}

var GlobalRegistry = NewFormatterRegistry()

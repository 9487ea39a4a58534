package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"resumatch/internal/keywords"
	"resumatch/internal/types"
	"resumatch/internal/utils"
)

const (
	summarySheet = "Summary"
	rankedSheet  = "Ranked"
)

var rankedHeaders = []string{"Rank", "Candidate", "Score", "Band", "Found", "Missing", "Error"}

// bandFills colours a ranked row by its band
var bandFills = map[string]string{
	keywords.BandStrong:  "C6EFCE",
	keywords.BandPartial: "FFEB9C",
	keywords.BandWeak:    "FFC7CE",
}

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// WriteRankingXLSX writes a Summary and a Ranked sheet for the ranking of
// candidates against jobTitle. A missing .xlsx extension is appended.
func WriteRankingXLSX(path, jobTitle string, ranked []keywords.RankedResult) (string, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		path += ".xlsx"
	}
	path = filepath.Clean(path)
	if err := utils.ValidateOutputFile(path); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return "", fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(rankedSheet); err != nil {
		return "", fmt.Errorf("failed to create ranked sheet: %w", err)
	}

	report := types.NewRankingReport(jobTitle, ranked)
	if err := writeSummary(f, report); err != nil {
		return "", fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeRanked(f, report.Results); err != nil {
		return "", fmt.Errorf("failed to create ranked sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", path, err)
	}
	return path, nil
}

func writeSummary(f *excelize.File, report types.RankingReport) error {
	if err := f.SetColWidth(summarySheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 50); err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	s := report.Summary
	rows := [][2]any{
		{"Job", report.Job},
		{"Generated", time.Now().Format("2006-01-02 15:04:05")},
		{"Candidates", s.Candidates},
		{"Scored", s.Scored},
		{"Failed", s.Failed},
		{"Average score", fmt.Sprintf("%.2f", s.Average)},
		{"Highest score", s.Max},
		{"Lowest score", s.Min},
		{"Strong (75-100)", s.Bands[keywords.BandStrong]},
		{"Partial (50-74)", s.Bands[keywords.BandPartial]},
		{"Weak (<50)", s.Bands[keywords.BandWeak]},
	}
	for i, r := range rows {
		label := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(summarySheet, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, label, label, labelStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), r[1]); err != nil {
			return err
		}
	}
	return nil
}

func writeRanked(f *excelize.File, results []keywords.RankedResult) error {
	widths := map[string]float64{"A": 8, "B": 30, "C": 10, "D": 10, "E": 50, "F": 50, "G": 30}
	for col, w := range widths {
		if err := f.SetColWidth(rankedSheet, col, col, w); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	})
	if err != nil {
		return err
	}
	bandStyles := make(map[string]int, len(bandFills))
	for band, color := range bandFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
			Border:    thinBorder,
		})
		if err != nil {
			return err
		}
		bandStyles[band] = style
	}

	for col, header := range rankedHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(rankedSheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(rankedSheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for i, r := range results {
		row := i + 2
		values := []any{
			r.Rank,
			r.Candidate,
			r.Result.Score,
			r.Band,
			strings.Join(r.Result.Found, ", "),
			strings.Join(r.Result.Missing, ", "),
			r.Err,
		}
		if err := f.SetSheetRow(rankedSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		if style, ok := bandStyles[r.Band]; ok {
			if err := f.SetCellStyle(rankedSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), style); err != nil {
				return err
			}
		}
	}

	if len(results) > 0 {
		if err := f.AutoFilter(rankedSheet, fmt.Sprintf("A1:G%d", len(results)+1), nil); err != nil {
			return err
		}
	}
	return f.SetPanes(rankedSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

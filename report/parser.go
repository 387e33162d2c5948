// ABOUTME: Parser for the sectioned text format produced by report generation
// ABOUTME: Splits the response into required sections and decodes markdown tables
package report

import (
	"fmt"
	"strings"

	"github.com/presencehq/radar/models"
)

// Section headers the generator is instructed to emit.
const (
	sectionComparison      = "COMPARISON TABLE"
	sectionSummary         = "SUMMARY TABLE"
	sectionAnalysis        = "ANALYSIS"
	sectionRecommendations = "RECOMMENDATIONS"
	sectionHashtags        = "HASHTAGS"
)

var requiredSections = []string{
	sectionComparison,
	sectionSummary,
	sectionAnalysis,
	sectionRecommendations,
	sectionHashtags,
}

// ParseReport decodes a generated response into a structured result. It
// fails with a descriptive error when any required section is missing or a
// table section contains no rows.
func ParseReport(text string) (*models.AnalysisResult, error) {
	sections := splitSections(text)

	for _, name := range requiredSections {
		if _, ok := sections[name]; !ok {
			return nil, fmt.Errorf("generator response is missing required section %q", name)
		}
	}

	comparison, err := parseTable(sections[sectionComparison])
	if err != nil {
		return nil, fmt.Errorf("failed to parse comparison table: %w", err)
	}
	summary, err := parseTable(sections[sectionSummary])
	if err != nil {
		return nil, fmt.Errorf("failed to parse summary table: %w", err)
	}

	result := &models.AnalysisResult{
		Analysis:        strings.TrimSpace(sections[sectionAnalysis]),
		Recommendations: strings.TrimSpace(sections[sectionRecommendations]),
		Hashtags:        strings.TrimSpace(sections[sectionHashtags]),
	}
	for _, row := range comparison {
		result.TableData = append(result.TableData, models.ComparisonRow{
			Channel:    row[0],
			Company:    cell(row, 1),
			Competitor: cell(row, 2),
		})
	}
	for _, row := range summary {
		result.SummaryTable = append(result.SummaryTable, models.SummaryRow{
			Channel:  row[0],
			Status:   cell(row, 1),
			Priority: cell(row, 2),
		})
	}
	return result, nil
}

// splitSections groups lines under "## HEADER" markers. Header matching is
// case-insensitive and tolerates trailing colons.
func splitSections(text string) map[string]string {
	sections := make(map[string]string)
	var current string
	var body strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = body.String()
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			flush()
			header := strings.TrimPrefix(trimmed, "## ")
			header = strings.TrimSuffix(strings.TrimSpace(header), ":")
			current = strings.ToUpper(header)
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()
	return sections
}

// parseTable decodes a markdown table into rows of cells, skipping the
// header and separator rows.
func parseTable(body string) ([][]string, error) {
	var rows [][]string
	seenHeader := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}
		cells := splitTableRow(trimmed)
		if len(cells) == 0 {
			continue
		}
		if isSeparatorRow(cells) {
			continue
		}
		if !seenHeader {
			seenHeader = true
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table has no data rows")
	}
	return rows, nil
}

func splitTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// ABOUTME: Tests for generator response parsing
// ABOUTME: Covers full reports, missing sections, empty tables, and header tolerance
package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencehq/radar/models"
)

const fullReport = `## COMPARISON TABLE

| Channel | Company | Competitor |
|---------|---------|------------|
| Instagram | active, 2k followers | active, 10k followers |
| Google Maps | unclaimed | claimed, 4.5 stars |

## SUMMARY TABLE

| Channel | Status | Priority |
|---------|--------|----------|
| Instagram | behind competitor | high |
| Google Maps | missing | high |

## ANALYSIS

The company trails its main competitor on every digital channel.

## RECOMMENDATIONS

Claim the Google Maps listing and post weekly on Instagram.

## HASHTAGS

#padariasol #saopaulo #padariaartesanal
`

func TestParseReportFull(t *testing.T) {
	result, err := ParseReport(fullReport)
	require.NoError(t, err)

	require.Len(t, result.TableData, 2)
	assert.Equal(t, "Instagram", result.TableData[0].Channel)
	assert.Equal(t, "active, 2k followers", result.TableData[0].Company)
	assert.Equal(t, "active, 10k followers", result.TableData[0].Competitor)

	require.Len(t, result.SummaryTable, 2)
	assert.Equal(t, "Google Maps", result.SummaryTable[1].Channel)
	assert.Equal(t, "missing", result.SummaryTable[1].Status)
	assert.Equal(t, "high", result.SummaryTable[1].Priority)

	assert.Contains(t, result.Analysis, "trails its main competitor")
	assert.Contains(t, result.Recommendations, "Google Maps listing")
	assert.Equal(t, "#padariasol #saopaulo #padariaartesanal", result.Hashtags)
}

func TestParseReportMissingSection(t *testing.T) {
	incomplete := `## COMPARISON TABLE

| Channel | Company | Competitor |
|---|---|---|
| Instagram | active | active |

## ANALYSIS

Some analysis.
`
	_, err := ParseReport(incomplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUMMARY TABLE")
}

func TestParseReportEmptyTable(t *testing.T) {
	noRows := `## COMPARISON TABLE

| Channel | Company | Competitor |
|---------|---------|------------|

## SUMMARY TABLE

| Channel | Status | Priority |
|---|---|---|
| Instagram | ok | low |

## ANALYSIS
x
## RECOMMENDATIONS
y
## HASHTAGS
#z
`
	_, err := ParseReport(noRows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comparison table")
}

func TestParseReportTolerantHeaders(t *testing.T) {
	// Lowercase headers with trailing colons still match
	report := `## Comparison Table:
| Channel | Company | Competitor |
|---|---|---|
| Instagram | active | active |
## Summary Table:
| Channel | Status | Priority |
|---|---|---|
| Instagram | ok | low |
## Analysis:
Fine.
## Recommendations:
Keep going.
## Hashtags:
#ok
`
	result, err := ParseReport(report)
	require.NoError(t, err)
	assert.Equal(t, "Fine.", result.Analysis)
	assert.Equal(t, "#ok", result.Hashtags)
}

func TestParseReportShortRows(t *testing.T) {
	// Rows with fewer cells than columns parse with empty trailing cells
	report := `## COMPARISON TABLE
| Channel | Company | Competitor |
|---|---|---|
| Instagram |
## SUMMARY TABLE
| Channel | Status | Priority |
|---|---|---|
| Instagram | ok | low |
## ANALYSIS
x
## RECOMMENDATIONS
y
## HASHTAGS
#z
`
	result, err := ParseReport(report)
	require.NoError(t, err)
	require.Len(t, result.TableData, 1)
	assert.Equal(t, "Instagram", result.TableData[0].Channel)
	assert.Empty(t, result.TableData[0].Company)
	assert.Empty(t, result.TableData[0].Competitor)
}

func TestBuildPromptNamesAllSections(t *testing.T) {
	prompt := BuildPrompt(models.AnalysisRequest{
		CompanyName: "Padaria Sol",
		City:        "São Paulo",
		State:       "SP",
		Keywords:    []string{"padaria", "pão artesanal"},
	})
	for _, section := range requiredSections {
		assert.Contains(t, prompt, section)
	}
	assert.Contains(t, prompt, "Padaria Sol")
	assert.Contains(t, prompt, "São Paulo, SP")
	assert.Contains(t, prompt, "padaria, pão artesanal")
}

// ABOUTME: Competitive presence report generation via the Gemini API
// ABOUTME: Builds the prompt, requests search-grounded output, and extracts citations
package report

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/presencehq/radar/models"
)

// DefaultModel is used when the config does not name one.
const DefaultModel = "gemini-2.5-flash"

// Generator produces structured competitive presence reports.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a generator backed by the Gemini API.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generator API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

// Generate runs one report request and parses the sectioned response.
// A response missing a required section is a permanent failure; retrying
// the same input will not succeed.
func (g *Generator) Generate(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	prompt := BuildPrompt(req)

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	parsed, err := ParseReport(result.Text())
	if err != nil {
		return nil, err
	}
	parsed.GroundingChunks = extractGroundingChunks(result)
	return parsed, nil
}

// BuildPrompt renders the generation prompt for a request.
func BuildPrompt(req models.AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("You are a digital marketing analyst. Research the current digital presence of the company below and its strongest local competitor.\n\n")
	fmt.Fprintf(&b, "Company: %s\n", req.CompanyName)
	if addr := formatAddress(req); addr != "" {
		fmt.Fprintf(&b, "Address: %s\n", addr)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	b.WriteString(`
Respond with exactly these five sections, each introduced by a "## " header:

## COMPARISON TABLE
A markdown table with columns Channel | Company | Competitor comparing presence per digital channel.

## SUMMARY TABLE
A markdown table with columns Channel | Status | Priority summarizing the company's presence gaps.

## ANALYSIS
Free-text analysis of the company's competitive position.

## RECOMMENDATIONS
Free-text, actionable recommendations ordered by priority.

## HASHTAGS
A single line of suggested hashtags.
`)
	return b.String()
}

func formatAddress(req models.AnalysisRequest) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{req.Street, req.City, req.State, req.CEP} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// extractGroundingChunks pulls web citations from the search-grounded
// response metadata when present.
func extractGroundingChunks(result *genai.GenerateContentResponse) []models.GroundingChunk {
	if result == nil || len(result.Candidates) == 0 {
		return nil
	}
	meta := result.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}
	var chunks []models.GroundingChunk
	for _, gc := range meta.GroundingChunks {
		if gc == nil || gc.Web == nil {
			continue
		}
		chunks = append(chunks, models.GroundingChunk{
			URI:   gc.Web.URI,
			Title: gc.Web.Title,
		})
	}
	return chunks
}

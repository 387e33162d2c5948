// ABOUTME: Wire-format record types for the remote document store
// ABOUTME: Bidirectional conversion between local camelCase models and remote snake_case records
package remote

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/presencehq/radar/models"
)

// ComparisonRowRecord mirrors models.ComparisonRow on the wire.
type ComparisonRowRecord struct {
	Channel    string `json:"channel"`
	Company    string `json:"company"`
	Competitor string `json:"competitor"`
}

// SummaryRowRecord mirrors models.SummaryRow on the wire.
type SummaryRowRecord struct {
	Channel  string `json:"channel"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// GroundingChunkRecord mirrors models.GroundingChunk on the wire.
type GroundingChunkRecord struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// AnalysisResultRecord is the remote shape of a generated report.
type AnalysisResultRecord struct {
	TableData       []ComparisonRowRecord  `json:"table_data"`
	SummaryTable    []SummaryRowRecord     `json:"summary_table"`
	Analysis        string                 `json:"analysis"`
	Recommendations string                 `json:"recommendations"`
	Hashtags        string                 `json:"hashtags"`
	GroundingChunks []GroundingChunkRecord `json:"grounding_chunks,omitempty"`
}

// AnalysisRecord is the remote shape of a saved analysis. Dates travel as
// RFC3339 strings; the store assigns ID on insert.
type AnalysisRecord struct {
	ID              string                 `json:"id,omitempty"`
	UserID          string                 `json:"user_id,omitempty"`
	CompanyName     string                 `json:"company_name"`
	AnalysisDate    string                 `json:"analysis_date"`
	TableData       []ComparisonRowRecord  `json:"table_data"`
	SummaryTable    []SummaryRowRecord     `json:"summary_table"`
	Analysis        string                 `json:"analysis"`
	Recommendations string                 `json:"recommendations"`
	Hashtags        string                 `json:"hashtags"`
	GroundingChunks []GroundingChunkRecord `json:"grounding_chunks,omitempty"`
}

// ServiceItemRecord is the remote shape of one proposal line item.
type ServiceItemRecord struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	ServiceType string `json:"service_type"`
}

// ProposalRecord is the remote shape of a proposal. The id is the
// client-assigned uuid, which makes upserts idempotent across replays.
type ProposalRecord struct {
	ID                  string                `json:"id"`
	UserID              string                `json:"user_id,omitempty"`
	AnalysisID          string                `json:"analysis_id"`
	ClientName          string                `json:"client_name"`
	Status              string                `json:"status"`
	CreatedAt           string                `json:"created_at"`
	Services            []ServiceItemRecord   `json:"services"`
	TotalOneTimeValue   int64                 `json:"total_one_time_value"`
	TotalRecurringValue int64                 `json:"total_recurring_value"`
	AnalysisResult      *AnalysisResultRecord `json:"analysis_result,omitempty"`
	ClientEmail         string                `json:"client_email,omitempty"`
	ContactName         string                `json:"contact_name,omitempty"`
	ContactPhone        string                `json:"contact_phone,omitempty"`
	TermsAndConditions  string                `json:"terms_and_conditions,omitempty"`
}

func comparisonRowsToRecords(rows []models.ComparisonRow) []ComparisonRowRecord {
	if rows == nil {
		return nil
	}
	out := make([]ComparisonRowRecord, len(rows))
	for i, r := range rows {
		out[i] = ComparisonRowRecord{Channel: r.Channel, Company: r.Company, Competitor: r.Competitor}
	}
	return out
}

func comparisonRowsFromRecords(rows []ComparisonRowRecord) []models.ComparisonRow {
	if rows == nil {
		return nil
	}
	out := make([]models.ComparisonRow, len(rows))
	for i, r := range rows {
		out[i] = models.ComparisonRow{Channel: r.Channel, Company: r.Company, Competitor: r.Competitor}
	}
	return out
}

func summaryRowsToRecords(rows []models.SummaryRow) []SummaryRowRecord {
	if rows == nil {
		return nil
	}
	out := make([]SummaryRowRecord, len(rows))
	for i, r := range rows {
		out[i] = SummaryRowRecord{Channel: r.Channel, Status: r.Status, Priority: r.Priority}
	}
	return out
}

func summaryRowsFromRecords(rows []SummaryRowRecord) []models.SummaryRow {
	if rows == nil {
		return nil
	}
	out := make([]models.SummaryRow, len(rows))
	for i, r := range rows {
		out[i] = models.SummaryRow{Channel: r.Channel, Status: r.Status, Priority: r.Priority}
	}
	return out
}

func groundingChunksToRecords(chunks []models.GroundingChunk) []GroundingChunkRecord {
	if chunks == nil {
		return nil
	}
	out := make([]GroundingChunkRecord, len(chunks))
	for i, c := range chunks {
		out[i] = GroundingChunkRecord{URI: c.URI, Title: c.Title}
	}
	return out
}

func groundingChunksFromRecords(chunks []GroundingChunkRecord) []models.GroundingChunk {
	if chunks == nil {
		return nil
	}
	out := make([]models.GroundingChunk, len(chunks))
	for i, c := range chunks {
		out[i] = models.GroundingChunk{URI: c.URI, Title: c.Title}
	}
	return out
}

// ResultToRecord converts a generated report to its remote shape.
func ResultToRecord(res models.AnalysisResult) AnalysisResultRecord {
	return AnalysisResultRecord{
		TableData:       comparisonRowsToRecords(res.TableData),
		SummaryTable:    summaryRowsToRecords(res.SummaryTable),
		Analysis:        res.Analysis,
		Recommendations: res.Recommendations,
		Hashtags:        res.Hashtags,
		GroundingChunks: groundingChunksToRecords(res.GroundingChunks),
	}
}

// ResultFromRecord converts a remote report shape back to the local model.
func ResultFromRecord(rec AnalysisResultRecord) models.AnalysisResult {
	return models.AnalysisResult{
		TableData:       comparisonRowsFromRecords(rec.TableData),
		SummaryTable:    summaryRowsFromRecords(rec.SummaryTable),
		Analysis:        rec.Analysis,
		Recommendations: rec.Recommendations,
		Hashtags:        rec.Hashtags,
		GroundingChunks: groundingChunksFromRecords(rec.GroundingChunks),
	}
}

// AnalysisToRecord converts a history item for the remote store. Pending
// items are sent without an id so the store assigns one.
func AnalysisToRecord(userID string, item models.AnalysisHistoryItem) AnalysisRecord {
	rec := AnalysisRecord{
		UserID:          userID,
		CompanyName:     item.CompanyName,
		AnalysisDate:    item.Date.UTC().Format(time.RFC3339),
		TableData:       comparisonRowsToRecords(item.TableData),
		SummaryTable:    summaryRowsToRecords(item.SummaryTable),
		Analysis:        item.Analysis,
		Recommendations: item.Recommendations,
		Hashtags:        item.Hashtags,
		GroundingChunks: groundingChunksToRecords(item.GroundingChunks),
	}
	if !models.IsPendingID(item.ID) {
		rec.ID = item.ID
	}
	return rec
}

// AnalysisFromRecord converts a remote record into the local model,
// re-hydrating the date field. Records coming back from the store are by
// definition synced.
func AnalysisFromRecord(rec AnalysisRecord) (models.AnalysisHistoryItem, error) {
	date, err := time.Parse(time.RFC3339, rec.AnalysisDate)
	if err != nil {
		return models.AnalysisHistoryItem{}, fmt.Errorf("failed to parse analysis_date: %w", err)
	}
	return models.AnalysisHistoryItem{
		ID:          rec.ID,
		CompanyName: rec.CompanyName,
		Date:        date,
		AnalysisResult: models.AnalysisResult{
			TableData:       comparisonRowsFromRecords(rec.TableData),
			SummaryTable:    summaryRowsFromRecords(rec.SummaryTable),
			Analysis:        rec.Analysis,
			Recommendations: rec.Recommendations,
			Hashtags:        rec.Hashtags,
			GroundingChunks: groundingChunksFromRecords(rec.GroundingChunks),
		},
		Status: models.StatusSynced,
	}, nil
}

// ProposalToRecord converts a proposal for the remote store.
func ProposalToRecord(userID string, p models.Proposal) ProposalRecord {
	var services []ServiceItemRecord
	if p.Services != nil {
		services = make([]ServiceItemRecord, len(p.Services))
		for i, svc := range p.Services {
			services[i] = ServiceItemRecord{
				ID:          svc.ID.String(),
				Description: svc.Description,
				Price:       svc.Price,
				ServiceType: svc.Type,
			}
		}
	}
	result := ResultToRecord(p.AnalysisResult)
	return ProposalRecord{
		ID:                  p.ID.String(),
		UserID:              userID,
		AnalysisID:          p.AnalysisID,
		ClientName:          p.ClientName,
		Status:              p.Status,
		CreatedAt:           p.CreatedAt.UTC().Format(time.RFC3339),
		Services:            services,
		TotalOneTimeValue:   p.TotalOneTimeValue,
		TotalRecurringValue: p.TotalRecurringValue,
		AnalysisResult:      &result,
		ClientEmail:         p.ClientEmail,
		ContactName:         p.ContactName,
		ContactPhone:        p.ContactPhone,
		TermsAndConditions:  p.TermsAndConditions,
	}
}

// ProposalFromRecord converts a remote record into the local model.
func ProposalFromRecord(rec ProposalRecord) (models.Proposal, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("failed to parse proposal id: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	var services []models.ProposalServiceItem
	if rec.Services != nil {
		services = make([]models.ProposalServiceItem, len(rec.Services))
		for i, svc := range rec.Services {
			svcID, err := uuid.Parse(svc.ID)
			if err != nil {
				return models.Proposal{}, fmt.Errorf("failed to parse service id: %w", err)
			}
			services[i] = models.ProposalServiceItem{
				ID:          svcID,
				Description: svc.Description,
				Price:       svc.Price,
				Type:        svc.ServiceType,
			}
		}
	}
	p := models.Proposal{
		ID:                  id,
		AnalysisID:          rec.AnalysisID,
		ClientName:          rec.ClientName,
		Status:              rec.Status,
		CreatedAt:           createdAt,
		Services:            services,
		TotalOneTimeValue:   rec.TotalOneTimeValue,
		TotalRecurringValue: rec.TotalRecurringValue,
		ClientEmail:         rec.ClientEmail,
		ContactName:         rec.ContactName,
		ContactPhone:        rec.ContactPhone,
		TermsAndConditions:  rec.TermsAndConditions,
	}
	if rec.AnalysisResult != nil {
		p.AnalysisResult = ResultFromRecord(*rec.AnalysisResult)
	}
	return p, nil
}

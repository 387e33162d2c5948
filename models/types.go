// ABOUTME: Data models for analysis reports, proposals, and sync actions
// ABOUTME: Defines AnalysisHistoryItem, Proposal, SyncAction structs and lifecycle constants
package models

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// AnalysisRequest is the form input that drives report generation.
type AnalysisRequest struct {
	CompanyName string   `json:"companyName"`
	Street      string   `json:"street,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	CEP         string   `json:"cep,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

// ComparisonRow is one row of the channel-by-channel comparison table.
type ComparisonRow struct {
	Channel    string `json:"channel"`
	Company    string `json:"company"`
	Competitor string `json:"competitor"`
}

// SummaryRow is one row of the presence summary table.
type SummaryRow struct {
	Channel  string `json:"channel"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// GroundingChunk is a web citation attached to a generated report.
type GroundingChunk struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// AnalysisResult holds the structured output of report generation.
type AnalysisResult struct {
	TableData       []ComparisonRow  `json:"tableData"`
	SummaryTable    []SummaryRow     `json:"summaryTable"`
	Analysis        string           `json:"analysis"`
	Recommendations string           `json:"recommendations"`
	Hashtags        string           `json:"hashtags"`
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
}

// Analysis sync status constants.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
)

// PendingIDPrefix marks locally created analyses not yet confirmed by the
// remote store.
const PendingIDPrefix = "pending_"

// AnalysisHistoryItem is one saved report. ID is a pending_<ulid> temporary
// id until the remote store confirms the create, then the server id.
type AnalysisHistoryItem struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"companyName"`
	Date        time.Time `json:"date"`
	AnalysisResult
	Status string `json:"status"`
}

// Result returns the embedded analysis result by value.
func (a *AnalysisHistoryItem) Result() AnalysisResult {
	return a.AnalysisResult
}

// IsPending reports whether the item still carries a temporary id.
func (a *AnalysisHistoryItem) IsPending() bool {
	return IsPendingID(a.ID)
}

// IsPendingID reports whether id is a temporary, locally assigned id.
func IsPendingID(id string) bool {
	return strings.HasPrefix(id, PendingIDPrefix)
}

// Proposal status constants.
const (
	ProposalDraft    = "Draft"
	ProposalSent     = "Sent"
	ProposalAccepted = "Accepted"
	ProposalDeclined = "Declined"
)

// Service item type constants.
const (
	ServiceOneTime   = "one-time"
	ServiceRecurring = "recurring"
)

// ProposalServiceItem is a single priced line item on a proposal.
type ProposalServiceItem struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Price       int64     `json:"price"` // in cents
	Type        string    `json:"type"`
}

// Proposal is a priced service proposal built from an analysis. Its uuid is
// assigned at creation and never rewritten, so sync is a pure upsert.
type Proposal struct {
	ID                  uuid.UUID             `json:"id"`
	AnalysisID          string                `json:"analysisId"`
	ClientName          string                `json:"clientName"`
	Status              string                `json:"status"`
	CreatedAt           time.Time             `json:"createdAt"`
	Services            []ProposalServiceItem `json:"services"`
	TotalOneTimeValue   int64                 `json:"totalOneTimeValue"`
	TotalRecurringValue int64                 `json:"totalRecurringValue"`
	AnalysisResult      AnalysisResult        `json:"analysisResult"`
	ClientEmail         string                `json:"clientEmail,omitempty"`
	ContactName         string                `json:"contactName,omitempty"`
	ContactPhone        string                `json:"contactPhone,omitempty"`
	TermsAndConditions  string                `json:"termsAndConditions,omitempty"`
}

// RecalculateTotals recomputes both totals from the service items.
func (p *Proposal) RecalculateTotals() {
	p.TotalOneTimeValue = 0
	p.TotalRecurringValue = 0
	for _, svc := range p.Services {
		switch svc.Type {
		case ServiceRecurring:
			p.TotalRecurringValue += svc.Price
		default:
			p.TotalOneTimeValue += svc.Price
		}
	}
}

// Validate checks required fields before a proposal is persisted or queued.
func (p *Proposal) Validate() error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("proposal id is required")
	}
	if p.ClientName == "" {
		return fmt.Errorf("client name is required")
	}
	switch p.Status {
	case ProposalDraft, ProposalSent, ProposalAccepted, ProposalDeclined:
	default:
		return fmt.Errorf("invalid proposal status: %q", p.Status)
	}
	for _, svc := range p.Services {
		if svc.Price < 0 {
			return fmt.Errorf("service %q has negative price", svc.Description)
		}
	}
	return nil
}

// Sync action type constants.
const (
	ActionCreateAnalysis = "create_analysis"
	ActionUpdateAnalysis = "update_analysis"
	ActionDeleteAnalysis = "delete_analysis"
	ActionUpsertProposal = "upsert_proposal"
	ActionDeleteProposal = "delete_proposal"
)

// SyncAction is one queued mutation awaiting replay against the remote
// store. ID is a ULID, unique even for actions created in the same
// millisecond, and is the removal key after processing.
type SyncAction struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	EntityID   string          `json:"entityId"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// CreateAnalysisPayload carries the original form input plus the temporary
// id the local cache entry was filed under.
type CreateAnalysisPayload struct {
	TempID  string          `json:"tempId"`
	Request AnalysisRequest `json:"request"`
}

// UpdateAnalysisPayload patches the mutable fields of a history item.
type UpdateAnalysisPayload struct {
	ID          string `json:"id"`
	CompanyName string `json:"companyName"`
}

// DeleteAnalysisPayload identifies a remote history record to delete.
type DeleteAnalysisPayload struct {
	ID string `json:"id"`
}

// UpsertProposalPayload carries the full proposal to insert-or-replace.
type UpsertProposalPayload struct {
	Proposal Proposal `json:"proposal"`
}

// DeleteProposalPayload identifies a remote proposal to delete.
type DeleteProposalPayload struct {
	ID uuid.UUID `json:"id"`
}

// NewSyncAction builds a queued action with a fresh ULID and the payload
// marshaled in place.
func NewSyncAction(actionType, entityID string, payload interface{}) (SyncAction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return SyncAction{}, fmt.Errorf("failed to marshal %s payload: %w", actionType, err)
	}
	return SyncAction{
		ID:         NewActionID(),
		Type:       actionType,
		EntityID:   entityID,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// Shared entropy keeps ids strictly monotonic across the enqueue path.
// The monotonic reader is not safe for concurrent use on its own.
var (
	actionEntropyMu sync.Mutex
	actionEntropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewActionID generates a new ULID for sync action identification.
func NewActionID() string {
	actionEntropyMu.Lock()
	defer actionEntropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), actionEntropy).String()
}

// NewPendingID generates a temporary id for a not-yet-synced analysis.
func NewPendingID() string {
	return PendingIDPrefix + NewActionID()
}

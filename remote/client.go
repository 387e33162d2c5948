// ABOUTME: HTTP client for the remote document store
// ABOUTME: Generic select/insert/update/upsert/delete scoped by owning user id
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/presencehq/radar/models"
)

// ErrNotFound is returned when the store reports no record for an id.
var ErrNotFound = errors.New("record not found")

// Client talks to the remote document store over its REST interface.
// All operations are scoped to the authenticated user.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client
}

// NewClient creates a store client. A nil token source produces an
// unauthenticated client, which the dev store accepts.
func NewClient(baseURL, userID string, ts oauth2.TokenSource) *Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if ts != nil {
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		userID:  userID,
		http:    httpClient,
	}
}

// UserID returns the user the client is scoped to.
func (c *Client) UserID() string {
	return c.userID
}

// HealthURL returns the endpoint the connectivity monitor probes.
func (c *Client) HealthURL() string {
	return c.baseURL + "/health"
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach remote store: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote store returned %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) scoped(path string) string {
	return path + "?user_id=" + url.QueryEscape(c.userID)
}

// SelectAnalyses fetches the complete analysis history for the user.
func (c *Client) SelectAnalyses(ctx context.Context) ([]models.AnalysisHistoryItem, error) {
	var recs []AnalysisRecord
	if err := c.do(ctx, http.MethodGet, c.scoped("/analyses"), nil, &recs); err != nil {
		return nil, err
	}
	items := make([]models.AnalysisHistoryItem, 0, len(recs))
	for _, rec := range recs {
		item, err := AnalysisFromRecord(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// InsertAnalysis stores a new history record and returns the record as
// confirmed by the store, including its server-assigned id.
func (c *Client) InsertAnalysis(ctx context.Context, item models.AnalysisHistoryItem) (models.AnalysisHistoryItem, error) {
	rec := AnalysisToRecord(c.userID, item)
	var saved AnalysisRecord
	if err := c.do(ctx, http.MethodPost, "/analyses", rec, &saved); err != nil {
		return models.AnalysisHistoryItem{}, err
	}
	return AnalysisFromRecord(saved)
}

// UpdateAnalysisName patches the display name of a remote record.
func (c *Client) UpdateAnalysisName(ctx context.Context, id, companyName string) error {
	patch := map[string]string{"company_name": companyName}
	return c.do(ctx, http.MethodPatch, c.scoped("/analyses/"+url.PathEscape(id)), patch, nil)
}

// DeleteAnalysis removes a remote record by id.
func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.scoped("/analyses/"+url.PathEscape(id)), nil, nil)
}

// SelectProposals fetches the complete proposal list for the user.
func (c *Client) SelectProposals(ctx context.Context) ([]models.Proposal, error) {
	var recs []ProposalRecord
	if err := c.do(ctx, http.MethodGet, c.scoped("/proposals"), nil, &recs); err != nil {
		return nil, err
	}
	proposals := make([]models.Proposal, 0, len(recs))
	for _, rec := range recs {
		p, err := ProposalFromRecord(rec)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// UpsertProposal inserts or replaces a proposal keyed by its client id.
// Replaying the same upsert is a no-op on the store side.
func (c *Client) UpsertProposal(ctx context.Context, p models.Proposal) error {
	rec := ProposalToRecord(c.userID, p)
	return c.do(ctx, http.MethodPut, "/proposals/"+url.PathEscape(p.ID.String()), rec, nil)
}

// DeleteProposal removes a remote proposal by id.
func (c *Client) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, c.scoped("/proposals/"+url.PathEscape(id.String())), nil, nil)
}

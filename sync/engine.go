// ABOUTME: Reconciliation engine that drains queued mutations and pulls remote truth
// ABOUTME: Replays actions in order, stops on first failure, and rewrites temporary ids
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/presencehq/radar/models"
	"github.com/presencehq/radar/remote"
)

// RemoteStore is the engine's view of the remote document store, scoped to
// the authenticated user. Implemented by remote.Client and by test fakes.
type RemoteStore interface {
	SelectAnalyses(ctx context.Context) ([]models.AnalysisHistoryItem, error)
	InsertAnalysis(ctx context.Context, item models.AnalysisHistoryItem) (models.AnalysisHistoryItem, error)
	UpdateAnalysisName(ctx context.Context, id, companyName string) error
	DeleteAnalysis(ctx context.Context, id string) error
	SelectProposals(ctx context.Context) ([]models.Proposal, error)
	UpsertProposal(ctx context.Context, p models.Proposal) error
	DeleteProposal(ctx context.Context, id uuid.UUID) error
}

// ReportGenerator produces the analysis content for queued creates.
type ReportGenerator interface {
	Generate(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// Caches is the engine's access to the local entity caches. The caches are
// owned by the application session; the engine borrows them.
type Caches interface {
	SetHistory(items []models.AnalysisHistoryItem)
	SetProposals(proposals []models.Proposal)
	ReplacePending(tempID string, item models.AnalysisHistoryItem)
}

// Status is a point-in-time view of the sync subsystem for UI surfaces.
type Status struct {
	Online    bool      `json:"online"`
	Syncing   bool      `json:"syncing"`
	Pending   int       `json:"pending"`
	LastSync  time.Time `json:"lastSync"`
	LastError string    `json:"lastError,omitempty"`
}

// Engine reconciles local optimistic state with the remote store. All
// collaborators are injected; the engine owns no lifecycle.
type Engine struct {
	remote    RemoteStore
	generator ReportGenerator
	caches    Caches
	queue     *Queue
	monitor   *Monitor
	userID    string

	syncMu sync.Mutex // single-flight guard for Sync

	stateMu  sync.Mutex
	syncing  bool
	lastSync time.Time
	lastErr  error
}

// NewEngine wires a reconciliation engine from its collaborators.
func NewEngine(store RemoteStore, generator ReportGenerator, caches Caches, queue *Queue, monitor *Monitor, userID string) *Engine {
	return &Engine{
		remote:    store,
		generator: generator,
		caches:    caches,
		queue:     queue,
		monitor:   monitor,
		userID:    userID,
	}
}

// Sync drains the queue and, when the drain fully succeeds, pulls remote
// truth into the caches. Concurrent invocations collapse into one: the
// trigger path is never re-entrant.
func (e *Engine) Sync(ctx context.Context) error {
	if !e.syncMu.TryLock() {
		return nil
	}
	defer e.syncMu.Unlock()

	e.setSyncing(true)
	defer e.setSyncing(false)

	if err := e.Drain(ctx); err != nil {
		e.recordError(err)
		return err
	}
	if err := e.Pull(ctx); err != nil {
		e.recordError(err)
		return err
	}
	e.recordSuccess()
	return nil
}

// HandleConnectivityChange is the monitor subscription entry point. Errors
// are logged, never propagated, so a bad action cannot crash the trigger
// path.
func (e *Engine) HandleConnectivityChange(online bool) {
	if !online {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := e.Sync(ctx); err != nil {
			log.Printf("sync: reconcile after reconnect failed: %v", err)
		}
	}()
}

// Drain replays queued actions strictly in snapshot order. The first
// failing action stops the drain; everything from it onward stays queued
// for the next attempt, while actions processed before it are removed.
func (e *Engine) Drain(ctx context.Context) error {
	if !e.monitor.Online() {
		return nil
	}
	if e.userID == "" {
		return nil
	}
	snapshot := e.queue.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}

	processed := make(map[string]struct{}, len(snapshot))
	rewrites := make(map[string]string)
	var drainErr error

	for _, action := range snapshot {
		if err := e.apply(ctx, action, rewrites); err != nil {
			drainErr = fmt.Errorf("failed to replay %s action %s: %w", action.Type, action.ID, err)
			break
		}
		processed[action.ID] = struct{}{}
	}

	e.queue.RemoveProcessed(processed)

	if drainErr != nil {
		log.Printf("sync: drain halted with %d of %d actions applied: %v", len(processed), len(snapshot), drainErr)
		return drainErr
	}
	return nil
}

// apply dispatches one queued action against the remote store.
func (e *Engine) apply(ctx context.Context, action models.SyncAction, rewrites map[string]string) error {
	switch action.Type {
	case models.ActionCreateAnalysis:
		return e.applyCreateAnalysis(ctx, action, rewrites)
	case models.ActionUpdateAnalysis:
		return e.applyUpdateAnalysis(ctx, action, rewrites)
	case models.ActionDeleteAnalysis:
		return e.applyDeleteAnalysis(ctx, action, rewrites)
	case models.ActionUpsertProposal:
		return e.applyUpsertProposal(ctx, action)
	case models.ActionDeleteProposal:
		return e.applyDeleteProposal(ctx, action)
	default:
		// Skip unknown action types for forward compatibility.
		log.Printf("sync: skipping unknown action type %q", action.Type)
		return nil
	}
}

// applyCreateAnalysis regenerates the report from the stored form payload,
// inserts the full record, and splices the server-confirmed item into the
// cache in place of the temporary id.
func (e *Engine) applyCreateAnalysis(ctx context.Context, action models.SyncAction, rewrites map[string]string) error {
	var payload models.CreateAnalysisPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal create payload: %w", err)
	}

	result, err := e.generator.Generate(ctx, payload.Request)
	if err != nil {
		return err
	}

	item := models.AnalysisHistoryItem{
		ID:             payload.TempID,
		CompanyName:    payload.Request.CompanyName,
		Date:           action.EnqueuedAt,
		AnalysisResult: *result,
		Status:         models.StatusPending,
	}

	saved, err := e.remote.InsertAnalysis(ctx, item)
	if err != nil {
		return err
	}

	rewrites[payload.TempID] = saved.ID
	e.queue.RewriteAnalysisID(payload.TempID, saved.ID)
	e.caches.ReplacePending(payload.TempID, saved)
	return nil
}

func (e *Engine) applyUpdateAnalysis(ctx context.Context, action models.SyncAction, rewrites map[string]string) error {
	var payload models.UpdateAnalysisPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal update payload: %w", err)
	}
	id := resolveID(payload.ID, rewrites)
	if models.IsPendingID(id) {
		return fmt.Errorf("analysis %s was never confirmed by the remote store", id)
	}
	return e.remote.UpdateAnalysisName(ctx, id, payload.CompanyName)
}

func (e *Engine) applyDeleteAnalysis(ctx context.Context, action models.SyncAction, rewrites map[string]string) error {
	var payload models.DeleteAnalysisPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal delete payload: %w", err)
	}
	id := resolveID(payload.ID, rewrites)
	err := e.remote.DeleteAnalysis(ctx, id)
	if errors.Is(err, remote.ErrNotFound) {
		// Already gone: the delete landed on a previous attempt whose
		// queue removal did not persist. Replay is a no-op.
		return nil
	}
	return err
}

func (e *Engine) applyUpsertProposal(ctx context.Context, action models.SyncAction) error {
	var payload models.UpsertProposalPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal upsert payload: %w", err)
	}
	return e.remote.UpsertProposal(ctx, payload.Proposal)
}

func (e *Engine) applyDeleteProposal(ctx context.Context, action models.SyncAction) error {
	var payload models.DeleteProposalPayload
	if err := json.Unmarshal(action.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal delete payload: %w", err)
	}
	err := e.remote.DeleteProposal(ctx, payload.ID)
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}

// Pull fetches authoritative remote state and overwrites the local caches
// wholesale. Last writer wins: the drain has already flushed local intent.
func (e *Engine) Pull(ctx context.Context) error {
	if !e.monitor.Online() || e.userID == "" {
		return nil
	}

	history, err := e.remote.SelectAnalyses(ctx)
	if err != nil {
		return fmt.Errorf("failed to pull analyses: %w", err)
	}
	proposals, err := e.remote.SelectProposals(ctx)
	if err != nil {
		return fmt.Errorf("failed to pull proposals: %w", err)
	}

	e.caches.SetHistory(history)
	e.caches.SetProposals(proposals)
	return nil
}

// Status reports the current sync state for UI surfaces.
func (e *Engine) Status() Status {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	st := Status{
		Online:   e.monitor.Online(),
		Syncing:  e.syncing,
		Pending:  e.queue.Len(),
		LastSync: e.lastSync,
	}
	if e.lastErr != nil {
		st.LastError = e.lastErr.Error()
	}
	return st
}

func resolveID(id string, rewrites map[string]string) string {
	if serverID, ok := rewrites[id]; ok {
		return serverID
	}
	return id
}

func (e *Engine) setSyncing(v bool) {
	e.stateMu.Lock()
	e.syncing = v
	e.stateMu.Unlock()
}

func (e *Engine) recordError(err error) {
	e.stateMu.Lock()
	e.lastErr = err
	e.stateMu.Unlock()
}

func (e *Engine) recordSuccess() {
	e.stateMu.Lock()
	e.lastErr = nil
	e.lastSync = time.Now()
	e.stateMu.Unlock()
}

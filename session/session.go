// ABOUTME: Application session owning the local entity caches
// ABOUTME: Applies optimistic mutations, persists them, and queues sync actions while offline
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/presencehq/radar/kv"
	"github.com/presencehq/radar/models"
	"github.com/presencehq/radar/remote"
	radarsync "github.com/presencehq/radar/sync"
)

// Session owns the analysis history and proposal caches for one
// authenticated user. Mutations update the caches optimistically, persist
// them, and either hit the remote store directly (online) or queue a sync
// action (offline). The reconciliation engine borrows the caches through
// the sync.Caches interface.
type Session struct {
	userID    string
	store     *kv.Store
	queue     *radarsync.Queue
	remote    radarsync.RemoteStore
	generator radarsync.ReportGenerator
	monitor   *radarsync.Monitor

	mu        sync.Mutex
	history   []models.AnalysisHistoryItem
	proposals []models.Proposal
}

// New wires a session from its collaborators. Call Load before use.
func New(store *kv.Store, queue *radarsync.Queue, remoteStore radarsync.RemoteStore, generator radarsync.ReportGenerator, monitor *radarsync.Monitor, userID string) *Session {
	return &Session{
		userID:    userID,
		store:     store,
		queue:     queue,
		remote:    remoteStore,
		generator: generator,
		monitor:   monitor,
	}
}

// UserID returns the authenticated user the session belongs to.
func (s *Session) UserID() string {
	return s.userID
}

// Load restores the persisted caches from the durable store.
func (s *Session) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.store.GetJSON(kv.KeyHistory, &s.history); err != nil {
		return err
	}
	if _, err := s.store.GetJSON(kv.KeyProposals, &s.proposals); err != nil {
		return err
	}
	return nil
}

// History returns a copy of the analysis history cache.
func (s *Session) History() []models.AnalysisHistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AnalysisHistoryItem, len(s.history))
	copy(out, s.history)
	return out
}

// Proposals returns a copy of the proposal cache.
func (s *Session) Proposals() []models.Proposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Proposal, len(s.proposals))
	copy(out, s.proposals)
	return out
}

// Analysis looks up a history item by id.
func (s *Session) Analysis(id string) (models.AnalysisHistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.history {
		if item.ID == id {
			return item, true
		}
	}
	return models.AnalysisHistoryItem{}, false
}

// Proposal looks up a proposal by id.
func (s *Session) Proposal(id uuid.UUID) (models.Proposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.proposals {
		if p.ID == id {
			return p, true
		}
	}
	return models.Proposal{}, false
}

// SetHistory overwrites the history cache wholesale (pull phase).
func (s *Session) SetHistory(items []models.AnalysisHistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = items
	s.persistHistoryLocked()
}

// SetProposals overwrites the proposal cache wholesale (pull phase).
func (s *Session) SetProposals(proposals []models.Proposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals = proposals
	s.persistProposalsLocked()
}

// ReplacePending splices a server-confirmed item into the cache at the
// position of its temporary id.
func (s *Session) ReplacePending(tempID string, item models.AnalysisHistoryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.history {
		if s.history[i].ID == tempID {
			s.history[i] = item
			s.persistHistoryLocked()
			return
		}
	}
	// The pending entry was removed locally while the drain was in
	// flight; keep the confirmed record rather than dropping it.
	s.history = append(s.history, item)
	s.persistHistoryLocked()
}

// CreateAnalysis generates and stores a new report. Online, the report is
// generated immediately and a generator failure surfaces to the caller.
// Offline, a pending skeleton enters the cache and the form payload is
// queued for replay.
func (s *Session) CreateAnalysis(ctx context.Context, req models.AnalysisRequest) (models.AnalysisHistoryItem, error) {
	if req.CompanyName == "" {
		return models.AnalysisHistoryItem{}, fmt.Errorf("company name is required")
	}

	if s.monitor.Online() {
		result, err := s.generator.Generate(ctx, req)
		if err != nil {
			return models.AnalysisHistoryItem{}, err
		}
		item := models.AnalysisHistoryItem{
			CompanyName:    req.CompanyName,
			Date:           time.Now().UTC(),
			AnalysisResult: *result,
			Status:         models.StatusPending,
		}
		saved, err := s.remote.InsertAnalysis(ctx, item)
		if err != nil {
			// Store unreachable mid-session: keep the intent and let the
			// next drain replay it.
			log.Printf("session: insert failed, queueing create: %v", err)
			return s.queueCreate(req)
		}
		s.mu.Lock()
		s.history = append([]models.AnalysisHistoryItem{saved}, s.history...)
		s.persistHistoryLocked()
		s.mu.Unlock()
		return saved, nil
	}

	return s.queueCreate(req)
}

func (s *Session) queueCreate(req models.AnalysisRequest) (models.AnalysisHistoryItem, error) {
	item := models.AnalysisHistoryItem{
		ID:          models.NewPendingID(),
		CompanyName: req.CompanyName,
		Date:        time.Now().UTC(),
		Status:      models.StatusPending,
	}
	action, err := models.NewSyncAction(models.ActionCreateAnalysis, item.ID, models.CreateAnalysisPayload{
		TempID:  item.ID,
		Request: req,
	})
	if err != nil {
		return models.AnalysisHistoryItem{}, err
	}

	s.mu.Lock()
	s.history = append([]models.AnalysisHistoryItem{item}, s.history...)
	s.persistHistoryLocked()
	s.mu.Unlock()

	s.queue.Enqueue(action)
	return item, nil
}

// RenameAnalysis changes the display name of a history item, the only
// mutable field after creation.
func (s *Session) RenameAnalysis(ctx context.Context, id, companyName string) error {
	if companyName == "" {
		return fmt.Errorf("company name is required")
	}

	s.mu.Lock()
	found := false
	previous := ""
	for i := range s.history {
		if s.history[i].ID == id {
			previous = s.history[i].CompanyName
			s.history[i].CompanyName = companyName
			found = true
			break
		}
	}
	if found {
		s.persistHistoryLocked()
	}
	s.mu.Unlock()
	if !found {
		return fmt.Errorf("analysis %s not found", id)
	}

	// A stale queued rename must not outlive this one: replaying it on a
	// later drain would revert the newer name on the remote.
	s.queue.Supersede(models.ActionUpdateAnalysis, id)

	if s.monitor.Online() && !models.IsPendingID(id) {
		err := s.remote.UpdateAnalysisName(ctx, id, companyName)
		if err == nil {
			return nil
		}
		if errors.Is(err, remote.ErrNotFound) {
			// The record is gone remotely; undo the optimistic rename so
			// the cache does not diverge until the next pull.
			s.mu.Lock()
			for i := range s.history {
				if s.history[i].ID == id {
					s.history[i].CompanyName = previous
					break
				}
			}
			s.persistHistoryLocked()
			s.mu.Unlock()
			return err
		}
		log.Printf("session: rename failed, queueing update: %v", err)
	}

	// Pending ids resolve during the drain that confirms the create.
	action, err := models.NewSyncAction(models.ActionUpdateAnalysis, id, models.UpdateAnalysisPayload{
		ID:          id,
		CompanyName: companyName,
	})
	if err != nil {
		return err
	}
	s.queue.Enqueue(action)
	return nil
}

// DeleteAnalysis removes a history item. Deleting an item that is still
// pending cancels its queued create instead of issuing a remote delete.
func (s *Session) DeleteAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	kept := s.history[:0]
	for _, item := range s.history {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	s.history = kept
	s.persistHistoryLocked()
	s.mu.Unlock()

	if models.IsPendingID(id) {
		s.queue.Supersede(models.ActionCreateAnalysis, id)
		s.queue.Supersede(models.ActionUpdateAnalysis, id)
		return nil
	}

	// A queued rename for this id is moot once it is deleted.
	s.queue.Supersede(models.ActionUpdateAnalysis, id)

	if s.monitor.Online() {
		err := s.remote.DeleteAnalysis(ctx, id)
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		log.Printf("session: delete failed, queueing: %v", err)
	}

	action, err := models.NewSyncAction(models.ActionDeleteAnalysis, id, models.DeleteAnalysisPayload{ID: id})
	if err != nil {
		return err
	}
	s.queue.Enqueue(action)
	return nil
}

// SaveProposal inserts or replaces a proposal in the cache and remote
// store. Totals are recomputed from the service items before validation.
func (s *Session) SaveProposal(ctx context.Context, p models.Proposal) error {
	p.RecalculateTotals()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.proposals {
		if s.proposals[i].ID == p.ID {
			s.proposals[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		s.proposals = append(s.proposals, p)
	}
	s.persistProposalsLocked()
	s.mu.Unlock()

	// Drop any stale queued upsert before deciding how this one travels;
	// replaying an older version after a successful direct save would
	// revert the proposal on the remote.
	s.queue.Supersede(models.ActionUpsertProposal, p.ID.String())

	if s.monitor.Online() {
		if err := s.remote.UpsertProposal(ctx, p); err == nil {
			return nil
		} else {
			log.Printf("session: upsert failed, queueing: %v", err)
		}
	}

	action, err := models.NewSyncAction(models.ActionUpsertProposal, p.ID.String(), models.UpsertProposalPayload{Proposal: p})
	if err != nil {
		return err
	}
	s.queue.Enqueue(action)
	return nil
}

// DeleteProposal removes a proposal from the cache and remote store. Any
// queued upsert for the same proposal is dropped first.
func (s *Session) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	kept := s.proposals[:0]
	for _, p := range s.proposals {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.proposals = kept
	s.persistProposalsLocked()
	s.mu.Unlock()

	s.queue.Supersede(models.ActionUpsertProposal, id.String())

	if s.monitor.Online() {
		err := s.remote.DeleteProposal(ctx, id)
		if err == nil || errors.Is(err, remote.ErrNotFound) {
			return nil
		}
		log.Printf("session: proposal delete failed, queueing: %v", err)
	}

	// The drain treats a missing remote record as success, so deleting a
	// proposal that never reached the store replays harmlessly.

	action, err := models.NewSyncAction(models.ActionDeleteProposal, id.String(), models.DeleteProposalPayload{ID: id})
	if err != nil {
		return err
	}
	s.queue.Enqueue(action)
	return nil
}

// persistHistoryLocked writes the history cache through to durable
// storage. Failure is degraded-but-non-fatal: the session keeps working in
// memory but will not survive a reload.
func (s *Session) persistHistoryLocked() {
	if err := s.store.SetJSON(kv.KeyHistory, s.history); err != nil {
		log.Printf("session: failed to persist history: %v", err)
	}
}

func (s *Session) persistProposalsLocked() {
	if err := s.store.SetJSON(kv.KeyProposals, s.proposals); err != nil {
		log.Printf("session: failed to persist proposals: %v", err)
	}
}

// ABOUTME: Tests for the reconciliation engine drain and pull phases
// ABOUTME: Covers partial drains, temporary id rewriting, idempotent replays, and cache overwrite
package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencehq/radar/models"
	"github.com/presencehq/radar/remote"
)

// fakeRemote records every call and can be told to fail specific operations.
type fakeRemote struct {
	mu sync.Mutex

	analyses  []models.AnalysisHistoryItem
	proposals []models.Proposal

	nextID       int
	insertCalls  int
	updateCalls  int
	deleteCalls  int
	upsertCalls  int
	pDeleteCalls int

	failInsertAfter int // fail once insertCalls exceeds this, 0 = never
	failUpdate      error
	failDelete      error
	failPDelete     error
	failSelect      error
}

func (f *fakeRemote) SelectAnalyses(ctx context.Context) ([]models.AnalysisHistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSelect != nil {
		return nil, f.failSelect
	}
	out := make([]models.AnalysisHistoryItem, len(f.analyses))
	copy(out, f.analyses)
	return out, nil
}

func (f *fakeRemote) InsertAnalysis(ctx context.Context, item models.AnalysisHistoryItem) (models.AnalysisHistoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.failInsertAfter > 0 && f.insertCalls > f.failInsertAfter {
		return models.AnalysisHistoryItem{}, errors.New("store unavailable")
	}
	f.nextID++
	item.ID = fmt.Sprintf("srv-%d", f.nextID)
	item.Status = models.StatusSynced
	f.analyses = append(f.analyses, item)
	return item, nil
}

func (f *fakeRemote) UpdateAnalysisName(ctx context.Context, id, companyName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate != nil {
		return f.failUpdate
	}
	for i := range f.analyses {
		if f.analyses[i].ID == id {
			f.analyses[i].CompanyName = companyName
			return nil
		}
	}
	return remote.ErrNotFound
}

func (f *fakeRemote) DeleteAnalysis(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete != nil {
		return f.failDelete
	}
	for i := range f.analyses {
		if f.analyses[i].ID == id {
			f.analyses = append(f.analyses[:i], f.analyses[i+1:]...)
			return nil
		}
	}
	return remote.ErrNotFound
}

func (f *fakeRemote) SelectProposals(ctx context.Context) ([]models.Proposal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSelect != nil {
		return nil, f.failSelect
	}
	out := make([]models.Proposal, len(f.proposals))
	copy(out, f.proposals)
	return out, nil
}

func (f *fakeRemote) UpsertProposal(ctx context.Context, p models.Proposal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	for i := range f.proposals {
		if f.proposals[i].ID == p.ID {
			f.proposals[i] = p
			return nil
		}
	}
	f.proposals = append(f.proposals, p)
	return nil
}

func (f *fakeRemote) DeleteProposal(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pDeleteCalls++
	if f.failPDelete != nil {
		return f.failPDelete
	}
	for i := range f.proposals {
		if f.proposals[i].ID == id {
			f.proposals = append(f.proposals[:i], f.proposals[i+1:]...)
			return nil
		}
	}
	return remote.ErrNotFound
}

// fakeGenerator returns a canned result, or fails on demand.
type fakeGenerator struct {
	calls int
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.AnalysisResult{
		TableData:       []models.ComparisonRow{{Channel: "Instagram", Company: "active", Competitor: "inactive"}},
		SummaryTable:    []models.SummaryRow{{Channel: "Instagram", Status: "strong", Priority: "low"}},
		Analysis:        "Analysis for " + req.CompanyName,
		Recommendations: "Post more",
		Hashtags:        "#" + strings.ToLower(strings.ReplaceAll(req.CompanyName, " ", "")),
	}, nil
}

// fakeCaches records overwrite and splice calls.
type fakeCaches struct {
	mu        sync.Mutex
	history   []models.AnalysisHistoryItem
	proposals []models.Proposal
	replaced  map[string]models.AnalysisHistoryItem
}

func newFakeCaches() *fakeCaches {
	return &fakeCaches{replaced: make(map[string]models.AnalysisHistoryItem)}
}

func (f *fakeCaches) SetHistory(items []models.AnalysisHistoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = items
}

func (f *fakeCaches) SetProposals(proposals []models.Proposal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposals = proposals
}

func (f *fakeCaches) ReplacePending(tempID string, item models.AnalysisHistoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced[tempID] = item
	for i := range f.history {
		if f.history[i].ID == tempID {
			f.history[i] = item
			return
		}
	}
	f.history = append(f.history, item)
}

func newTestEngine(t *testing.T, store *fakeRemote, gen *fakeGenerator, caches *fakeCaches, online bool) (*Engine, *Queue) {
	t.Helper()
	queue, _ := newTestQueue(t)
	monitor := NewMonitor(online)
	engine := NewEngine(store, gen, caches, queue, monitor, "user-1")
	return engine, queue
}

func TestDrainAppliesActionsInOrder(t *testing.T) {
	store := &fakeRemote{}
	gen := &fakeGenerator{}
	caches := newFakeCaches()
	engine, queue := newTestEngine(t, store, gen, caches, true)

	tempA := "pending_a"
	tempB := "pending_b"
	queue.Enqueue(mustAction(t, models.ActionCreateAnalysis, tempA, models.CreateAnalysisPayload{TempID: tempA, Request: models.AnalysisRequest{CompanyName: "Padaria Sol"}}))
	queue.Enqueue(mustAction(t, models.ActionCreateAnalysis, tempB, models.CreateAnalysisPayload{TempID: tempB, Request: models.AnalysisRequest{CompanyName: "Café Lua"}}))

	require.NoError(t, engine.Drain(context.Background()))

	assert.Equal(t, 0, queue.Len())
	require.Len(t, store.analyses, 2)
	assert.Equal(t, "Padaria Sol", store.analyses[0].CompanyName)
	assert.Equal(t, "Café Lua", store.analyses[1].CompanyName)
	assert.Equal(t, 2, gen.calls)
}

func TestDrainStopsOnFirstFailureKeepsTail(t *testing.T) {
	store := &fakeRemote{failInsertAfter: 1}
	gen := &fakeGenerator{}
	caches := newFakeCaches()
	engine, queue := newTestEngine(t, store, gen, caches, true)

	first := mustAction(t, models.ActionCreateAnalysis, "pending_1", models.CreateAnalysisPayload{TempID: "pending_1", Request: models.AnalysisRequest{CompanyName: "One"}})
	second := mustAction(t, models.ActionCreateAnalysis, "pending_2", models.CreateAnalysisPayload{TempID: "pending_2", Request: models.AnalysisRequest{CompanyName: "Two"}})
	third := mustAction(t, models.ActionCreateAnalysis, "pending_3", models.CreateAnalysisPayload{TempID: "pending_3", Request: models.AnalysisRequest{CompanyName: "Three"}})
	queue.Enqueue(first)
	queue.Enqueue(second)
	queue.Enqueue(third)

	err := engine.Drain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), second.ID)

	// First action removed, failing action and everything after stay queued
	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, second.ID, snapshot[0].ID)
	assert.Equal(t, third.ID, snapshot[1].ID)

	// The third action was never attempted
	assert.Equal(t, 2, store.insertCalls)
}

func TestDrainRewritesTemporaryIDs(t *testing.T) {
	store := &fakeRemote{}
	gen := &fakeGenerator{}
	caches := newFakeCaches()
	engine, queue := newTestEngine(t, store, gen, caches, true)

	tempID := "pending_xyz"
	caches.history = []models.AnalysisHistoryItem{{ID: tempID, CompanyName: "Padaria Sol", Status: models.StatusPending}}

	queue.Enqueue(mustAction(t, models.ActionCreateAnalysis, tempID, models.CreateAnalysisPayload{TempID: tempID, Request: models.AnalysisRequest{CompanyName: "Padaria Sol"}}))
	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, tempID, models.UpdateAnalysisPayload{ID: tempID, CompanyName: "Padaria do Sol"}))

	require.NoError(t, engine.Drain(context.Background()))

	// No pending entry survives in the cache
	for _, item := range caches.history {
		assert.False(t, item.IsPending(), "cache still holds pending item %s", item.ID)
	}
	replaced, ok := caches.replaced[tempID]
	require.True(t, ok)
	assert.Equal(t, "srv-1", replaced.ID)
	assert.Equal(t, models.StatusSynced, replaced.Status)

	// The follow-up rename landed under the server id
	require.Len(t, store.analyses, 1)
	assert.Equal(t, "Padaria do Sol", store.analyses[0].CompanyName)
	assert.Equal(t, 0, queue.Len())
}

func TestDrainSkipsWhileOffline(t *testing.T) {
	store := &fakeRemote{}
	engine, queue := newTestEngine(t, store, &fakeGenerator{}, newFakeCaches(), false)

	queue.Enqueue(mustAction(t, models.ActionDeleteAnalysis, "srv-1", models.DeleteAnalysisPayload{ID: "srv-1"}))

	require.NoError(t, engine.Drain(context.Background()))
	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, 0, store.deleteCalls)
}

func TestDrainWithoutUserIsNoOp(t *testing.T) {
	store := &fakeRemote{}
	queue, _ := newTestQueue(t)
	queue.Enqueue(mustAction(t, models.ActionDeleteAnalysis, "srv-1", models.DeleteAnalysisPayload{ID: "srv-1"}))

	engine := NewEngine(store, &fakeGenerator{}, newFakeCaches(), queue, NewMonitor(true), "")
	require.NoError(t, engine.Drain(context.Background()))
	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, 0, store.deleteCalls)
}

func TestDrainTreatsMissingRecordsAsDeleted(t *testing.T) {
	store := &fakeRemote{}
	engine, queue := newTestEngine(t, store, &fakeGenerator{}, newFakeCaches(), true)

	// Neither record exists remotely; both deletes replay as no-ops
	queue.Enqueue(mustAction(t, models.ActionDeleteAnalysis, "srv-gone", models.DeleteAnalysisPayload{ID: "srv-gone"}))
	pid := uuid.New()
	queue.Enqueue(mustAction(t, models.ActionDeleteProposal, pid.String(), models.DeleteProposalPayload{ID: pid}))

	require.NoError(t, engine.Drain(context.Background()))
	assert.Equal(t, 0, queue.Len())
}

func TestDrainFailsUpdateForUnconfirmedAnalysis(t *testing.T) {
	store := &fakeRemote{}
	engine, queue := newTestEngine(t, store, &fakeGenerator{}, newFakeCaches(), true)

	// An update whose create never reached this queue cannot resolve
	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, "pending_lost", models.UpdateAnalysisPayload{ID: "pending_lost", CompanyName: "X"}))

	err := engine.Drain(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never confirmed")
	assert.Equal(t, 1, queue.Len())
}

func TestDrainSkipsUnknownActionTypes(t *testing.T) {
	store := &fakeRemote{}
	engine, queue := newTestEngine(t, store, &fakeGenerator{}, newFakeCaches(), true)

	unknown := models.SyncAction{ID: models.NewActionID(), Type: "archive_report", EntityID: "srv-1", EnqueuedAt: time.Now()}
	queue.Enqueue(unknown)
	queue.Enqueue(mustAction(t, models.ActionDeleteAnalysis, "srv-gone", models.DeleteAnalysisPayload{ID: "srv-gone"}))

	require.NoError(t, engine.Drain(context.Background()))
	assert.Equal(t, 0, queue.Len())
}

func TestPullOverwritesCaches(t *testing.T) {
	store := &fakeRemote{
		analyses: []models.AnalysisHistoryItem{
			{ID: "srv-1", CompanyName: "Remote Truth", Status: models.StatusSynced},
		},
		proposals: []models.Proposal{
			{ID: uuid.New(), ClientName: "Remote Client", Status: models.ProposalDraft},
		},
	}
	caches := newFakeCaches()
	caches.history = []models.AnalysisHistoryItem{{ID: "stale", CompanyName: "Stale Local"}}
	engine, _ := newTestEngine(t, store, &fakeGenerator{}, caches, true)

	require.NoError(t, engine.Pull(context.Background()))

	require.Len(t, caches.history, 1)
	assert.Equal(t, "srv-1", caches.history[0].ID)
	require.Len(t, caches.proposals, 1)
	assert.Equal(t, "Remote Client", caches.proposals[0].ClientName)
}

func TestSyncSkipsPullAfterFailedDrain(t *testing.T) {
	store := &fakeRemote{failUpdate: errors.New("store rejected update")}
	caches := newFakeCaches()
	caches.history = []models.AnalysisHistoryItem{{ID: "local", CompanyName: "Keep Me"}}
	engine, queue := newTestEngine(t, store, &fakeGenerator{}, caches, true)

	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, "srv-1", models.UpdateAnalysisPayload{ID: "srv-1", CompanyName: "New"}))

	err := engine.Sync(context.Background())
	require.Error(t, err)

	// Pull never ran, so the optimistic cache was not overwritten
	require.Len(t, caches.history, 1)
	assert.Equal(t, "local", caches.history[0].ID)

	st := engine.Status()
	assert.NotEmpty(t, st.LastError)
	assert.True(t, st.LastSync.IsZero())
}

func TestSyncRecordsSuccess(t *testing.T) {
	engine, _ := newTestEngine(t, &fakeRemote{}, &fakeGenerator{}, newFakeCaches(), true)

	require.NoError(t, engine.Sync(context.Background()))

	st := engine.Status()
	assert.Empty(t, st.LastError)
	assert.False(t, st.LastSync.IsZero())
	assert.False(t, st.Syncing)
}

func TestOfflineCreateThenReconnectScenario(t *testing.T) {
	store := &fakeRemote{}
	gen := &fakeGenerator{}
	caches := newFakeCaches()
	engine, queue := newTestEngine(t, store, gen, caches, false)

	// Offline create: pending skeleton in cache, form payload queued
	tempID := models.NewPendingID()
	caches.history = []models.AnalysisHistoryItem{{ID: tempID, CompanyName: "Padaria Sol", Status: models.StatusPending}}
	queue.Enqueue(mustAction(t, models.ActionCreateAnalysis, tempID, models.CreateAnalysisPayload{TempID: tempID, Request: models.AnalysisRequest{CompanyName: "Padaria Sol", City: "São Paulo"}}))

	// Offline drain does nothing
	require.NoError(t, engine.Sync(context.Background()))
	assert.Equal(t, 1, queue.Len())
	assert.Equal(t, 0, gen.calls)

	// Reconnect and sync
	engine.monitor.SetOnline(true)
	require.NoError(t, engine.Sync(context.Background()))

	assert.Equal(t, 0, queue.Len())
	require.Len(t, caches.history, 1)
	assert.Equal(t, "srv-1", caches.history[0].ID)
	assert.Equal(t, models.StatusSynced, caches.history[0].Status)
	assert.Contains(t, caches.history[0].Analysis, "Padaria Sol")
}

func TestMonitorNotifiesOnlyOnTransition(t *testing.T) {
	monitor := NewMonitor(false)
	transitions := 0
	monitor.Subscribe(func(online bool) { transitions++ })

	monitor.SetOnline(false) // no change
	monitor.SetOnline(true)
	monitor.SetOnline(true) // no change
	monitor.SetOnline(false)

	assert.Equal(t, 2, transitions)
}

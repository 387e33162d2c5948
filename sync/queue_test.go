// ABOUTME: Tests for the durable sync action queue
// ABOUTME: Covers ordering, supersede collapsing, processed removal, persistence, and id rewriting
package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presencehq/radar/kv"
	"github.com/presencehq/radar/models"
)

func newTestQueue(t *testing.T) (*Queue, *kv.Store) {
	t.Helper()
	store, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	queue, err := LoadQueue(store)
	require.NoError(t, err)
	return queue, store
}

func mustAction(t *testing.T, actionType, entityID string, payload interface{}) models.SyncAction {
	t.Helper()
	action, err := models.NewSyncAction(actionType, entityID, payload)
	require.NoError(t, err)
	return action
}

func TestQueuePreservesEnqueueOrder(t *testing.T) {
	queue, _ := newTestQueue(t)

	a := mustAction(t, models.ActionCreateAnalysis, "pending_1", models.CreateAnalysisPayload{TempID: "pending_1"})
	b := mustAction(t, models.ActionUpdateAnalysis, "srv-2", models.UpdateAnalysisPayload{ID: "srv-2", CompanyName: "Beta"})
	c := mustAction(t, models.ActionDeleteAnalysis, "srv-3", models.DeleteAnalysisPayload{ID: "srv-3"})

	queue.Enqueue(a)
	queue.Enqueue(b)
	queue.Enqueue(c)

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 3)
	assert.Equal(t, a.ID, snapshot[0].ID)
	assert.Equal(t, b.ID, snapshot[1].ID)
	assert.Equal(t, c.ID, snapshot[2].ID)
}

func TestQueueSupersedeCollapsesSameEntity(t *testing.T) {
	queue, _ := newTestQueue(t)

	// Three renames of the same analysis while offline
	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, "srv-1", models.UpdateAnalysisPayload{ID: "srv-1", CompanyName: "First"}))
	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, "srv-1", models.UpdateAnalysisPayload{ID: "srv-1", CompanyName: "Second"}))

	removed := queue.Supersede(models.ActionUpdateAnalysis, "srv-1")
	assert.Equal(t, 2, removed)

	final := mustAction(t, models.ActionUpdateAnalysis, "srv-1", models.UpdateAnalysisPayload{ID: "srv-1", CompanyName: "Third"})
	queue.Enqueue(final)

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, final.ID, snapshot[0].ID)

	var payload models.UpdateAnalysisPayload
	require.NoError(t, json.Unmarshal(snapshot[0].Payload, &payload))
	assert.Equal(t, "Third", payload.CompanyName)
}

func TestQueueSupersedeLeavesOtherEntitiesAlone(t *testing.T) {
	queue, _ := newTestQueue(t)

	other := mustAction(t, models.ActionUpdateAnalysis, "srv-2", models.UpdateAnalysisPayload{ID: "srv-2", CompanyName: "Other"})
	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, "srv-1", models.UpdateAnalysisPayload{ID: "srv-1", CompanyName: "Mine"}))
	queue.Enqueue(other)

	removed := queue.Supersede(models.ActionUpdateAnalysis, "srv-1")
	assert.Equal(t, 1, removed)

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, other.ID, snapshot[0].ID)
}

func TestQueueRemoveProcessedKeepsOrder(t *testing.T) {
	queue, _ := newTestQueue(t)

	a := mustAction(t, models.ActionDeleteAnalysis, "srv-1", models.DeleteAnalysisPayload{ID: "srv-1"})
	b := mustAction(t, models.ActionDeleteAnalysis, "srv-2", models.DeleteAnalysisPayload{ID: "srv-2"})
	c := mustAction(t, models.ActionDeleteAnalysis, "srv-3", models.DeleteAnalysisPayload{ID: "srv-3"})
	queue.Enqueue(a)
	queue.Enqueue(b)
	queue.Enqueue(c)

	queue.RemoveProcessed(map[string]struct{}{b.ID: {}})

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, a.ID, snapshot[0].ID)
	assert.Equal(t, c.ID, snapshot[1].ID)
}

func TestQueueSurvivesReload(t *testing.T) {
	queue, store := newTestQueue(t)

	a := mustAction(t, models.ActionCreateAnalysis, "pending_x", models.CreateAnalysisPayload{TempID: "pending_x", Request: models.AnalysisRequest{CompanyName: "Padaria Sol"}})
	b := mustAction(t, models.ActionUpsertProposal, "p-1", nil)
	queue.Enqueue(a)
	queue.Enqueue(b)

	// Simulate a restart against the same store
	reloaded, err := LoadQueue(store)
	require.NoError(t, err)
	snapshot := reloaded.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, a.ID, snapshot[0].ID)
	assert.Equal(t, b.ID, snapshot[1].ID)
	assert.Equal(t, models.ActionCreateAnalysis, snapshot[0].Type)
}

func TestQueueRewriteAnalysisID(t *testing.T) {
	queue, _ := newTestQueue(t)

	tempID := "pending_abc"
	queue.Enqueue(mustAction(t, models.ActionUpdateAnalysis, tempID, models.UpdateAnalysisPayload{ID: tempID, CompanyName: "Renamed"}))
	queue.Enqueue(mustAction(t, models.ActionDeleteAnalysis, tempID, models.DeleteAnalysisPayload{ID: tempID}))
	untouched := mustAction(t, models.ActionUpdateAnalysis, "srv-9", models.UpdateAnalysisPayload{ID: "srv-9", CompanyName: "Other"})
	queue.Enqueue(untouched)

	queue.RewriteAnalysisID(tempID, "srv-42")

	snapshot := queue.Snapshot()
	require.Len(t, snapshot, 3)

	assert.Equal(t, "srv-42", snapshot[0].EntityID)
	var update models.UpdateAnalysisPayload
	require.NoError(t, json.Unmarshal(snapshot[0].Payload, &update))
	assert.Equal(t, "srv-42", update.ID)
	assert.Equal(t, "Renamed", update.CompanyName)

	assert.Equal(t, "srv-42", snapshot[1].EntityID)
	var del models.DeleteAnalysisPayload
	require.NoError(t, json.Unmarshal(snapshot[1].Payload, &del))
	assert.Equal(t, "srv-42", del.ID)

	assert.Equal(t, "srv-9", snapshot[2].EntityID)
}

func TestActionIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := models.NewActionID()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate action id %s", id)
		seen[id] = struct{}{}
	}
}

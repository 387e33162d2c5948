// ABOUTME: Durable FIFO queue of pending sync actions
// ABOUTME: Every mutation persists the full queue immediately so restarts lose nothing
package sync

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/presencehq/radar/kv"
	"github.com/presencehq/radar/models"
)

// Queue is the ordered list of mutations awaiting replay. Insertion order
// is processing order, except where Supersede has collapsed duplicate
// intents for the same entity.
type Queue struct {
	mu      sync.Mutex
	store   *kv.Store
	actions []models.SyncAction
}

// LoadQueue restores the persisted queue from the store. An absent key
// yields an empty queue.
func LoadQueue(store *kv.Store) (*Queue, error) {
	q := &Queue{store: store}
	if _, err := store.GetJSON(kv.KeySyncQueue, &q.actions); err != nil {
		return nil, err
	}
	return q, nil
}

// Enqueue appends an action and persists the queue.
func (q *Queue) Enqueue(action models.SyncAction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.actions = append(q.actions, action)
	q.persistLocked()
}

// Supersede removes any queued action of the same type for the same entity,
// returning how many were dropped. Callers enqueue the replacement action
// afterwards, so repeated offline edits collapse to the latest version.
func (q *Queue) Supersede(actionType, entityID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.actions[:0]
	removed := 0
	for _, a := range q.actions {
		if a.Type == actionType && a.EntityID == entityID {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	q.actions = kept
	if removed > 0 {
		q.persistLocked()
	}
	return removed
}

// RemoveProcessed drops every action whose id is in ids, preserving the
// order of the rest, and persists the queue.
func (q *Queue) RemoveProcessed(ids map[string]struct{}) {
	if len(ids) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.actions[:0]
	for _, a := range q.actions {
		if _, done := ids[a.ID]; done {
			continue
		}
		kept = append(kept, a)
	}
	q.actions = kept
	q.persistLocked()
}

// Snapshot returns a copy of the queue in order. Drains iterate the
// snapshot so enqueues during a drain are untouched until the next one.
func (q *Queue) Snapshot() []models.SyncAction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.SyncAction, len(q.actions))
	copy(out, q.actions)
	return out
}

// Len returns the number of queued actions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.actions)
}

// RewriteAnalysisID replaces a temporary analysis id with the
// server-assigned one in every queued follow-up action, so updates and
// deletes enqueued before the create was confirmed still target the right
// record on later drains.
func (q *Queue) RewriteAnalysisID(tempID, serverID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	changed := false
	for i, a := range q.actions {
		if a.EntityID != tempID {
			continue
		}
		switch a.Type {
		case models.ActionUpdateAnalysis:
			var payload models.UpdateAnalysisPayload
			if err := json.Unmarshal(a.Payload, &payload); err != nil {
				continue
			}
			payload.ID = serverID
			raw, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			q.actions[i].EntityID = serverID
			q.actions[i].Payload = raw
			changed = true
		case models.ActionDeleteAnalysis:
			var payload models.DeleteAnalysisPayload
			if err := json.Unmarshal(a.Payload, &payload); err != nil {
				continue
			}
			payload.ID = serverID
			raw, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			q.actions[i].EntityID = serverID
			q.actions[i].Payload = raw
			changed = true
		}
	}
	if changed {
		q.persistLocked()
	}
}

// persistLocked writes the queue through to durable storage. A persistence
// failure is degraded-but-non-fatal: the in-memory queue stays usable for
// the current session.
func (q *Queue) persistLocked() {
	if q.store == nil {
		return
	}
	if err := q.store.SetJSON(kv.KeySyncQueue, q.actions); err != nil {
		log.Printf("sync queue: failed to persist: %v", err)
	}
}

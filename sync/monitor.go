// ABOUTME: Connectivity monitor with transition callbacks
// ABOUTME: Tracks online/offline state and optionally probes the remote store health endpoint
package sync

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Monitor exposes the current online/offline state and notifies
// subscribers on transitions. State changes come from the probe loop or
// from explicit SetOnline calls (tests, manual override).
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []func(online bool)
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a state change and notifies subscribers if the state
// actually transitioned.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a callback invoked on every transition.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Probe polls url until ctx is done, treating any 2xx/3xx/4xx response as
// online and transport errors as offline. 5xx means the store is reachable
// but unhealthy, which still cannot serve a drain.
func (m *Monitor) Probe(ctx context.Context, url string, interval time.Duration) {
	client := &http.Client{Timeout: 5 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.SetOnline(m.probeOnce(ctx, client, url))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SetOnline(m.probeOnce(ctx, client, url))
		}
	}
}

// Check performs a single probe and records the result, for one-shot
// commands that cannot wait for the polling loop.
func (m *Monitor) Check(ctx context.Context, url string) bool {
	client := &http.Client{Timeout: 5 * time.Second}
	online := m.probeOnce(ctx, client, url)
	m.SetOnline(online)
	return online
}

func (m *Monitor) probeOnce(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode < 500
}

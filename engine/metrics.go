package engine

import (
	"encoding/json"
	"fmt"
	"sync/atomic"

	"aide/model"
	"aide/storage"
)

// CacheMetrics aggregates the token-usage telemetry the service returns into
// cumulative prompt-cache counters. Increments are atomic so concurrent
// reads and a user-initiated reset never lose updates; readers tolerate
// eventually-consistent snapshots.
type CacheMetrics struct {
	requests            atomic.Int64
	cacheHits           atomic.Int64
	inputTokens         atomic.Int64
	cacheCreationTokens atomic.Int64
	cacheReadTokens     atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of the counters with the derived
// rates filled in.
type MetricsSnapshot struct {
	Requests            int64   `json:"requests"`
	CacheHits           int64   `json:"cache_hits"`
	InputTokens         int64   `json:"input_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens"`
	HitRate             float64 `json:"-"`
	Effectiveness       float64 `json:"-"`
}

// Record counts one completed response. A request is a cache hit when the
// service read any tokens from cache.
func (m *CacheMetrics) Record(usage model.UsageInfo) {
	m.requests.Add(1)
	if usage.CacheReadInputTokens > 0 {
		m.cacheHits.Add(1)
	}
	m.inputTokens.Add(usage.InputTokens)
	m.cacheCreationTokens.Add(usage.CacheCreationInputTokens)
	m.cacheReadTokens.Add(usage.CacheReadInputTokens)
}

// Snapshot returns the current counters and derived rates.
func (m *CacheMetrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests:            m.requests.Load(),
		CacheHits:           m.cacheHits.Load(),
		InputTokens:         m.inputTokens.Load(),
		CacheCreationTokens: m.cacheCreationTokens.Load(),
		CacheReadTokens:     m.cacheReadTokens.Load(),
	}
	if snap.Requests > 0 {
		snap.HitRate = float64(snap.CacheHits) / float64(snap.Requests)
	}
	if total := snap.InputTokens + snap.CacheReadTokens; total > 0 {
		snap.Effectiveness = float64(snap.CacheReadTokens) / float64(total)
	}
	return snap
}

// Reset zeroes all counters.
func (m *CacheMetrics) Reset() {
	m.requests.Store(0)
	m.cacheHits.Store(0)
	m.inputTokens.Store(0)
	m.cacheCreationTokens.Store(0)
	m.cacheReadTokens.Store(0)
}

// Save persists the counters so they survive restarts.
func (m *CacheMetrics) Save(store *storage.Store) error {
	data, err := json.Marshal(m.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal cache metrics: %w", err)
	}
	return store.SetState(storage.StateKeyMetrics, string(data))
}

// Load restores previously persisted counters. A missing blob leaves the
// counters at zero.
func (m *CacheMetrics) Load(store *storage.Store) error {
	blob, err := store.GetState(storage.StateKeyMetrics)
	if err != nil {
		return err
	}
	if blob == "" {
		return nil
	}

	var snap MetricsSnapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return fmt.Errorf("failed to parse cache metrics: %w", err)
	}

	m.requests.Store(snap.Requests)
	m.cacheHits.Store(snap.CacheHits)
	m.inputTokens.Store(snap.InputTokens)
	m.cacheCreationTokens.Store(snap.CacheCreationTokens)
	m.cacheReadTokens.Store(snap.CacheReadTokens)
	return nil
}

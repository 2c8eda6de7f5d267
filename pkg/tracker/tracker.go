package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks request statistics per provider (API host group).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds counters for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	Requests  int64 `json:"requests"`
	Failures  int64 `json:"failures"`
	Retries   int64 `json:"retries"`
	BytesRead int64 `json:"bytes_read"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackSuccess records a completed request and the size of its body.
func (t *Tracker) TrackSuccess(provider string, bytes int) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.Requests, 1)
	atomic.AddInt64(&s.BytesRead, int64(bytes))
}

// TrackFailure records a request that ended in an error.
func (t *Tracker) TrackFailure(provider string) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.Requests, 1)
	atomic.AddInt64(&s.Failures, 1)
}

func (t *Tracker) TrackRetry(provider string) {
	atomic.AddInt64(&t.getStats(provider).Retries, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats, len(t.stats))
	for k, v := range t.stats {
		result[k] = ProviderStats{
			Requests:  atomic.LoadInt64(&v.Requests),
			Failures:  atomic.LoadInt64(&v.Failures),
			Retries:   atomic.LoadInt64(&v.Retries),
			BytesRead: atomic.LoadInt64(&v.BytesRead),
		}
	}
	return result
}

package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store guarded by a single mutex. Suitable
// for a single-instance deployment and for tests.
type MemoryStore struct {
	mu    sync.Mutex
	usage map[string]*Usage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{usage: make(map[string]*Usage)}
}

// Admit implements Store. The whole read-check-increment runs under the
// store lock, so concurrent callers with the same key serialize.
func (m *MemoryStore) Admit(_ context.Context, req AdmitRequest) (*AdmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usage[req.Key]
	if !ok {
		u = &Usage{
			Key:         req.Key,
			WindowStart: req.Now,
			FirstSeen:   req.Now,
		}
		m.usage[req.Key] = u
	}

	// Lazy window reset, independent of whether we admit.
	if req.Now.Sub(u.WindowStart) >= req.Window {
		u.SearchCount = 0
		u.WindowStart = req.Now
	}

	if req.Ceiling > 0 && u.SearchCount >= req.Ceiling {
		u.LastSeen = req.Now
		return &AdmitResult{Admitted: false, Count: u.SearchCount, WindowStart: u.WindowStart}, nil
	}

	u.SearchCount++
	u.LastSeen = req.Now
	return &AdmitResult{Admitted: true, Count: u.SearchCount, WindowStart: u.WindowStart}, nil
}

// Usage implements Store.
func (m *MemoryStore) Usage(_ context.Context, key string) (*Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.usage[key]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// SweepStale implements Store: stale counters are zeroed in place so the
// identity history (first seen, last seen) survives.
func (m *MemoryStore) SweepStale(_ context.Context, horizon time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zeroed int64
	for _, u := range m.usage {
		if u.SearchCount > 0 && u.LastSeen.Before(horizon) {
			u.SearchCount = 0
			zeroed++
		}
	}
	return zeroed, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

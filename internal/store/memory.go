package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in process memory. History is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]Run
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID]Run)}
}

func (m *MemoryStore) SaveRun(_ context.Context, run *Run) error {
	r := *run
	r.Columns = append([]string(nil), run.Columns...)
	r.Rejections = append([]RejectedRow(nil), run.Rejections...)

	m.mu.Lock()
	m.runs[r.ID] = r
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	m.mu.RLock()
	r, ok := m.runs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrRunNotFound
	}
	r.Columns = append([]string(nil), r.Columns...)
	r.Rejections = append([]RejectedRow(nil), r.Rejections...)
	return &r, nil
}

func (m *MemoryStore) ListRuns(_ context.Context, limit int) ([]Run, error) {
	m.mu.RLock()
	runs := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, summary(r))
	}
	m.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if n := limitOrDefault(limit); len(runs) > n {
		runs = runs[:n]
	}
	return runs, nil
}

func (m *MemoryStore) DeleteRunsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.runs {
		if r.CreatedAt.Before(cutoff) {
			delete(m.runs, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

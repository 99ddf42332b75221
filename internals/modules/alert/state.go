package alert

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StateStore keeps the last derived status, the open incident and the set of
// claimed dedup keys of every monitor.
type StateStore interface {
	Load(ctx context.Context, monitorID uuid.UUID) (State, error)
	Save(ctx context.Context, monitorID uuid.UUID, st State) error
	// Claim records key and reports whether this call was the first to do so.
	Claim(ctx context.Context, monitorID uuid.UUID, key string) (bool, error)
	Claimed(ctx context.Context, monitorID uuid.UUID, key string) (bool, error)
	Clear(ctx context.Context, monitorID uuid.UUID) error
}

type memoryEntry struct {
	mu     sync.Mutex
	state  State
	claims map[string]struct{}
}

// MemoryStateStore is the in-process StateStore. Each monitor has its own
// entry and lock.
type MemoryStateStore struct {
	entries sync.Map // uuid.UUID -> *memoryEntry
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{}
}

func (s *MemoryStateStore) entry(monitorID uuid.UUID) *memoryEntry {
	if v, ok := s.entries.Load(monitorID); ok {
		return v.(*memoryEntry)
	}
	v, _ := s.entries.LoadOrStore(monitorID, &memoryEntry{claims: make(map[string]struct{})})
	return v.(*memoryEntry)
}

func (s *MemoryStateStore) Load(ctx context.Context, monitorID uuid.UUID) (State, error) {
	e := s.entry(monitorID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, nil
}

func (s *MemoryStateStore) Save(ctx context.Context, monitorID uuid.UUID, st State) error {
	e := s.entry(monitorID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = st
	return nil
}

func (s *MemoryStateStore) Claim(ctx context.Context, monitorID uuid.UUID, key string) (bool, error) {
	e := s.entry(monitorID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.claims[key]; ok {
		return false, nil
	}
	e.claims[key] = struct{}{}
	return true, nil
}

func (s *MemoryStateStore) Claimed(ctx context.Context, monitorID uuid.UUID, key string) (bool, error) {
	e := s.entry(monitorID)
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.claims[key]
	return ok, nil
}

func (s *MemoryStateStore) Clear(ctx context.Context, monitorID uuid.UUID) error {
	s.entries.Delete(monitorID)
	return nil
}

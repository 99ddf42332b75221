package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// series holds one monitor's results in ascending timestamp order.
type series struct {
	mu      sync.RWMutex
	results []CheckResult
	deleted bool // unlinked by Delete, writers must re-fetch
}

// MemoryStore keeps history in process. Each monitor has its own series and
// lock, the sync.Map lookup is the only thing monitors share.
type MemoryStore struct {
	series sync.Map // uuid.UUID -> *series
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) get(monitorID uuid.UUID) (*series, bool) {
	v, ok := s.series.Load(monitorID)
	if !ok {
		return nil, false
	}
	return v.(*series), true
}

func (s *MemoryStore) getOrCreate(monitorID uuid.UUID) *series {
	if sr, ok := s.get(monitorID); ok {
		return sr
	}
	v, _ := s.series.LoadOrStore(monitorID, &series{})
	return v.(*series)
}

// lockLive returns the monitor's current series, write locked. A series
// unlinked by Delete while the caller waited for its lock is skipped.
func (s *MemoryStore) lockLive(monitorID uuid.UUID) *series {
	for {
		sr := s.getOrCreate(monitorID)
		sr.mu.Lock()
		if !sr.deleted {
			return sr
		}
		sr.mu.Unlock()
	}
}

func (s *MemoryStore) Append(ctx context.Context, r CheckResult) error {
	const op string = "history.memory.append"

	if err := validate(op, r); err != nil {
		return err
	}

	sr := s.lockLive(r.MonitorID)
	defer sr.mu.Unlock()

	if n := len(sr.results); n > 0 {
		last := sr.results[n-1].Timestamp
		if !r.Timestamp.After(last) {
			return invalidResult(op, "timestamp %s not after last stored %s",
				r.Timestamp.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano))
		}
	}

	sr.results = append(sr.results, r)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, monitorID uuid.UUID, from, to time.Time) ([]CheckResult, error) {
	sr, ok := s.get(monitorID)
	if !ok || to.Before(from) {
		return []CheckResult{}, nil
	}

	sr.mu.RLock()
	defer sr.mu.RUnlock()

	lo := sort.Search(len(sr.results), func(i int) bool {
		return !sr.results[i].Timestamp.Before(from)
	})
	hi := sort.Search(len(sr.results), func(i int) bool {
		return sr.results[i].Timestamp.After(to)
	})

	out := make([]CheckResult, hi-lo)
	copy(out, sr.results[lo:hi])
	return out, nil
}

func (s *MemoryStore) Latest(ctx context.Context, monitorID uuid.UUID, limit int) ([]CheckResult, error) {
	sr, ok := s.get(monitorID)
	if !ok || limit <= 0 {
		return []CheckResult{}, nil
	}

	sr.mu.RLock()
	defer sr.mu.RUnlock()

	start := max(len(sr.results)-limit, 0)
	out := make([]CheckResult, len(sr.results)-start)
	copy(out, sr.results[start:])
	return out, nil
}

func (s *MemoryStore) Evict(ctx context.Context, monitorID uuid.UUID, olderThan time.Time) (int, error) {
	sr, ok := s.get(monitorID)
	if !ok {
		return 0, nil
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	cut := sort.Search(len(sr.results), func(i int) bool {
		return !sr.results[i].Timestamp.Before(olderThan)
	})
	if cut == 0 {
		return 0, nil
	}

	// copy so the evicted prefix can be collected
	kept := make([]CheckResult, len(sr.results)-cut)
	copy(kept, sr.results[cut:])
	sr.results = kept
	return cut, nil
}

func (s *MemoryStore) Delete(ctx context.Context, monitorID uuid.UUID) error {
	sr, ok := s.get(monitorID)
	if !ok {
		return nil
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.deleted = true
	sr.results = nil
	s.series.CompareAndDelete(monitorID, sr)
	return nil
}

func (s *MemoryStore) MonitorIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	s.series.Range(func(key, _ any) bool {
		ids = append(ids, key.(uuid.UUID))
		return true
	})
	return ids, nil
}

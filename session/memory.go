package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record   Record
	deadline time.Time
}

func (e memoryEntry) dead(now time.Time) bool {
	return e.record.Expired(now) || !now.Before(e.deadline)
}

// MemoryStore is the in-process [Store]. A single mutex guards the map and is
// never held across I/O. Expiry is checked lazily on Get and proactively by
// SweepExpired. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty [MemoryStore]. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records: make(map[string]memoryEntry),
		now:     now,
	}
}

func (s *MemoryStore) Put(_ context.Context, token string, rec Record, ttl time.Duration) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		delete(s.records, token)
		return nil
	}
	s.records[token] = memoryEntry{record: rec, deadline: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (Record, bool, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.records[token]
	if !ok {
		return Record{}, false, nil
	}
	if entry.dead(now) {
		delete(s.records, token)
		return Record{}, false, nil
	}
	return entry.record, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[token]
	if ok {
		delete(s.records, token)
	}
	return ok, nil
}

func (s *MemoryStore) SweepExpired(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, entry := range s.records {
		if entry.dead(now) {
			delete(s.records, token)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	live := 0
	for _, entry := range s.records {
		if !entry.dead(now) && !entry.record.Revoked {
			live++
		}
	}
	return live, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	all, err := s.listAll(ctx)
	if err != nil {
		return nil, err
	}
	return liveOnly(all), nil
}

// listAll returns every unexpired entry, tombstones included.
func (s *MemoryStore) listAll(_ context.Context) ([]Entry, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.records))
	for token, entry := range s.records {
		if entry.dead(now) {
			continue
		}
		out = append(out, Entry{Token: token, Record: entry.record})
	}
	return out, nil
}

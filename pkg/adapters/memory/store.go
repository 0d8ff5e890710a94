package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// Store implements ports.HistoryStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string][]*domain.Record
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]*domain.Record),
	}
}

// Append keeps a copy of rec.
func (s *Store) Append(ctx context.Context, rec *domain.Record) error {
	copied := cloneRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.SessionID] = append(s.data[rec.SessionID], copied)
	return nil
}

// List returns copies of the session's records, oldest first.
func (s *Store) List(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.data[sessionID]
	out := make([]*domain.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

// Get returns a copy of a single record.
func (s *Store) Get(ctx context.Context, sessionID, recordID string) (*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.data[sessionID] {
		if rec.ID == recordID {
			return cloneRecord(rec), nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

// Delete removes the history of a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Sessions returns the sessions with recorded history.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// cloneRecord copies rec so callers can't mutate stored records by pointer.
func cloneRecord(rec *domain.Record) *domain.Record {
	c := *rec
	if rec.Bindings != nil {
		b := domain.BindingDiff{
			Added:   append([]string(nil), rec.Bindings.Added...),
			Changed: append([]string(nil), rec.Bindings.Changed...),
			Removed: append([]string(nil), rec.Bindings.Removed...),
		}
		c.Bindings = &b
	}
	return &c
}

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the single-instance fallback when Redis is not
// configured. Sessions do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore builds a store and starts its expiry sweep.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*Record),
		done:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	rec, ok := s.records[id]
	s.mu.RUnlock()
	if !ok || time.Now().After(rec.ExpiresAt) {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

// Len reports live (unexpired) sessions.
func (s *MemoryStore) Len() int {
	now := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.records {
		if now.Before(rec.ExpiresAt) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for id, rec := range s.records {
				if now.After(rec.ExpiresAt) {
					delete(s.records, id)
				}
			}
			s.mu.Unlock()
		}
	}
}

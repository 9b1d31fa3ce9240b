// Package store provides session.Store implementations: in-memory for tests
// and single-process use, diskv for the CLI, and Redis for shared profiles.
package store

import (
	"context"
	"sync"

	"safeshift/internal/session"
	"safeshift/pkg/platform/sentinel"
)

// InMemoryStore keeps the record for the life of the process.
type InMemoryStore struct {
	mu  sync.RWMutex
	rec *session.Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Load(_ context.Context) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec == nil {
		return nil, sentinel.ErrNotFound
	}
	rec := *s.rec
	return &rec, nil
}

func (s *InMemoryStore) Save(_ context.Context, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return sentinel.ErrNotFound
	}
	s.rec = nil
	return nil
}

// Package memstore provides an in-memory implementation of convlog.Store.
package memstore

import (
	"context"
	"slices"
	"sync"

	"github.com/linnemanlabs/frontdesk/internal/convlog"
)

// Store holds conversations in memory. Suitable for dev/testing.
type Store struct {
	mu    sync.RWMutex
	convs map[string]*convlog.Conversation
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{convs: make(map[string]*convlog.Conversation)}
}

// Save stores a copy of the conversation.
func (s *Store) Save(_ context.Context, conv *convlog.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *conv
	cp.Entries = slices.Clone(conv.Entries)
	s.convs[conv.ID] = &cp
	return nil
}

// Load retrieves a conversation by ID. Returns a copy.
func (s *Store) Load(_ context.Context, id string) (*convlog.Conversation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[id]
	if !ok {
		return nil, false, nil
	}
	cp := *conv
	cp.Entries = slices.Clone(conv.Entries)
	return &cp, true, nil
}

// List returns the stored conversation IDs in sorted order.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.convs))
	for id := range s.convs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

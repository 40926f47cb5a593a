// Package convlog records completed support conversations. Entries are
// staged in memory during a pipeline run and flushed to durable storage
// only after the sender-facing reply was accepted, so the store never
// holds half-finished exchanges.
package convlog

import (
	"context"
	"sync"
	"time"
)

// Entry roles. A conversation alternates inbound-sender and assistant
// entries; the automated path appends exactly one of each per exchange.
const (
	RoleInbound   = "inbound-sender"
	RoleAssistant = "assistant"
)

// Entry is one message in a conversation.
type Entry struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Conversation is the durable record for one inbound-message thread,
// keyed by the inbound message ID.
type Conversation struct {
	ID        string    `json:"id"`
	Entries   []Entry   `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the persistence interface for conversations.
type Store interface {
	Save(ctx context.Context, conv *Conversation) error
	Load(ctx context.Context, id string) (*Conversation, bool, error)
	List(ctx context.Context) ([]string, error)
}

// Log stages entries per conversation and writes them through to a Store
// on Flush. Safe for concurrent use.
type Log struct {
	store Store

	mu      sync.Mutex
	pending map[string][]Entry
}

// New creates a Log backed by the given store.
func New(store Store) *Log {
	return &Log{
		store:   store,
		pending: make(map[string][]Entry),
	}
}

// Append stages an entry for the conversation. Nothing is persisted until
// Flush.
func (l *Log) Append(id string, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[id] = append(l.pending[id], e)
}

// Flush persists all staged entries for the conversation, appending to any
// previously stored entries, and clears the staging buffer on success. A
// failed flush keeps the staged entries for a later retry.
func (l *Log) Flush(ctx context.Context, id string) error {
	l.mu.Lock()
	staged := l.pending[id]
	l.mu.Unlock()

	if len(staged) == 0 {
		return nil
	}

	conv, ok, err := l.store.Load(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		conv = &Conversation{ID: id}
	}
	conv.Entries = append(conv.Entries, staged...)
	conv.UpdatedAt = time.Now()

	if err := l.store.Save(ctx, conv); err != nil {
		return err
	}

	l.mu.Lock()
	delete(l.pending, id)
	l.mu.Unlock()
	return nil
}

// Pending returns the number of staged, unflushed entries for the
// conversation.
func (l *Log) Pending(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending[id])
}

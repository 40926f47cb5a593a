package pipeline

import (
	"context"

	"github.com/linnemanlabs/frontdesk/internal/convlog"
	"github.com/linnemanlabs/frontdesk/internal/mail"
)

// Completer is the interface for the text-completion backend. A single
// failure triggers the calling step's documented fallback; no retry is
// performed here.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Retriever is the interface for the knowledge-base similarity search.
// An empty result is a valid, non-error outcome. Passages come back in the
// collaborator's ranking order, most relevant first.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]string, error)
}

// Sender is the mailbox send capability the pipeline depends on.
type Sender interface {
	Send(ctx context.Context, msg *mail.Outbound) error
}

// ConversationLog accumulates entries per conversation id and flushes a
// conversation to durable storage on demand.
type ConversationLog interface {
	Append(conversationID string, e convlog.Entry)
	Flush(ctx context.Context, conversationID string) error
}

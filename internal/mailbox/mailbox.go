// Package mailbox abstracts the mail transport behind a small capability
// interface. The pipeline and batch driver only ever see Send, Receive,
// and MarkRead; provider selection is a configuration concern.
package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/frontdesk/internal/mail"
	"github.com/linnemanlabs/frontdesk/internal/mailbox/apisend"
	"github.com/linnemanlabs/frontdesk/internal/mailbox/smtpimap"
)

// ErrReceiveUnsupported is returned by send-only providers.
var ErrReceiveUnsupported = errors.New("mailbox: provider does not support receiving")

// Mailbox is the transport capability surface.
type Mailbox interface {
	// Send submits an outbound message for delivery.
	Send(ctx context.Context, out *mail.Outbound) error

	// Receive returns up to limit unread inbound messages, oldest first.
	Receive(ctx context.Context, limit int) ([]*mail.Inbound, error)

	// MarkRead marks a previously received message as read so later
	// Receive calls will not return it again.
	MarkRead(ctx context.Context, id string) error
}

// Config selects and configures a provider.
type Config struct {
	// Provider is one of "smtpimap" or "apisend".
	Provider string

	SMTPIMAP smtpimap.Options
	APISend  apisend.Options
}

// New returns the configured provider.
func New(cfg Config, logger log.Logger) (Mailbox, error) {
	switch cfg.Provider {
	case "smtpimap":
		return smtpimap.New(cfg.SMTPIMAP, logger)
	case "apisend":
		return &sendOnly{inner: apisend.New(cfg.APISend, logger)}, nil
	default:
		return nil, fmt.Errorf("mailbox: unknown provider %q", cfg.Provider)
	}
}

// sendOnly wraps a send-only provider with explicit receive-side errors.
type sendOnly struct {
	inner *apisend.Provider
}

func (s *sendOnly) Send(ctx context.Context, out *mail.Outbound) error {
	return s.inner.Send(ctx, out)
}

func (s *sendOnly) Receive(context.Context, int) ([]*mail.Inbound, error) {
	return nil, ErrReceiveUnsupported
}

func (s *sendOnly) MarkRead(context.Context, string) error {
	return ErrReceiveUnsupported
}

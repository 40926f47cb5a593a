// Package mail defines the message data model shared by the mailbox
// providers and the processing pipeline.
package mail

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformed marks an inbound message that is missing required fields.
// Malformed messages are rejected before a pipeline run starts.
var ErrMalformed = errors.New("malformed inbound message")

// Inbound is a message fetched from the support mailbox. Immutable once
// created; produced by the mailbox provider.
type Inbound struct {
	ID         string            `json:"id"`
	From       string            `json:"from"`
	To         []string          `json:"to"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	ReceivedAt time.Time         `json:"received_at"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Validate checks that the message carries everything a pipeline run needs.
func (m *Inbound) Validate() error {
	var missing []string
	if m.ID == "" {
		missing = append(missing, "id")
	}
	if m.From == "" {
		missing = append(missing, "from")
	}
	if m.Subject == "" {
		missing = append(missing, "subject")
	}
	if m.Body == "" {
		missing = append(missing, "body")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrMalformed, missing)
	}
	return nil
}

// Outbound is a message handed to the mailbox provider for sending.
type Outbound struct {
	To      []string `json:"to"`
	From    string   `json:"from"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

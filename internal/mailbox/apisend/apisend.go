// Package apisend delivers outbound mail through an HTTP mail API
// (SendGrid wire format). It is send-only.
package apisend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

const httpTimeout = 10 * time.Second

// Options configures the API send provider.
type Options struct {
	// Endpoint is the full send URL, e.g.
	// https://api.sendgrid.com/v3/mail/send.
	Endpoint string
	APIKey   string
}

// Provider posts outbound messages to the configured endpoint.
type Provider struct {
	opts   Options
	client *http.Client
	logger log.Logger
}

// New creates an API send provider.
func New(opts Options, logger log.Logger) *Provider {
	if logger == nil {
		logger = log.Nop()
	}
	return &Provider{
		opts:   opts,
		client: &http.Client{Timeout: httpTimeout},
		logger: logger,
	}
}

type emailAddr struct {
	Email string `json:"email"`
}

type personalization struct {
	To  []emailAddr `json:"to"`
	CC  []emailAddr `json:"cc,omitempty"`
	BCC []emailAddr `json:"bcc,omitempty"`
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddr         `json:"from"`
	ReplyTo          *emailAddr        `json:"reply_to,omitempty"`
	Subject          string            `json:"subject"`
	Content          []contentPart     `json:"content"`
}

type contentPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func toAddrs(raw []string) []emailAddr {
	if len(raw) == 0 {
		return nil
	}
	out := make([]emailAddr, 0, len(raw))
	for _, a := range raw {
		out = append(out, emailAddr{Email: mail.Address(a)})
	}
	return out
}

func buildRequest(out *mail.Outbound) *sendRequest {
	req := &sendRequest{
		Personalizations: []personalization{{
			To:  toAddrs(out.To),
			CC:  toAddrs(out.CC),
			BCC: toAddrs(out.BCC),
		}},
		From:    emailAddr{Email: mail.Address(out.From)},
		Subject: out.Subject,
		Content: []contentPart{{Type: "text/plain", Value: out.Body}},
	}
	if out.ReplyTo != "" {
		req.ReplyTo = &emailAddr{Email: mail.Address(out.ReplyTo)}
	}
	return req
}

// Send posts the message to the mail API. Any non-2xx status is an error.
func (p *Provider) Send(ctx context.Context, out *mail.Outbound) error {
	body, err := json.Marshal(buildRequest(out))
	if err != nil {
		return fmt.Errorf("apisend: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("apisend: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	}

	resp, err := p.client.Do(req) //nolint:gosec // G704: endpoint is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("apisend: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("apisend: api returned %d: %s", resp.StatusCode, string(respBody))
	}

	p.logger.Info(ctx, "message sent via mail api", "to", out.To, "subject", out.Subject)
	return nil
}

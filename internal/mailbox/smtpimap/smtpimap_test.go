package smtpimap

import (
	"strings"
	"testing"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

func testProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Options{
		IMAPHost: "imap.example.com",
		IMAPPort: 993,
		SMTPHost: "smtp.example.com",
		SMTPPort: 587,
		Username: "support@example.com",
		Password: "secret",
	}, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	return p
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(o *Options)
	}{
		{"missing imap host", func(o *Options) { o.IMAPHost = "" }},
		{"zero imap port", func(o *Options) { o.IMAPPort = 0 }},
		{"missing smtp host", func(o *Options) { o.SMTPHost = "" }},
		{"negative smtp port", func(o *Options) { o.SMTPPort = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := Options{IMAPHost: "i", IMAPPort: 993, SMTPHost: "s", SMTPPort: 587}
			tt.mutate(&opts)
			if _, err := New(opts, nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOptions_FolderDefault(t *testing.T) {
	t.Parallel()

	if got := (Options{}).folder(); got != "INBOX" {
		t.Errorf("folder() = %q, want INBOX", got)
	}
	if got := (Options{Folder: "Support"}).folder(); got != "Support" {
		t.Errorf("folder() = %q, want Support", got)
	}
}

func TestFormatAddr(t *testing.T) {
	t.Parallel()

	withName := imapv2.Address{Name: "Jane Doe", Mailbox: "jane", Host: "example.com"}
	if got := formatAddr(withName); got != "Jane Doe <jane@example.com>" {
		t.Errorf("formatAddr = %q", got)
	}

	bare := imapv2.Address{Mailbox: "jane", Host: "example.com"}
	if got := formatAddr(bare); got != "jane@example.com" {
		t.Errorf("formatAddr = %q", got)
	}
}

func TestBuildRFC822(t *testing.T) {
	t.Parallel()

	raw, err := buildRFC822(&mail.Outbound{
		To:      []string{"Jane Doe <jane@example.com>"},
		CC:      []string{"audit@example.com"},
		From:    "support@example.com",
		ReplyTo: "support@example.com",
		Subject: "Re: Refund",
		Body:    "Your refund is on its way.",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	msg := string(raw)
	for _, want := range []string{
		"Subject: Re: Refund",
		"From: <support@example.com>",
		"To: <jane@example.com>",
		"Cc: <audit@example.com>",
		"Reply-To: <support@example.com>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing header %q:\n%s", want, msg)
		}
	}
	if !strings.Contains(msg, "Your refund is on its way.") {
		t.Error("message missing body")
	}
}

func TestBuildRFC822_RoundTripsThroughExtract(t *testing.T) {
	t.Parallel()

	body := "Line one.\n\nLine two."
	raw, err := buildRFC822(&mail.Outbound{
		To:      []string{"jane@example.com"},
		From:    "support@example.com",
		Subject: "Hello",
		Body:    body,
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got := extractPlainText(raw)
	if !strings.Contains(got, "Line one.") || !strings.Contains(got, "Line two.") {
		t.Errorf("extracted body = %q, want the original text", got)
	}
}

func TestExtractPlainText_UnparseableFallsBackToRaw(t *testing.T) {
	t.Parallel()

	raw := []byte("just some bytes, not a mime message")
	if got := extractPlainText(raw); got != string(raw) {
		t.Errorf("extract = %q, want raw passthrough", got)
	}
}

func TestToInbound(t *testing.T) {
	t.Parallel()

	p := testProvider(t)
	received := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	buf := &imapclient.FetchMessageBuffer{
		UID: 42,
		Envelope: &imapv2.Envelope{
			MessageID: "<abc-123@mail.example.com>",
			Subject:   "Refund for order 4711",
			Date:      received,
			From:      []imapv2.Address{{Name: "Jane Doe", Mailbox: "jane", Host: "example.com"}},
			To:        []imapv2.Address{{Mailbox: "support", Host: "example.com"}},
		},
	}

	msg := p.toInbound(buf, []byte("I was double charged."))

	if msg.ID != "abc-123@mail.example.com" {
		t.Errorf("ID = %q, want angle brackets stripped", msg.ID)
	}
	if msg.From != "Jane Doe <jane@example.com>" {
		t.Errorf("From = %q", msg.From)
	}
	if len(msg.To) != 1 || msg.To[0] != "support@example.com" {
		t.Errorf("To = %v", msg.To)
	}
	if msg.Subject != "Refund for order 4711" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if !msg.ReceivedAt.Equal(received) {
		t.Errorf("ReceivedAt = %v, want envelope date", msg.ReceivedAt)
	}
	if msg.Body != "I was double charged." {
		t.Errorf("Body = %q", msg.Body)
	}
}

func TestToInbound_MissingIDGetsGenerated(t *testing.T) {
	t.Parallel()

	p := testProvider(t)
	buf := &imapclient.FetchMessageBuffer{
		Envelope: &imapv2.Envelope{Subject: "no message id"},
	}

	first := p.toInbound(buf, nil)
	second := p.toInbound(buf, nil)

	if first.ID == "" {
		t.Fatal("expected a generated message ID")
	}
	if first.ID == second.ID {
		t.Error("generated IDs must be unique")
	}
	if first.ReceivedAt.IsZero() {
		t.Error("missing envelope date should default to now")
	}
}

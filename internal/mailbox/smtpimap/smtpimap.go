// Package smtpimap is the standard-protocol mailbox provider: IMAP for
// receiving and marking messages read, SMTP for sending.
package smtpimap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	gomail "github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/frontdesk/internal/mail"
)

// Options configures the IMAP/SMTP provider. The same credentials are
// used for both protocols.
type Options struct {
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int

	Username string
	Password string

	UseTLS             bool
	InsecureSkipVerify bool

	// Folder is the mailbox to poll. Empty means INBOX.
	Folder string
}

func (o Options) folder() string {
	if o.Folder == "" {
		return "INBOX"
	}
	return o.Folder
}

// Provider implements the mailbox capability surface over IMAP and SMTP.
// The IMAP connection is dialed lazily and reused across polls; a failed
// command drops it so the next call reconnects.
type Provider struct {
	opts   Options
	logger log.Logger

	mu     sync.Mutex
	client *imapclient.Client
	uids   map[string]imapv2.UID // message ID -> UID in the selected folder
}

// New validates the options and returns a ready provider. No connection
// is made until the first Receive.
func New(opts Options, logger log.Logger) (*Provider, error) {
	if opts.IMAPHost == "" {
		return nil, fmt.Errorf("smtpimap: imap host is empty")
	}
	if opts.IMAPPort <= 0 {
		return nil, fmt.Errorf("smtpimap: imap port must be positive")
	}
	if opts.SMTPHost == "" {
		return nil, fmt.Errorf("smtpimap: smtp host is empty")
	}
	if opts.SMTPPort <= 0 {
		return nil, fmt.Errorf("smtpimap: smtp port must be positive")
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Provider{
		opts:   opts,
		logger: logger,
		uids:   make(map[string]imapv2.UID),
	}, nil
}

// Close logs out and drops the IMAP connection if one is open.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Logout().Wait()
	_ = p.client.Close()
	p.client = nil
	return err
}

// Receive polls the configured folder for unseen messages, parses them,
// and returns up to limit of them oldest first. Messages stay unseen until
// MarkRead.
func (p *Provider) Receive(ctx context.Context, limit int) ([]*mail.Inbound, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	client, err := p.ensureClient(ctx)
	if err != nil {
		return nil, err
	}

	msgs, err := p.fetchUnseen(client, limit)
	if err != nil {
		// Drop the connection so the next poll reconnects cleanly.
		_ = client.Close()
		p.client = nil
		return nil, err
	}
	return msgs, nil
}

// MarkRead sets \Seen on the message with the given ID. The ID must have
// been returned by a prior Receive on this provider.
func (p *Provider) MarkRead(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	uid, ok := p.uids[id]
	if !ok {
		return fmt.Errorf("smtpimap: unknown message id %q", id)
	}

	client, err := p.ensureClient(ctx)
	if err != nil {
		return err
	}

	cmd := client.Store(imapv2.UIDSetNum(uid), &imapv2.StoreFlags{
		Op:     imapv2.StoreFlagsAdd,
		Silent: true,
		Flags:  []imapv2.Flag{imapv2.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		_ = client.Close()
		p.client = nil
		return fmt.Errorf("smtpimap: mark seen %q: %w", id, err)
	}

	delete(p.uids, id)
	return nil
}

// Send delivers the message over SMTP with STARTTLS when the server
// offers it.
func (p *Provider) Send(ctx context.Context, out *mail.Outbound) error {
	raw, err := buildRFC822(out)
	if err != nil {
		return err
	}

	rcpts := make([]string, 0, len(out.To)+len(out.CC)+len(out.BCC))
	for _, lists := range [][]string{out.To, out.CC, out.BCC} {
		for _, a := range lists {
			rcpts = append(rcpts, mail.Address(a))
		}
	}
	if len(rcpts) == 0 {
		return fmt.Errorf("smtpimap: no recipients")
	}

	addr := net.JoinHostPort(p.opts.SMTPHost, strconv.Itoa(p.opts.SMTPPort))

	var auth sasl.Client
	if p.opts.Username != "" {
		auth = sasl.NewPlainClient("", p.opts.Username, p.opts.Password)
	}

	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, mail.Address(out.From), rcpts, bytes.NewReader(raw))
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtpimap: send via %s: %w", addr, err)
		}
	}

	p.logger.Info(ctx, "message sent via smtp", "to", out.To, "subject", out.Subject)
	return nil
}

func (p *Provider) ensureClient(ctx context.Context) (*imapclient.Client, error) {
	if p.client != nil {
		return p.client, nil
	}

	address := net.JoinHostPort(p.opts.IMAPHost, strconv.Itoa(p.opts.IMAPPort))
	options := &imapclient.Options{}
	if p.opts.UseTLS {
		options.TLSConfig = &tls.Config{
			ServerName:         p.opts.IMAPHost,
			InsecureSkipVerify: p.opts.InsecureSkipVerify, //nolint:gosec // operator opt-in for self-signed dev servers
		}
	}

	var (
		client *imapclient.Client
		err    error
	)
	if p.opts.UseTLS {
		client, err = imapclient.DialTLS(address, options)
	} else {
		client, err = imapclient.DialInsecure(address, options)
	}
	if err != nil {
		return nil, fmt.Errorf("smtpimap: dial imap %s: %w", address, err)
	}

	if err := client.Login(p.opts.Username, p.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("smtpimap: imap login failed: %w", err)
	}

	if _, err := client.Select(p.opts.folder(), nil).Wait(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("smtpimap: select %s: %w", p.opts.folder(), err)
	}

	p.logger.Info(ctx, "imap connection established",
		"address", address, "user", p.opts.Username, "folder", p.opts.folder(), "tls", p.opts.UseTLS)

	p.client = client
	return client, nil
}

func (p *Provider) fetchUnseen(client *imapclient.Client, limit int) ([]*mail.Inbound, error) {
	searchData, err := client.UIDSearch(&imapv2.SearchCriteria{
		NotFlag: []imapv2.Flag{imapv2.FlagSeen},
	}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("smtpimap: search unseen: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	bodySection := &imapv2.FetchItemBodySection{}
	fetchCmd := client.Fetch(imapv2.UIDSetNum(uids...), &imapv2.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imapv2.FetchItemBodySection{bodySection},
	})
	bufs, err := fetchCmd.Collect()
	if err != nil {
		return nil, fmt.Errorf("smtpimap: fetch: %w", err)
	}

	msgs := make([]*mail.Inbound, 0, len(bufs))
	for _, buf := range bufs {
		msg := p.toInbound(buf, buf.FindBodySection(bodySection))
		p.uids[msg.ID] = buf.UID
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (p *Provider) toInbound(buf *imapclient.FetchMessageBuffer, raw []byte) *mail.Inbound {
	msg := &mail.Inbound{}

	if env := buf.Envelope; env != nil {
		msg.ID = strings.Trim(env.MessageID, "<>")
		msg.Subject = env.Subject
		msg.ReceivedAt = env.Date
		if len(env.From) > 0 {
			msg.From = formatAddr(env.From[0])
		}
		for _, a := range env.To {
			msg.To = append(msg.To, formatAddr(a))
		}
	}
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	msg.Body = extractPlainText(raw)
	return msg
}

func formatAddr(a imapv2.Address) string {
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Addr())
	}
	return a.Addr()
}

// extractPlainText returns the first text/plain part of the message, or
// the first inline part of any type when there is none.
func extractPlainText(raw []byte) string {
	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}

	var fallback string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		h, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		ct, _, _ := h.ContentType()
		if ct == "" || ct == "text/plain" {
			return strings.TrimSpace(string(body))
		}
		if fallback == "" {
			fallback = strings.TrimSpace(string(body))
		}
	}
	return fallback
}

func buildRFC822(out *mail.Outbound) ([]byte, error) {
	var h gomail.Header
	h.SetDate(time.Now())
	h.SetSubject(out.Subject)
	h.SetAddressList("From", []*gomail.Address{{Address: mail.Address(out.From)}})
	h.SetAddressList("To", toAddressList(out.To))
	if len(out.CC) > 0 {
		h.SetAddressList("Cc", toAddressList(out.CC))
	}
	if out.ReplyTo != "" {
		h.SetAddressList("Reply-To", []*gomail.Address{{Address: mail.Address(out.ReplyTo)}})
	}

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("smtpimap: create message: %w", err)
	}
	if _, err := io.WriteString(w, out.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("smtpimap: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("smtpimap: finish message: %w", err)
	}
	return buf.Bytes(), nil
}

func toAddressList(raw []string) []*gomail.Address {
	out := make([]*gomail.Address, 0, len(raw))
	for _, a := range raw {
		out = append(out, &gomail.Address{Address: mail.Address(a)})
	}
	return out
}

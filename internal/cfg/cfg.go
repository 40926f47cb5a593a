package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"
)

// Config adds frontdesk-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string

	PollInterval time.Duration
	ReceiveLimit int

	ReviewerAddr string
	DefaultFrom  string
	SelfAddrs    string

	AssistantName string
	AssistantRole string

	Categories          string
	UrgencyLevels       string
	SensitiveTopics     string
	ComplexityThreshold float64

	ClaudeAPIKey string
	ClaudeModel  string

	KBEndpoint string
	KBTopK     int

	DatabaseURL      string
	ConversationsDir string

	MailProvider       string
	IMAPHost           string
	IMAPPort           int
	SMTPHost           string
	SMTPPort           int
	MailUsername       string
	MailPassword       string
	MailTLS            bool
	MailInsecureTLS    bool
	MailFolder         string
	MailAPIEndpoint    string
	MailAPIKey         string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on the HTTP API")

	fs.DurationVar(&c.PollInterval, "poll-interval", time.Minute, "interval between mailbox polls")
	fs.IntVar(&c.ReceiveLimit, "receive-limit", 25, "maximum messages fetched per poll (0 = no cap)")

	fs.StringVar(&c.ReviewerAddr, "reviewer-addr", "", "email address receiving escalation notifications")
	fs.StringVar(&c.DefaultFrom, "default-from", "", "reply identity when the inbound message carries no recipient")
	fs.StringVar(&c.SelfAddrs, "self-addrs", "", "comma-separated addresses of the service itself (skipped on receive)")

	fs.StringVar(&c.AssistantName, "assistant-name", "FRIDAY", "assistant name used in the reply signature")
	fs.StringVar(&c.AssistantRole, "assistant-role", "AI Support Assistant", "assistant role used in the reply signature")

	fs.StringVar(&c.Categories, "categories", "billing,technical,general,complaint", "comma-separated classification categories")
	fs.StringVar(&c.UrgencyLevels, "urgency-levels", "low,medium,high,critical", "comma-separated urgency levels, lowest first")
	fs.StringVar(&c.SensitiveTopics, "sensitive-topics", "legal,refund,complaint,cancellation", "comma-separated sensitive topics that can force escalation")
	fs.Float64Var(&c.ComplexityThreshold, "complexity-threshold", 0.7, "complexity score at or above which a run escalates (0..1)")

	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")

	fs.StringVar(&c.KBEndpoint, "kb-endpoint", "", "knowledge-base search service endpoint")
	fs.IntVar(&c.KBTopK, "kb-top-k", 4, "passages retrieved per query (1..20)")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = file store)")
	fs.StringVar(&c.ConversationsDir, "conversations-dir", "conversations", "directory for the file conversation store")

	fs.StringVar(&c.MailProvider, "mail-provider", "smtpimap", "mail transport provider (smtpimap, apisend)")
	fs.StringVar(&c.IMAPHost, "imap-host", "", "IMAP server host")
	fs.IntVar(&c.IMAPPort, "imap-port", 993, "IMAP server port")
	fs.StringVar(&c.SMTPHost, "smtp-host", "", "SMTP server host")
	fs.IntVar(&c.SMTPPort, "smtp-port", 587, "SMTP server port")
	fs.StringVar(&c.MailUsername, "mail-username", "", "mailbox username")
	fs.StringVar(&c.MailPassword, "mail-password", "", "mailbox password")
	fs.BoolVar(&c.MailTLS, "mail-tls", true, "use TLS for the IMAP connection")
	fs.BoolVar(&c.MailInsecureTLS, "mail-insecure-tls", false, "skip TLS certificate verification (dev only)")
	fs.StringVar(&c.MailFolder, "mail-folder", "INBOX", "IMAP folder to poll")
	fs.StringVar(&c.MailAPIEndpoint, "mail-api-endpoint", "", "HTTP mail API send endpoint (apisend provider)")
	fs.StringVar(&c.MailAPIKey, "mail-api-key", "", "HTTP mail API key (apisend provider)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	if c.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("invalid POLL_INTERVAL %s (must be at least 1s)", c.PollInterval))
	}
	if c.ReceiveLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid RECEIVE_LIMIT %d (must be >= 0)", c.ReceiveLimit))
	}

	if c.ReviewerAddr == "" {
		errs = append(errs, errors.New("REVIEWER_ADDR is required"))
	}
	if c.DefaultFrom == "" {
		errs = append(errs, errors.New("DEFAULT_FROM is required"))
	}

	if c.ComplexityThreshold < 0 || c.ComplexityThreshold > 1 {
		errs = append(errs, fmt.Errorf("invalid COMPLEXITY_THRESHOLD %g (must be 0..1)", c.ComplexityThreshold))
	}

	// Claude API key is required for LLM access
	if c.ClaudeAPIKey == "" {
		errs = append(errs, errors.New("CLAUDE_API_KEY is required"))
	}

	// Claude model is required for LLM access
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if c.KBEndpoint == "" {
		errs = append(errs, errors.New("KB_ENDPOINT is required"))
	}
	if c.KBTopK <= 0 || c.KBTopK > 20 {
		errs = append(errs, fmt.Errorf("invalid KB_TOP_K %d (must be 1..20)", c.KBTopK))
	}

	switch c.MailProvider {
	case "smtpimap":
		if c.IMAPHost == "" {
			errs = append(errs, errors.New("IMAP_HOST is required for the smtpimap provider"))
		}
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtpimap provider"))
		}
		if c.IMAPPort <= 0 || c.IMAPPort > 65535 {
			errs = append(errs, fmt.Errorf("invalid IMAP_PORT %d (must be 1..65535)", c.IMAPPort))
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("invalid SMTP_PORT %d (must be 1..65535)", c.SMTPPort))
		}
	case "apisend":
		if c.MailAPIEndpoint == "" {
			errs = append(errs, errors.New("MAIL_API_ENDPOINT is required for the apisend provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid MAIL_PROVIDER %q (must be smtpimap or apisend)", c.MailProvider))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// SplitList parses a comma-separated config value into trimmed,
// non-empty items.
func SplitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

package cfg

import (
	"flag"
	"reflect"
	"strings"
	"testing"
	"time"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		APIToken:              "test-token-123",
		PollInterval:          time.Minute,
		ReceiveLimit:          25,
		ReviewerAddr:          "reviewer@example.com",
		DefaultFrom:           "support@example.com",
		ComplexityThreshold:   0.7,
		ClaudeAPIKey:          "sk-test-key",
		ClaudeModel:           "claude-sonnet-4-20250514",
		KBEndpoint:            "http://localhost:8200",
		KBTopK:                4,
		MailProvider:          "smtpimap",
		IMAPHost:              "imap.example.com",
		IMAPPort:              993,
		SMTPHost:              "smtp.example.com",
		SMTPPort:              587,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.PollInterval != time.Minute {
		t.Errorf("PollInterval = %s, want 1m", c.PollInterval)
	}
	if c.ReceiveLimit != 25 {
		t.Errorf("ReceiveLimit = %d, want 25", c.ReceiveLimit)
	}
	if c.ComplexityThreshold != 0.7 {
		t.Errorf("ComplexityThreshold = %g, want 0.7", c.ComplexityThreshold)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.MailProvider != "smtpimap" {
		t.Errorf("MailProvider = %q, want %q", c.MailProvider, "smtpimap")
	}
	if c.AssistantName != "FRIDAY" {
		t.Errorf("AssistantName = %q, want %q", c.AssistantName, "FRIDAY")
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-poll-interval", "30s",
		"-reviewer-addr", "humans@example.com",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-opus-4-20250514",
		"-mail-provider", "apisend",
		"-complexity-threshold", "0.9",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %s, want 30s", c.PollInterval)
	}
	if c.ReviewerAddr != "humans@example.com" {
		t.Errorf("ReviewerAddr = %q, want %q", c.ReviewerAddr, "humans@example.com")
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.ClaudeModel != "claude-opus-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-opus-4-20250514")
	}
	if c.MailProvider != "apisend" {
		t.Errorf("MailProvider = %q, want %q", c.MailProvider, "apisend")
	}
	if c.ComplexityThreshold != 0.9 {
		t.Errorf("ComplexityThreshold = %g, want 0.9", c.ComplexityThreshold)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	mutate := func(fn func(c *Config)) Config {
		c := validBase()
		fn(&c)
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "apisend provider valid",
			cfg: mutate(func(c *Config) {
				c.MailProvider = "apisend"
				c.MailAPIEndpoint = "https://api.example.com/v3/mail/send"
				c.IMAPHost, c.SMTPHost = "", ""
			}),
			wantErr: false,
		},
		// Drain and shutdown budgets
		{
			name:      "drain zero",
			cfg:       mutate(func(c *Config) { c.DrainSeconds = 0 }),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       mutate(func(c *Config) { c.ShutdownBudgetSeconds = 301 }),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			cfg:       mutate(func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds }),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		// Ports
		{
			name:      "port zero",
			cfg:       mutate(func(c *Config) { c.APIPort = 0 }),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "imap port above max",
			cfg:       mutate(func(c *Config) { c.IMAPPort = 65536 }),
			wantErr:   true,
			errSubstr: []string{"IMAP_PORT"},
		},
		// Polling
		{
			name:      "poll interval below 1s",
			cfg:       mutate(func(c *Config) { c.PollInterval = 500 * time.Millisecond }),
			wantErr:   true,
			errSubstr: []string{"POLL_INTERVAL"},
		},
		{
			name:      "receive limit negative",
			cfg:       mutate(func(c *Config) { c.ReceiveLimit = -1 }),
			wantErr:   true,
			errSubstr: []string{"RECEIVE_LIMIT"},
		},
		// Required strings
		{
			name:      "empty api token",
			cfg:       mutate(func(c *Config) { c.APIToken = "" }),
			wantErr:   true,
			errSubstr: []string{"API_TOKEN"},
		},
		{
			name:      "empty reviewer addr",
			cfg:       mutate(func(c *Config) { c.ReviewerAddr = "" }),
			wantErr:   true,
			errSubstr: []string{"REVIEWER_ADDR"},
		},
		{
			name:      "empty default from",
			cfg:       mutate(func(c *Config) { c.DefaultFrom = "" }),
			wantErr:   true,
			errSubstr: []string{"DEFAULT_FROM"},
		},
		{
			name:      "empty claude api key",
			cfg:       mutate(func(c *Config) { c.ClaudeAPIKey = "" }),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_API_KEY"},
		},
		{
			name:      "empty kb endpoint",
			cfg:       mutate(func(c *Config) { c.KBEndpoint = "" }),
			wantErr:   true,
			errSubstr: []string{"KB_ENDPOINT"},
		},
		// Ranges
		{
			name:      "complexity threshold above one",
			cfg:       mutate(func(c *Config) { c.ComplexityThreshold = 1.5 }),
			wantErr:   true,
			errSubstr: []string{"COMPLEXITY_THRESHOLD"},
		},
		{
			name:      "kb top-k above max",
			cfg:       mutate(func(c *Config) { c.KBTopK = 21 }),
			wantErr:   true,
			errSubstr: []string{"KB_TOP_K"},
		},
		// Provider selection
		{
			name:      "unknown provider",
			cfg:       mutate(func(c *Config) { c.MailProvider = "carrier-pigeon" }),
			wantErr:   true,
			errSubstr: []string{"MAIL_PROVIDER"},
		},
		{
			name:      "smtpimap without imap host",
			cfg:       mutate(func(c *Config) { c.IMAPHost = "" }),
			wantErr:   true,
			errSubstr: []string{"IMAP_HOST"},
		},
		{
			name:      "apisend without endpoint",
			cfg:       mutate(func(c *Config) { c.MailProvider = "apisend"; c.MailAPIEndpoint = "" }),
			wantErr:   true,
			errSubstr: []string{"MAIL_API_ENDPOINT"},
		},
		// Error accumulation
		{
			name: "multiple fields invalid",
			cfg: mutate(func(c *Config) {
				c.DrainSeconds = 0
				c.APIToken = ""
				c.ReviewerAddr = ""
				c.ClaudeAPIKey = ""
			}),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "API_TOKEN", "REVIEWER_ADDR", "CLAUDE_API_KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"spaces trimmed", " billing , technical ", []string{"billing", "technical"}},
		{"empty items dropped", "a,,b,", []string{"a", "b"}},
		{"empty string", "", nil},
		{"only commas", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitList(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitList(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

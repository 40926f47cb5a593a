package mail

import (
	"errors"
	"testing"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"display name", "Jane Doe <jane@x.com>", "Jane Doe"},
		{"quoted display name", `"Jane Doe" <jane@x.com>`, "Jane Doe"},
		{"dotted local part", "j.doe@x.com", "J Doe"},
		{"underscored local part", "john_smith@x.com", "John Smith"},
		{"hyphenated local part", "mary-ann@x.com", "Mary Ann"},
		{"numeric local part", "12345@x.com", "Valued Customer"},
		{"numeric display name", "12345 <12345@x.com>", "Valued Customer"},
		{"local part with digits", "user42@x.com", "Valued Customer"},
		{"too many words", "a.b.c.d@x.com", "Valued Customer"},
		{"bare name no at", "support", "Support"},
		{"empty", "", "Valued Customer"},
		{"whitespace only", "   ", "Valued Customer"},
		{"single letter display name falls through", "J <j.doe@x.com>", "J Doe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DisplayName(tt.raw); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"Jane Doe <jane@x.com>", "jane@x.com"},
		{"jane@x.com", "jane@x.com"},
		{" <jane@x.com> ", "jane@x.com"},
		{"<unterminated@x.com", "unterminated@x.com"},
	}

	for _, tt := range tests {
		if got := Address(tt.raw); got != tt.want {
			t.Errorf("Address(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestIsSelf(t *testing.T) {
	t.Parallel()

	selfAddrs := []string{"support@example.com", "FRIDAY <noreply@example.com>"}

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"bare match", "support@example.com", true},
		{"case insensitive", "SUPPORT@Example.COM", true},
		{"display name stripped", "Support Desk <support@example.com>", true},
		{"self list entry with display name", "noreply@example.com", true},
		{"customer address", "jane@example.com", false},
		{"empty", "", false},
		{"empty self list", "support@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			self := selfAddrs
			if tt.name == "empty self list" {
				self = nil
			}
			if got := IsSelf(tt.raw, self); got != tt.want {
				t.Errorf("IsSelf(%q, %v) = %v, want %v", tt.raw, self, got, tt.want)
			}
		})
	}
}

func TestInboundValidate(t *testing.T) {
	t.Parallel()

	valid := Inbound{ID: "m-1", From: "jane@x.com", Subject: "Hi", Body: "Hello"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}

	missing := Inbound{ID: "m-2", Subject: "Hi"}
	err := missing.Validate()
	if err == nil {
		t.Fatal("expected error for missing fields")
	}
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

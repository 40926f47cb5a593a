package pipeline

import (
	"strings"
	"testing"
)

func TestCleanReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "Dear Jane,\n\nYour refund is on its way.",
			want: "Dear Jane,\n\nYour refund is on its way.",
		},
		{
			name: "placeholder removed",
			in:   "Dear Jane,\n\nWe will help.\n\n[Your Name]",
			want: "Dear Jane,\n\nWe will help.",
		},
		{
			name: "generated closing stripped",
			in:   "Dear Jane,\n\nWe will help.\n\nBest regards,\nSome Bot\nSupport Team",
			want: "Dear Jane,\n\nWe will help.",
		},
		{
			name: "sincerely closing stripped",
			in:   "All set.\n\nSincerely,\nThe Team",
			want: "All set.",
		},
		{
			name: "blank runs collapsed",
			in:   "One.\n\n\n\n\nTwo.",
			want: "One.\n\nTwo.",
		},
		{
			name: "case insensitive placeholders",
			in:   "Hello [your name], see [COMPANY NAME] policy.",
			want: "Hello , see  policy.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := cleanReply(tt.in); got != tt.want {
				t.Errorf("cleanReply(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSignatureRender(t *testing.T) {
	t.Parallel()

	sig := Signature{Name: "FRIDAY", Role: "AI Support Assistant", Address: "support@example.com"}
	got := sig.Render()

	if !strings.HasPrefix(got, "\n\nBest regards,") {
		t.Errorf("signature should open with a blank line and closing, got %q", got)
	}
	for _, want := range []string{"FRIDAY", "AI Support Assistant", "support@example.com"} {
		if !strings.Contains(got, want) {
			t.Errorf("signature missing %q: %q", want, got)
		}
	}
}

func TestFallbackReply(t *testing.T) {
	t.Parallel()

	sig := Signature{Name: "FRIDAY", Role: "AI Support Assistant", Address: "support@example.com"}
	got := fallbackReply("Jane Doe", "Broken login", sig)

	if !strings.HasPrefix(got, "Dear Jane Doe,") {
		t.Errorf("fallback should open with the customer name, got %q", got)
	}
	if !strings.Contains(got, "Broken login") {
		t.Error("fallback should echo the subject")
	}
	if !strings.Contains(got, "24 hours") {
		t.Error("fallback should promise a 24 hour follow-up")
	}
	if !strings.Contains(got, "Best regards,") {
		t.Error("fallback should carry the signature")
	}
}

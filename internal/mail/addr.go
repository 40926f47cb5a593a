package mail

import (
	"strings"
	"unicode"
)

// fallbackName is used when no usable display name can be derived.
const fallbackName = "Valued Customer"

// DisplayName derives a salutation-friendly name from a raw address string.
// It prefers an explicit display name ("Jane Doe <jane@x.com>"), then a
// title-cased form of the address local-part, and falls back to a generic
// salutation. Best effort: never fails, always returns a non-empty string.
func DisplayName(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallbackName
	}

	if i := strings.Index(raw, "<"); i >= 0 {
		name := strings.TrimSpace(raw[:i])
		name = strings.Trim(name, `"'`)
		if len(name) > 1 && !isAllDigits(name) {
			return name
		}
	}

	local := localPart(raw)
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	name := title(local)
	words := strings.Fields(name)
	if len(words) >= 1 && len(words) <= 3 && !containsDigit(name) {
		return strings.Join(words, " ")
	}

	return fallbackName
}

// Address extracts the bare address from a raw address string, stripping
// any display name and angle brackets.
func Address(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "<"); start >= 0 {
		if end := strings.Index(raw[start:], ">"); end > 0 {
			return strings.TrimSpace(raw[start+1 : start+end])
		}
		raw = raw[start+1:]
	}
	return strings.TrimSpace(strings.Trim(raw, "<>"))
}

// IsSelf reports whether the raw address resolves to one of the service's
// own addresses. Comparison is on the bare address, case-insensitive.
func IsSelf(raw string, selfAddrs []string) bool {
	addr := strings.ToLower(Address(raw))
	if addr == "" {
		return false
	}
	for _, s := range selfAddrs {
		if addr == strings.ToLower(Address(s)) {
			return true
		}
	}
	return false
}

// localPart returns the portion of the address before the @.
func localPart(raw string) string {
	addr := Address(raw)
	if at := strings.Index(addr, "@"); at >= 0 {
		return addr[:at]
	}
	return addr
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func title(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Package phone maps raw driver phone input to the canonical identity key.
package phone

import "strings"

// DefaultPrefix is the country code stripped by the deployed configuration.
const DefaultPrefix = "+91"

// Number is a normalized phone: digits only, country code removed.
// The zero value means "unset".
type Number string

func (n Number) String() string { return string(n) }

// IsZero reports whether the number carries no digits.
func (n Number) IsZero() bool { return n == "" }

// Normalizer strips a configured country-code prefix and every non-digit.
type Normalizer struct {
	prefix string
}

// NewNormalizer returns a Normalizer for the given prefix. A prefix given
// without the leading "+" gets one, so bare digit strings are never
// mistaken for a country code.
func NewNormalizer(prefix string) Normalizer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}
	return Normalizer{prefix: prefix}
}

// Prefix returns the country code this normalizer strips.
func (n Normalizer) Prefix() string { return n.prefix }

// Normalize never fails: unusable input yields the best-effort digit
// string, possibly empty.
func (n Normalizer) Normalize(raw string) Number {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, n.prefix)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return Number(b.String())
}

// Equal compares two raw representations by identity.
func (n Normalizer) Equal(a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}

// E164 re-attaches the country code for outbound gateways.
func (n Normalizer) E164(num Number) string {
	if num.IsZero() {
		return ""
	}
	return n.prefix + string(num)
}

package phone

import (
	"strings"
	"testing"
	"testing/quick"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("+91")

	cases := []struct {
		name string
		in   string
		want Number
	}{
		{"plain", "7985113984", "7985113984"},
		{"with prefix", "+917985113984", "7985113984"},
		{"spaces and dashes", " +91 79851-13984 ", "7985113984"},
		{"split prefix kept", "+ 91 79851 13984", "917985113984"},
		{"parens", "(798) 511 3984", "7985113984"},
		{"other country kept", "+447700900123", "447700900123"},
		{"bare 91 kept", "917985113984", "917985113984"},
		{"garbage", "abc", ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := n.Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteByte(byte('0' + int(r)%10))
	}
	return b.String()
}

func TestNormalizePrefixProperty(t *testing.T) {
	n := NewNormalizer(DefaultPrefix)
	f := func(s string) bool {
		d := digitsOnly(s)
		return n.Normalize("+91"+d) == n.Normalize(d)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := NewNormalizer(DefaultPrefix)
	f := func(s string) bool {
		once := n.Normalize(s)
		return n.Normalize(string(once)) == once
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"+91+91123", "+9191", "+", "++91 12"} {
		once := n.Normalize(s)
		if again := n.Normalize(string(once)); again != once {
			t.Fatalf("not idempotent for %q: %q then %q", s, once, again)
		}
	}
}

func TestNewNormalizerAddsPlus(t *testing.T) {
	n := NewNormalizer("91")
	if n.Prefix() != "+91" {
		t.Fatalf("prefix = %q", n.Prefix())
	}
	if got := n.Normalize("9198"); got != "9198" {
		t.Fatalf("bare digits must not lose a leading 91, got %q", got)
	}
}

func TestE164(t *testing.T) {
	n := NewNormalizer("")
	if got := n.E164("7985113984"); got != "+917985113984" {
		t.Fatalf("E164 = %q", got)
	}
	if got := n.E164(""); got != "" {
		t.Fatalf("E164 of empty = %q", got)
	}
	if !n.Equal("+917985113984", "79851 13984") {
		t.Fatal("expected equal identities")
	}
}

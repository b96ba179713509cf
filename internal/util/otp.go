package util

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// GenerateDigits returns n uniformly random decimal digits (OTP codes, trip PINs).
func GenerateDigits(n int) (string, error) {
	if n < 4 || n > 8 {
		return "", fmt.Errorf("digit code length must be 4..8")
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// IsDigits reports whether s is non-empty and made of ASCII digits only.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

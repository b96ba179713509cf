package util

import "testing"

func TestGenerateDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, err := GenerateDigits(6)
		if err != nil {
			t.Fatal(err)
		}
		if len(s) != 6 || !IsDigits(s) {
			t.Fatalf("bad code %q", s)
		}
	}
	if _, err := GenerateDigits(3); err == nil {
		t.Fatal("expected error for short length")
	}
}

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{
		"123456": true,
		"":       false,
		"12a456": false,
		"١٢٣":    false, // non-ASCII digits
		" 12":    false,
	}
	for in, want := range cases {
		if got := IsDigits(in); got != want {
			t.Errorf("IsDigits(%q) = %v", in, got)
		}
	}
}

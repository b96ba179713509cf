package i18n

import "testing"

func TestT(t *testing.T) {
	if err := Load(); err != nil {
		t.Fatal(err)
	}
	if got := T(LangEN, "msg.trip_started"); got != "Trip started" {
		t.Fatalf("en = %q", got)
	}
	if got := T(LangHI, "msg.trip_started"); got == "Trip started" || got == "msg.trip_started" {
		t.Fatalf("hi not translated: %q", got)
	}
	// hi pack has no entry for this key
	if got := T(LangHI, "error.pin_in_use"); got != T(LangEN, "error.pin_in_use") {
		t.Fatalf("fallback = %q", got)
	}
	if got := T(LangEN, "no.such.key"); got != "no.such.key" {
		t.Fatalf("missing key = %q", got)
	}
}

func TestLang(t *testing.T) {
	cases := map[string]string{
		"":               LangEN,
		"hi":             LangHI,
		"HI-in,en;q=0.8": LangHI,
		"en-US":          LangEN,
		"ru":             LangEN,
	}
	for in, want := range cases {
		if got := Lang(in); got != want {
			t.Errorf("Lang(%q) = %q, want %q", in, got, want)
		}
	}
}

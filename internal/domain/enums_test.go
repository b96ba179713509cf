package domain

import (
	"testing"
	"time"
)

func TestCheckpointKind(t *testing.T) {
	cases := map[time.Duration]SnapshotKind{
		6 * time.Hour:    "6_hour",
		12 * time.Hour:   "12_hour",
		24 * time.Hour:   "24_hour",
		90 * time.Minute: "90_min",
	}
	for d, want := range cases {
		if got := CheckpointKind(d); got != want {
			t.Errorf("CheckpointKind(%s) = %q, want %q", d, got, want)
		}
	}
}

func TestTripStatusClaimable(t *testing.T) {
	for _, s := range []TripStatus{TripScheduled, TripPending, TripActive} {
		if !s.Claimable() {
			t.Errorf("%s should be claimable", s)
		}
	}
	for _, s := range []TripStatus{TripCompleted, TripCancelled} {
		if s.Claimable() || !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}

func TestParseNetworkType(t *testing.T) {
	if ParseNetworkType("wifi") != NetworkWiFi {
		t.Fatal("wifi")
	}
	if ParseNetworkType("5g") != NetworkUnknown {
		t.Fatal("5g should map to unknown")
	}
	if ParseNetworkType("") != "" {
		t.Fatal("empty stays empty")
	}
}

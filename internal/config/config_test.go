package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("FRONTEND_CLIENT_TOKEN", "front")
	t.Setenv("MOBILE_CLIENT_TOKEN", "mobile")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3001 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Tracking.CountryPrefix != "+91" {
		t.Errorf("prefix = %q", cfg.Tracking.CountryPrefix)
	}
	if !cfg.Tracking.AllowAutoDriverCreation {
		t.Error("auto driver creation should default to on")
	}
	want := []time.Duration{6 * time.Hour, 12 * time.Hour, 24 * time.Hour}
	if len(cfg.Tracking.SnapshotThresholds) != len(want) {
		t.Fatalf("thresholds = %v", cfg.Tracking.SnapshotThresholds)
	}
	for i := range want {
		if cfg.Tracking.SnapshotThresholds[i] != want[i] {
			t.Errorf("threshold[%d] = %s", i, cfg.Tracking.SnapshotThresholds[i])
		}
	}
	if cfg.Tracking.LocationInterval != 30*time.Second {
		t.Errorf("interval = %s", cfg.Tracking.LocationInterval)
	}
	if cfg.Store.Backend != BackendPostgres {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SNAPSHOT_THRESHOLDS", "24h, 1h30m,6h")
	t.Setenv("TRACKING_ALLOW_AUTO_DRIVER_CREATION", "no")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("STORE", "MEMORY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.Tracking.SnapshotThresholds
	if len(got) != 3 || got[0] != 90*time.Minute || got[2] != 24*time.Hour {
		t.Fatalf("thresholds not sorted: %v", got)
	}
	if cfg.Tracking.AllowAutoDriverCreation {
		t.Error("expected auto driver creation off")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
}

func TestLoadCollectsErrors(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("FRONTEND_CLIENT_TOKEN", "")
	t.Setenv("MOBILE_CLIENT_TOKEN", "m")
	t.Setenv("SNAPSHOT_THRESHOLDS", "6h,6h")
	t.Setenv("STORE", "mongo")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"JWT_SECRET", "FRONTEND_CLIENT_TOKEN", "duplicate", "STORE"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestParseThresholdsRejectsNonPositive(t *testing.T) {
	if _, err := parseThresholds("0s"); err == nil {
		t.Fatal("expected error for zero threshold")
	}
	if _, err := parseThresholds(" , "); err == nil {
		t.Fatal("expected error for empty list")
	}
}

func TestMaxElapsedBelowThreshold(t *testing.T) {
	setRequired(t)
	t.Setenv("SNAPSHOT_MAX_ELAPSED", "12h")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when max elapsed is below 24h")
	}
}

package snapshots

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/events"
	"github.com/rajyashhh/mandinex-truck-application/internal/observability"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

// DefaultThresholds are the 6h, 12h and 24h checkpoints.
var DefaultThresholds = []time.Duration{6 * time.Hour, 12 * time.Hour, 24 * time.Hour}

// Positions marks current positions inactive on an offline handoff.
type Positions interface {
	DeactivateDriver(ctx context.Context, driverID uuid.UUID, exceptPIN string) error
	DeactivatePin(ctx context.Context, pin string) error
}

type Config struct {
	Thresholds []time.Duration
	// MaxElapsed caps the trip age; larger values are treated as clock skew.
	MaxElapsed time.Duration
}

// Scheduler decides when a checkpoint snapshot is due and writes it at most once per kind.
type Scheduler struct {
	store     Store
	positions Positions
	events    events.Publisher
	logger    *zap.Logger
	// descending, so the highest threshold met wins
	thresholds []time.Duration
	maxElapsed time.Duration
	now        func() time.Time
}

func NewScheduler(store Store, positions Positions, pub events.Publisher, logger *zap.Logger, cfg Config) *Scheduler {
	th := append([]time.Duration(nil), cfg.Thresholds...)
	if len(th) == 0 {
		th = append(th, DefaultThresholds...)
	}
	sort.Slice(th, func(i, j int) bool { return th[i] > th[j] })
	if cfg.MaxElapsed < th[0] {
		cfg.MaxElapsed = 7 * 24 * time.Hour
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Scheduler{
		store:      store,
		positions:  positions,
		events:     pub,
		logger:     logger,
		thresholds: th,
		maxElapsed: cfg.MaxElapsed,
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

type Capture struct {
	PIN       string
	DriverID  uuid.UUID
	Phone     phone.Number
	Fix       domain.Fix
	Telemetry domain.Telemetry
	StartedAt time.Time
}

type Decision struct {
	Taken bool
	Kind  domain.SnapshotKind
}

// Elapsed is the trip age, clamped into [0, MaxElapsed].
func (s *Scheduler) Elapsed(pin string, startedAt time.Time) time.Duration {
	elapsed := s.now().Sub(startedAt)
	switch {
	case elapsed < 0:
		observability.ClockSkewClamped.WithLabelValues("negative").Inc()
		s.logger.Warn("trip start is in the future, clamping elapsed to zero",
			zap.String("pin", pin), zap.Time("started_at", startedAt), zap.Duration("elapsed", elapsed))
		return 0
	case elapsed > s.maxElapsed:
		observability.ClockSkewClamped.WithLabelValues("excessive").Inc()
		s.logger.Warn("trip age exceeds maximum, clamping",
			zap.String("pin", pin), zap.Time("started_at", startedAt), zap.Duration("elapsed", elapsed))
		return s.maxElapsed
	}
	return elapsed
}

// Due returns the highest checkpoint reached by elapsed that is not in existing.
func (s *Scheduler) Due(elapsed time.Duration, existing []domain.SnapshotKind) (domain.SnapshotKind, bool) {
	have := make(map[domain.SnapshotKind]bool, len(existing))
	for _, k := range existing {
		have[k] = true
	}
	for _, th := range s.thresholds {
		if elapsed < th {
			continue
		}
		if k := domain.CheckpointKind(th); !have[k] {
			return k, true
		}
	}
	return "", false
}

// MaybeCapture writes at most one checkpoint per call. Losing a concurrent
// insert for the same kind reports Taken=false.
func (s *Scheduler) MaybeCapture(ctx context.Context, c Capture) (Decision, error) {
	elapsed := s.Elapsed(c.PIN, c.StartedAt)
	if elapsed < s.thresholds[len(s.thresholds)-1] {
		return Decision{}, nil
	}
	existing, err := s.store.Kinds(ctx, c.PIN)
	if err != nil {
		return Decision{}, fmt.Errorf("load snapshot kinds: %w", err)
	}
	kind, ok := s.Due(elapsed, existing)
	if !ok {
		return Decision{}, nil
	}

	started := c.StartedAt
	snap := Snapshot{
		DriverID:      c.DriverID,
		DriverPhone:   c.Phone,
		PIN:           c.PIN,
		Latitude:      c.Fix.Latitude,
		Longitude:     c.Fix.Longitude,
		Kind:          kind,
		TripStartedAt: &started,
		Accuracy:      c.Fix.Accuracy,
		BatteryLevel:  c.Telemetry.BatteryLevel,
		NetworkType:   c.Telemetry.NetworkType,
		CapturedAt:    s.now().UTC(),
	}
	inserted, err := s.store.InsertIfAbsent(ctx, snap)
	if err != nil {
		return Decision{}, fmt.Errorf("insert %s snapshot: %w", kind, err)
	}
	if !inserted {
		return Decision{}, nil
	}

	observability.SnapshotsCaptured.WithLabelValues(string(kind)).Inc()
	s.logger.Info("snapshot captured", zap.String("pin", c.PIN), zap.String("kind", string(kind)), zap.Duration("elapsed", elapsed))
	s.publish(ctx, snap)
	return Decision{Taken: true, Kind: kind}, nil
}

type LastLocation struct {
	PIN          string
	DriverID     uuid.UUID
	Phone        phone.Number
	Fix          domain.Fix
	BatteryLevel *float64
	NetworkType  domain.NetworkType
}

// CaptureLastLocation always appends an offline last_location snapshot and
// marks the driver's positions and the PIN's position inactive.
func (s *Scheduler) CaptureLastLocation(ctx context.Context, l LastLocation) (Snapshot, error) {
	snap, err := s.store.Append(ctx, Snapshot{
		DriverID:     l.DriverID,
		DriverPhone:  l.Phone,
		PIN:          l.PIN,
		Latitude:     l.Fix.Latitude,
		Longitude:    l.Fix.Longitude,
		Kind:         domain.LastLocation,
		Accuracy:     l.Fix.Accuracy,
		BatteryLevel: l.BatteryLevel,
		NetworkType:  l.NetworkType,
		Offline:      true,
		CapturedAt:   s.now().UTC(),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("append last location: %w", err)
	}
	if err := s.positions.DeactivateDriver(ctx, l.DriverID, ""); err != nil {
		return snap, fmt.Errorf("deactivate positions: %w", err)
	}
	if err := s.positions.DeactivatePin(ctx, l.PIN); err != nil {
		return snap, fmt.Errorf("deactivate pin position: %w", err)
	}
	observability.SnapshotsCaptured.WithLabelValues(string(domain.LastLocation)).Inc()
	s.publish(ctx, snap)
	return snap, nil
}

// List returns every snapshot for pin, oldest first.
func (s *Scheduler) List(ctx context.Context, pin string) ([]Snapshot, error) {
	return s.store.List(ctx, pin)
}

func (s *Scheduler) publish(ctx context.Context, snap Snapshot) {
	typ := events.SnapshotCaptured
	if snap.Kind == domain.LastLocation {
		typ = events.LocationLastKnown
	}
	err := s.events.Publish(ctx, events.Event{
		Type:     typ,
		PIN:      snap.PIN,
		DriverID: snap.DriverID.String(),
		At:       snap.CapturedAt,
		Data: map[string]any{
			"kind":      string(snap.Kind),
			"latitude":  snap.Latitude,
			"longitude": snap.Longitude,
			"offline":   snap.Offline,
		},
	})
	if err != nil {
		observability.EventPublishFailures.Inc()
		s.logger.Warn("publish snapshot event failed", zap.Error(err))
	}
}

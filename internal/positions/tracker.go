package positions

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/observability"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

// Tracker is the only writer of current positions. The live index is a
// best-effort mirror; its failures never fail a write.
type Tracker struct {
	store  Store
	live   LiveIndex
	logger *zap.Logger
}

// NewTracker accepts a nil live index.
func NewTracker(store Store, live LiveIndex, logger *zap.Logger) *Tracker {
	return &Tracker{store: store, live: live, logger: logger}
}

// Begin marks the driver's other positions inactive, then records the
// trip-start position for pin. The stored capture time is kept, so fixes
// older than one already applied stay stale across a resume.
func (t *Tracker) Begin(ctx context.Context, pin string, driverID uuid.UUID, p phone.Number, lat, lon float64) error {
	if err := t.DeactivateDriver(ctx, driverID, pin); err != nil {
		return err
	}
	err := t.store.Put(ctx, Position{
		PIN:         pin,
		DriverID:    driverID,
		DriverPhone: p,
		Latitude:    lat,
		Longitude:   lon,
		TripActive:  true,
	})
	if err != nil {
		return fmt.Errorf("put start position: %w", err)
	}
	t.mirror(ctx, pin, lat, lon)
	return nil
}

// Apply records a fix unless a later one is already stored.
func (t *Tracker) Apply(ctx context.Context, pos Position) (bool, error) {
	pos.TripActive = true
	applied, err := t.store.PutIfNewer(ctx, pos)
	if err != nil {
		return false, err
	}
	if applied {
		t.mirror(ctx, pos.PIN, pos.Latitude, pos.Longitude)
	}
	return applied, nil
}

// DeactivateDriver marks every active position of the driver inactive, except exceptPIN.
func (t *Tracker) DeactivateDriver(ctx context.Context, driverID uuid.UUID, exceptPIN string) error {
	pins, err := t.store.DeactivateDriver(ctx, driverID, exceptPIN)
	if err != nil {
		return fmt.Errorf("deactivate driver positions: %w", err)
	}
	t.unmirror(ctx, pins...)
	return nil
}

func (t *Tracker) DeactivatePin(ctx context.Context, pin string) error {
	if err := t.store.DeactivatePin(ctx, pin); err != nil {
		return err
	}
	t.unmirror(ctx, pin)
	return nil
}

func (t *Tracker) Current(ctx context.Context, pin string) (Position, error) {
	return t.store.FindByPIN(ctx, pin)
}

// CurrentForDriver returns the driver's active position.
func (t *Tracker) CurrentForDriver(ctx context.Context, p phone.Number) (Position, error) {
	if p.IsZero() {
		return Position{}, ErrNotFound
	}
	return t.store.FindActiveByPhone(ctx, p)
}

func (t *Tracker) Nearby(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]Nearby, error) {
	if t.live == nil {
		return nil, ErrLiveIndexDisabled
	}
	return t.live.Nearby(ctx, lat, lon, radiusKm, limit)
}

func (t *Tracker) mirror(ctx context.Context, pin string, lat, lon float64) {
	if t.live == nil {
		return
	}
	if err := t.live.Update(ctx, pin, lat, lon); err != nil {
		observability.LiveIndexFailures.Inc()
		t.logger.Warn("live index update failed", zap.String("pin", pin), zap.Error(err))
	}
}

func (t *Tracker) unmirror(ctx context.Context, pins ...string) {
	if t.live == nil || len(pins) == 0 {
		return
	}
	if err := t.live.Remove(ctx, pins...); err != nil {
		observability.LiveIndexFailures.Inc()
		t.logger.Warn("live index remove failed", zap.Strings("pins", pins), zap.Error(err))
	}
}

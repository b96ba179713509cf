package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/events"
	"github.com/rajyashhh/mandinex-truck-application/internal/observability"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/util"
)

const PinLength = 6

// Drivers is the part of the driver service the registry needs.
type Drivers interface {
	Lookup(ctx context.Context, p phone.Number) (drivers.Driver, error)
	EnsureUnverified(ctx context.Context, p phone.Number) (drivers.Driver, error)
	Synthetic(ctx context.Context, pin string) (drivers.Driver, error)
	EnsureVehicle(ctx context.Context, plate string) (drivers.Vehicle, error)
}

// Positions owns the current-position rows touched by trip start and finish.
type Positions interface {
	// Begin marks the driver's other positions inactive, then records the
	// initial position for pin.
	Begin(ctx context.Context, pin string, driverID uuid.UUID, p phone.Number, lat, lon float64) error
	DeactivatePin(ctx context.Context, pin string) error
}

type Options struct {
	// AllowAutoDriverCreation lets an unknown phone start a trip as an unverified driver.
	AllowAutoDriverCreation bool
}

// Registry owns the trip lifecycle: scheduled|pending -> active -> completed|cancelled.
type Registry struct {
	store     Store
	drivers   Drivers
	positions Positions
	events    events.Publisher
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewRegistry(store Store, d Drivers, p Positions, pub events.Publisher, logger *zap.Logger, opts Options) *Registry {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Registry{store: store, drivers: d, positions: p, events: pub, logger: logger, opts: opts, now: time.Now}
}

// WithClock replaces the time source; used by tests and replay tools.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

type StartRequest struct {
	Phone     phone.Number
	PIN       string
	Latitude  float64
	Longitude float64
}

type StartResult struct {
	TripID    uuid.UUID
	PIN       string
	Resumed   bool
	StartedAt time.Time
	DriverID  uuid.UUID
}

// ValidPIN reports whether s has the shape of a trip PIN.
func ValidPIN(s string) bool {
	return len(s) == PinLength && util.IsDigits(s)
}

func invalidPin() error {
	return fmt.Errorf("%w: re-confirm the PIN with the person who issued it", domain.ErrInvalidPin)
}

// StartOrResume claims the trip holding pin for the caller, or resumes it
// when the caller already holds it.
func (r *Registry) StartOrResume(ctx context.Context, req StartRequest) (StartResult, error) {
	req.PIN = strings.TrimSpace(req.PIN)
	if !ValidPIN(req.PIN) {
		return StartResult{}, invalidPin()
	}
	if req.Phone.IsZero() {
		return StartResult{}, fmt.Errorf("%w: driverPhone", domain.ErrMissingFields)
	}
	if !domain.ValidCoordinates(req.Latitude, req.Longitude) {
		return StartResult{}, domain.ErrInvalidCoordinates
	}

	// One retry covers losing an activation race: the re-read then sees the winner.
	for attempt := 0; attempt < 2; attempt++ {
		trip, err := r.store.FindClaimable(ctx, req.PIN)
		if errors.Is(err, ErrNotFound) {
			return StartResult{}, invalidPin()
		}
		if err != nil {
			return StartResult{}, err
		}
		if trip.Status == domain.TripActive && !trip.DriverPhone.IsZero() && trip.DriverPhone != req.Phone {
			return StartResult{}, domain.ErrTripAlreadyActive
		}

		driver, err := r.caller(ctx, req.Phone)
		if err != nil {
			return StartResult{}, err
		}

		resumed := trip.Status == domain.TripActive
		if !resumed {
			trip, err = r.store.Activate(ctx, trip.ID, driver.ID, req.Phone, r.now().UTC())
			if errors.Is(err, ErrConflict) {
				r.logger.Info("trip activation raced, re-evaluating", zap.String("pin", req.PIN))
				continue
			}
			if err != nil {
				return StartResult{}, err
			}
		}

		if err := r.positions.Begin(ctx, req.PIN, driver.ID, req.Phone, req.Latitude, req.Longitude); err != nil {
			return StartResult{}, fmt.Errorf("record initial position: %w", err)
		}
		return r.started(ctx, trip, driver.ID, resumed), nil
	}
	return StartResult{}, fmt.Errorf("%w: concurrent activation", domain.ErrTripAlreadyActive)
}

func (r *Registry) caller(ctx context.Context, p phone.Number) (drivers.Driver, error) {
	d, err := r.drivers.Lookup(ctx, p)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, drivers.ErrNotFound) {
		return drivers.Driver{}, err
	}
	if !r.opts.AllowAutoDriverCreation {
		return drivers.Driver{}, domain.ErrDriverNotFound
	}
	return r.drivers.EnsureUnverified(ctx, p)
}

func (r *Registry) started(ctx context.Context, t Trip, driverID uuid.UUID, resumed bool) StartResult {
	res := StartResult{TripID: t.ID, PIN: t.PIN, Resumed: resumed, DriverID: driverID}
	if t.StartedAt != nil {
		res.StartedAt = *t.StartedAt
	}
	outcome := "started"
	if resumed {
		outcome = "resumed"
	}
	observability.TripsStarted.WithLabelValues(outcome).Inc()
	r.logger.Info("trip "+outcome,
		zap.String("trip_id", t.ID.String()),
		zap.String("pin", t.PIN),
		zap.String("driver_id", driverID.String()),
	)
	if !resumed {
		r.publish(ctx, events.Event{
			Type:     events.TripStarted,
			PIN:      t.PIN,
			DriverID: driverID.String(),
			At:       res.StartedAt,
			Data:     map[string]any{"trip_id": t.ID.String()},
		})
	}
	return res
}

// ActiveTrip returns the active trip holding pin.
func (r *Registry) ActiveTrip(ctx context.Context, pin string) (Trip, error) {
	t, err := r.store.FindActive(ctx, strings.TrimSpace(pin))
	if errors.Is(err, ErrNotFound) {
		return Trip{}, domain.ErrTripNotFound
	}
	return t, err
}

// TripStartTime is the start of the active trip holding pin.
func (r *Registry) TripStartTime(ctx context.Context, pin string) (time.Time, error) {
	t, err := r.ActiveTrip(ctx, pin)
	if err != nil {
		return time.Time{}, err
	}
	return StartOf(t), nil
}

// StartOf falls back to the creation time for trips activated outside StartOrResume.
func StartOf(t Trip) time.Time {
	if t.StartedAt != nil {
		return *t.StartedAt
	}
	return t.CreatedAt
}

// ResolveDriver returns the trip's driver, substituting and persisting the
// synthetic driver for this PIN when none is set.
func (r *Registry) ResolveDriver(ctx context.Context, t Trip) (uuid.UUID, error) {
	if t.DriverID != nil {
		return *t.DriverID, nil
	}
	d, err := r.drivers.Synthetic(ctx, t.PIN)
	if err != nil {
		return uuid.Nil, fmt.Errorf("synthetic driver: %w", err)
	}
	updated, err := r.store.AssignDriver(ctx, t.ID, d.ID)
	if err != nil {
		return uuid.Nil, err
	}
	r.logger.Warn("trip had no driver, assigned synthetic driver",
		zap.String("pin", t.PIN),
		zap.String("driver_id", d.ID.String()),
	)
	return *updated.DriverID, nil
}

type ScheduleRequest struct {
	// PIN is generated when empty.
	PIN          string
	VehiclePlate string
	Status       domain.TripStatus // scheduled (default) or pending
}

// Schedule creates a trip waiting for its driver. PINs are never reused, so
// current positions and snapshots keyed by PIN always belong to one trip.
func (r *Registry) Schedule(ctx context.Context, req ScheduleRequest) (Trip, error) {
	status := req.Status
	if status == "" {
		status = domain.TripScheduled
	}
	if status != domain.TripScheduled && status != domain.TripPending {
		return Trip{}, fmt.Errorf("%w: status must be scheduled or pending", domain.ErrMissingFields)
	}

	pin, err := r.pickPIN(ctx, strings.TrimSpace(req.PIN))
	if err != nil {
		return Trip{}, err
	}

	t := Trip{PIN: pin, Status: status}
	if strings.TrimSpace(req.VehiclePlate) != "" {
		v, err := r.drivers.EnsureVehicle(ctx, req.VehiclePlate)
		if err != nil {
			return Trip{}, fmt.Errorf("vehicle: %w", err)
		}
		t.VehicleID = &v.ID
	}
	created, err := r.store.Create(ctx, t)
	if err != nil {
		return Trip{}, err
	}
	r.logger.Info("trip scheduled", zap.String("trip_id", created.ID.String()), zap.String("pin", created.PIN))
	return created, nil
}

func (r *Registry) pickPIN(ctx context.Context, requested string) (string, error) {
	if requested != "" {
		if !ValidPIN(requested) {
			return "", invalidPin()
		}
		used, err := r.store.PinInUse(ctx, requested)
		if err != nil {
			return "", err
		}
		if used {
			return "", ErrPinInUse
		}
		return requested, nil
	}
	for i := 0; i < 20; i++ {
		pin, err := util.GenerateDigits(PinLength)
		if err != nil {
			return "", err
		}
		used, err := r.store.PinInUse(ctx, pin)
		if err != nil {
			return "", err
		}
		if !used {
			return pin, nil
		}
	}
	return "", fmt.Errorf("no free pin after 20 attempts")
}

// Finish ends a trip. Active trips may complete or cancel; trips that never
// started may only be cancelled.
func (r *Registry) Finish(ctx context.Context, id uuid.UUID, to domain.TripStatus) (Trip, error) {
	if !to.Terminal() {
		return Trip{}, fmt.Errorf("%w: status must be completed or cancelled", domain.ErrMissingFields)
	}
	t, err := r.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Trip{}, domain.ErrTripNotFound
	}
	if err != nil {
		return Trip{}, err
	}
	switch {
	case t.Status == domain.TripActive:
	case to == domain.TripCancelled && (t.Status == domain.TripScheduled || t.Status == domain.TripPending):
	default:
		return Trip{}, fmt.Errorf("%w: trip is %s", ErrConflict, t.Status)
	}

	finished, err := r.store.Finish(ctx, id, t.Status, to, r.now().UTC())
	if err != nil {
		return Trip{}, err
	}
	if t.Status == domain.TripActive {
		if err := r.positions.DeactivatePin(ctx, t.PIN); err != nil {
			r.logger.Warn("deactivate position failed", zap.String("pin", t.PIN), zap.Error(err))
		}
	}
	var driverID string
	if finished.DriverID != nil {
		driverID = finished.DriverID.String()
	}
	r.publish(ctx, events.Event{
		Type:     events.TripFinished,
		PIN:      finished.PIN,
		DriverID: driverID,
		At:       *finished.EndedAt,
		Data:     map[string]any{"trip_id": finished.ID.String(), "status": string(to)},
	})
	return finished, nil
}

func (r *Registry) publish(ctx context.Context, e events.Event) {
	if err := r.events.Publish(ctx, e); err != nil {
		observability.EventPublishFailures.Inc()
		r.logger.Warn("publish event failed", zap.String("type", e.Type), zap.Error(err))
	}
}

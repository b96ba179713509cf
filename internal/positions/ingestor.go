package positions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/events"
	"github.com/rajyashhh/mandinex-truck-application/internal/observability"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/snapshots"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

// Trips is the part of the trip registry ingestion reads from.
type Trips interface {
	ActiveTrip(ctx context.Context, pin string) (trips.Trip, error)
	ResolveDriver(ctx context.Context, t trips.Trip) (uuid.UUID, error)
}

type Snapshots interface {
	MaybeCapture(ctx context.Context, c snapshots.Capture) (snapshots.Decision, error)
	CaptureLastLocation(ctx context.Context, l snapshots.LastLocation) (snapshots.Snapshot, error)
}

// IngestRequest is one device fix. Latitude and Longitude are pointers so a
// missing coordinate is distinguishable from zero.
type IngestRequest struct {
	PIN          string
	Phone        phone.Number
	Latitude     *float64
	Longitude    *float64
	Speed        *float64
	Heading      *float64
	Altitude     *float64
	Accuracy     *float64
	BatteryLevel *float64
	NetworkType  domain.NetworkType
	// RecordedAt is the device capture time; server time when nil.
	RecordedAt *time.Time
}

type IngestResult struct {
	SnapshotTaken   bool
	SnapshotKind    domain.SnapshotKind
	PositionUpdated bool
}

type SuspendRequest struct {
	PIN          string
	Phone        phone.Number
	Latitude     *float64
	Longitude    *float64
	Accuracy     *float64
	BatteryLevel *float64
	NetworkType  domain.NetworkType
}

// MaxFutureSkew is how far ahead of server time a device capture time may be.
const MaxFutureSkew = 2 * time.Minute

type Ingestor struct {
	trips     Trips
	tracker   *Tracker
	snapshots Snapshots
	events    events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewIngestor(t Trips, tracker *Tracker, s Snapshots, pub events.Publisher, logger *zap.Logger) *Ingestor {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Ingestor{trips: t, tracker: tracker, snapshots: s, events: pub, logger: logger, now: time.Now}
}

func (in *Ingestor) WithClock(now func() time.Time) *Ingestor {
	in.now = now
	return in
}

// Ingest records a fix for the active trip holding req.PIN and lets the
// scheduler decide on a checkpoint snapshot. Snapshot failures never fail
// the call.
func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	req.PIN = strings.TrimSpace(req.PIN)
	lat, lon, err := requireFix(req.PIN, req.Phone, req.Latitude, req.Longitude)
	if err != nil {
		observability.LocationsIngested.WithLabelValues("rejected").Inc()
		return IngestResult{}, err
	}

	trip, driverID, err := in.resolve(ctx, req.PIN, req.Phone)
	if err != nil {
		observability.LocationsIngested.WithLabelValues("rejected").Inc()
		return IngestResult{}, err
	}

	recordedAt := in.recordedAt(req)
	fix := domain.Fix{
		Latitude:   lat,
		Longitude:  lon,
		Speed:      req.Speed,
		Heading:    req.Heading,
		Altitude:   req.Altitude,
		Accuracy:   req.Accuracy,
		RecordedAt: recordedAt,
	}

	applied, err := in.tracker.Apply(ctx, Position{
		PIN:         req.PIN,
		DriverID:    driverID,
		DriverPhone: req.Phone,
		Latitude:    lat,
		Longitude:   lon,
		Speed:       req.Speed,
		Heading:     req.Heading,
		Altitude:    req.Altitude,
		Accuracy:    req.Accuracy,
		RecordedAt:  &recordedAt,
	})
	if err != nil {
		return IngestResult{}, fmt.Errorf("upsert position: %w", err)
	}
	res := IngestResult{PositionUpdated: applied}
	if applied {
		observability.LocationsIngested.WithLabelValues("applied").Inc()
	} else {
		observability.LocationsIngested.WithLabelValues("stale").Inc()
		in.logger.Info("stale fix ignored", zap.String("pin", req.PIN), zap.Time("recorded_at", recordedAt))
	}

	decision, err := in.snapshots.MaybeCapture(ctx, snapshots.Capture{
		PIN:       req.PIN,
		DriverID:  driverID,
		Phone:     req.Phone,
		Fix:       fix,
		Telemetry: domain.Telemetry{BatteryLevel: req.BatteryLevel, NetworkType: req.NetworkType},
		StartedAt: trips.StartOf(trip),
	})
	if err != nil {
		observability.SnapshotFailures.Inc()
		in.logger.Error("snapshot capture failed", zap.String("pin", req.PIN), zap.Error(err))
	} else if decision.Taken {
		res.SnapshotTaken = true
		res.SnapshotKind = decision.Kind
	}

	if applied {
		in.publish(ctx, events.Event{
			Type:     events.LocationUpdated,
			PIN:      req.PIN,
			DriverID: driverID.String(),
			At:       recordedAt,
			Data: map[string]any{
				"latitude":  lat,
				"longitude": lon,
				"speed":     req.Speed,
				"heading":   req.Heading,
			},
		})
	}
	return res, nil
}

// Suspend handles the offline handoff: the last known fix is stored as a
// last_location snapshot and the driver's positions go inactive.
func (in *Ingestor) Suspend(ctx context.Context, req SuspendRequest) (snapshots.Snapshot, error) {
	req.PIN = strings.TrimSpace(req.PIN)
	lat, lon, err := requireFix(req.PIN, req.Phone, req.Latitude, req.Longitude)
	if err != nil {
		return snapshots.Snapshot{}, err
	}
	_, driverID, err := in.resolve(ctx, req.PIN, req.Phone)
	if err != nil {
		return snapshots.Snapshot{}, err
	}
	snap, err := in.snapshots.CaptureLastLocation(ctx, snapshots.LastLocation{
		PIN:          req.PIN,
		DriverID:     driverID,
		Phone:        req.Phone,
		Fix:          domain.Fix{Latitude: lat, Longitude: lon, Accuracy: req.Accuracy, RecordedAt: in.now().UTC()},
		BatteryLevel: req.BatteryLevel,
		NetworkType:  req.NetworkType,
	})
	if err != nil {
		return snapshots.Snapshot{}, err
	}
	in.logger.Info("last location captured", zap.String("pin", req.PIN), zap.String("driver_id", driverID.String()))
	return snap, nil
}

// recordedAt is the device capture time, or server time when absent or too
// far ahead; a future time would block later fixes as stale.
func (in *Ingestor) recordedAt(req IngestRequest) time.Time {
	now := in.now().UTC()
	if req.RecordedAt == nil || req.RecordedAt.IsZero() {
		return now
	}
	at := req.RecordedAt.UTC()
	if at.After(now.Add(MaxFutureSkew)) {
		observability.ClockSkewClamped.WithLabelValues("future").Inc()
		in.logger.Warn("device clock ahead, using server time",
			zap.String("pin", req.PIN), zap.Time("recorded_at", at), zap.Time("now", now))
		return now
	}
	return at
}

func (in *Ingestor) resolve(ctx context.Context, pin string, p phone.Number) (trips.Trip, uuid.UUID, error) {
	trip, err := in.trips.ActiveTrip(ctx, pin)
	if err != nil {
		return trips.Trip{}, uuid.Nil, err
	}
	// Trips record the phone that started them; another phone cannot post for it.
	if !trip.DriverPhone.IsZero() && trip.DriverPhone != p {
		return trips.Trip{}, uuid.Nil, fmt.Errorf("%w: no active trip for this phone and PIN", domain.ErrTripNotFound)
	}
	driverID, err := in.trips.ResolveDriver(ctx, trip)
	if err != nil {
		return trips.Trip{}, uuid.Nil, err
	}
	return trip, driverID, nil
}

func requireFix(pin string, p phone.Number, lat, lon *float64) (float64, float64, error) {
	var missing []string
	if pin == "" {
		missing = append(missing, "tripId")
	}
	if p.IsZero() {
		missing = append(missing, "driverPhone")
	}
	if lat == nil {
		missing = append(missing, "latitude")
	}
	if lon == nil {
		missing = append(missing, "longitude")
	}
	if len(missing) > 0 {
		return 0, 0, fmt.Errorf("%w: %s", domain.ErrMissingFields, strings.Join(missing, ", "))
	}
	if !domain.ValidCoordinates(*lat, *lon) {
		return 0, 0, domain.ErrInvalidCoordinates
	}
	return *lat, *lon, nil
}

func (in *Ingestor) publish(ctx context.Context, e events.Event) {
	if err := in.events.Publish(ctx, e); err != nil {
		observability.EventPublishFailures.Inc()
		in.logger.Warn("publish event failed", zap.String("type", e.Type), zap.Error(err))
	}
}

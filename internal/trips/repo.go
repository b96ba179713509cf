package trips

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajyashhh/mandinex-truck-application/internal/db"
	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

const activePinIndex = "trips_active_pin_key"

// Repo is the Postgres Store.
type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

const tripColumns = `id, vehicle_id, ride_pin, status, driver_id, driver_phone, started_at, ended_at, created_at, updated_at`

func (r *Repo) FindClaimable(ctx context.Context, pin string) (Trip, error) {
	const q = `
SELECT ` + tripColumns + `
FROM trips
WHERE ride_pin = $1 AND status IN ('active', 'scheduled', 'pending')
ORDER BY (status = 'active') DESC, created_at ASC
LIMIT 1`
	return scanTrip(r.pg.QueryRow(ctx, q, pin))
}

func (r *Repo) FindActive(ctx context.Context, pin string) (Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE ride_pin = $1 AND status = 'active' LIMIT 1`
	return scanTrip(r.pg.QueryRow(ctx, q, pin))
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	return scanTrip(r.pg.QueryRow(ctx, q, id))
}

func (r *Repo) PinInUse(ctx context.Context, pin string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM trips WHERE ride_pin = $1)`
	var used bool
	if err := r.pg.QueryRow(ctx, q, pin).Scan(&used); err != nil {
		return false, db.Classify(err)
	}
	return used, nil
}

func (r *Repo) Create(ctx context.Context, t Trip) (Trip, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	const q = `
INSERT INTO trips (id, vehicle_id, ride_pin, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
RETURNING ` + tripColumns
	return scanTrip(r.pg.QueryRow(ctx, q, t.ID, t.VehicleID, t.PIN, string(t.Status)))
}

func (r *Repo) Activate(ctx context.Context, id, driverID uuid.UUID, p phone.Number, at time.Time) (Trip, error) {
	const q = `
UPDATE trips
SET status = 'active',
    driver_id = $2,
    driver_phone = $3,
    started_at = $4,
    updated_at = now()
WHERE id = $1 AND status IN ('scheduled', 'pending')
RETURNING ` + tripColumns
	t, err := scanTrip(r.pg.QueryRow(ctx, q, id, driverID, string(p), at))
	switch {
	case errors.Is(err, ErrNotFound):
		return Trip{}, ErrConflict
	case db.IsUniqueViolation(err, activePinIndex):
		return Trip{}, ErrConflict
	}
	return t, err
}

func (r *Repo) AssignDriver(ctx context.Context, id, driverID uuid.UUID) (Trip, error) {
	const q = `
UPDATE trips
SET driver_id = COALESCE(driver_id, $2),
    updated_at = now()
WHERE id = $1
RETURNING ` + tripColumns
	return scanTrip(r.pg.QueryRow(ctx, q, id, driverID))
}

func (r *Repo) Finish(ctx context.Context, id uuid.UUID, from, to domain.TripStatus, at time.Time) (Trip, error) {
	const q = `
UPDATE trips
SET status = $3,
    ended_at = $4,
    updated_at = now()
WHERE id = $1 AND status = $2
RETURNING ` + tripColumns
	t, err := scanTrip(r.pg.QueryRow(ctx, q, id, string(from), string(to), at))
	if errors.Is(err, ErrNotFound) {
		return Trip{}, ErrConflict
	}
	return t, err
}

func scanTrip(row pgx.Row) (Trip, error) {
	var (
		t      Trip
		status string
		ph     *string
	)
	err := row.Scan(&t.ID, &t.VehicleID, &t.PIN, &status, &t.DriverID, &ph, &t.StartedAt, &t.EndedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Trip{}, ErrNotFound
		}
		return Trip{}, db.Classify(err)
	}
	t.Status = domain.TripStatus(status)
	if ph != nil {
		t.DriverPhone = phone.Number(*ph)
	}
	return t, nil
}

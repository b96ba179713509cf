package positions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajyashhh/mandinex-truck-application/internal/db"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

const positionColumns = `trip_pin, driver_id, driver_phone, latitude, longitude, speed, heading, altitude, accuracy,
  trip_active, recorded_at, last_updated`

const upsertPosition = `
INSERT INTO current_locations
  (trip_pin, driver_id, driver_phone, latitude, longitude, speed, heading, altitude, accuracy,
   trip_active, recorded_at, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
ON CONFLICT (trip_pin) DO UPDATE SET
  driver_id = EXCLUDED.driver_id,
  driver_phone = EXCLUDED.driver_phone,
  latitude = EXCLUDED.latitude,
  longitude = EXCLUDED.longitude,
  speed = EXCLUDED.speed,
  heading = EXCLUDED.heading,
  altitude = EXCLUDED.altitude,
  accuracy = EXCLUDED.accuracy,
  trip_active = EXCLUDED.trip_active,
  recorded_at = COALESCE(EXCLUDED.recorded_at, current_locations.recorded_at),
  last_updated = now()`

func (r *Repo) Put(ctx context.Context, pos Position) error {
	_, err := r.pg.Exec(ctx, upsertPosition, upsertArgs(pos)...)
	return db.Classify(err)
}

func (r *Repo) PutIfNewer(ctx context.Context, pos Position) (bool, error) {
	const q = upsertPosition + `
WHERE current_locations.recorded_at IS NULL
   OR EXCLUDED.recorded_at IS NULL
   OR current_locations.recorded_at <= EXCLUDED.recorded_at`
	tag, err := r.pg.Exec(ctx, q, upsertArgs(pos)...)
	if err != nil {
		return false, db.Classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) DeactivateDriver(ctx context.Context, driverID uuid.UUID, exceptPIN string) ([]string, error) {
	const q = `
UPDATE current_locations
SET trip_active = false, last_updated = now()
WHERE driver_id = $1 AND trip_active AND trip_pin <> $2
RETURNING trip_pin`
	rows, err := r.pg.Query(ctx, q, driverID, exceptPIN)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var pins []string
	for rows.Next() {
		var pin string
		if err := rows.Scan(&pin); err != nil {
			return nil, db.Classify(err)
		}
		pins = append(pins, pin)
	}
	return pins, db.Classify(rows.Err())
}

func (r *Repo) DeactivatePin(ctx context.Context, pin string) error {
	const q = `UPDATE current_locations SET trip_active = false, last_updated = now() WHERE trip_pin = $1`
	_, err := r.pg.Exec(ctx, q, pin)
	return db.Classify(err)
}

func (r *Repo) FindByPIN(ctx context.Context, pin string) (Position, error) {
	const q = `SELECT ` + positionColumns + ` FROM current_locations WHERE trip_pin = $1`
	return scanPosition(r.pg.QueryRow(ctx, q, pin))
}

func (r *Repo) FindActiveByPhone(ctx context.Context, p phone.Number) (Position, error) {
	const q = `
SELECT ` + positionColumns + `
FROM current_locations
WHERE driver_phone = $1 AND trip_active
ORDER BY last_updated DESC
LIMIT 1`
	return scanPosition(r.pg.QueryRow(ctx, q, string(p)))
}

func upsertArgs(pos Position) []any {
	var ph *string
	if !pos.DriverPhone.IsZero() {
		v := string(pos.DriverPhone)
		ph = &v
	}
	return []any{
		pos.PIN, pos.DriverID, ph, pos.Latitude, pos.Longitude,
		pos.Speed, pos.Heading, pos.Altitude, pos.Accuracy,
		pos.TripActive, pos.RecordedAt,
	}
}

func scanPosition(row pgx.Row) (Position, error) {
	var (
		p  Position
		ph *string
	)
	err := row.Scan(&p.PIN, &p.DriverID, &ph, &p.Latitude, &p.Longitude, &p.Speed, &p.Heading, &p.Altitude, &p.Accuracy,
		&p.TripActive, &p.RecordedAt, &p.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Position{}, ErrNotFound
		}
		return Position{}, db.Classify(err)
	}
	if ph != nil {
		p.DriverPhone = phone.Number(*ph)
	}
	return p, nil
}

package snapshots

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajyashhh/mandinex-truck-application/internal/db"
	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

const snapshotColumns = `id, driver_id, driver_phone, trip_pin, latitude, longitude, kind, trip_started_at,
  accuracy, battery_level, network_type, offline_capture, captured_at`

func (r *Repo) Kinds(ctx context.Context, pin string) ([]domain.SnapshotKind, error) {
	const q = `SELECT DISTINCT kind FROM location_snapshots WHERE trip_pin = $1`
	rows, err := r.pg.Query(ctx, q, pin)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	var out []domain.SnapshotKind
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, db.Classify(err)
		}
		out = append(out, domain.SnapshotKind(k))
	}
	return out, db.Classify(rows.Err())
}

func (r *Repo) InsertIfAbsent(ctx context.Context, s Snapshot) (bool, error) {
	const q = `
INSERT INTO location_snapshots
  (driver_id, driver_phone, trip_pin, latitude, longitude, kind, trip_started_at,
   accuracy, battery_level, network_type, offline_capture, captured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (trip_pin, kind) WHERE kind <> 'last_location' DO NOTHING`
	tag, err := r.pg.Exec(ctx, q, insertArgs(s)...)
	if err != nil {
		return false, db.Classify(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repo) Append(ctx context.Context, s Snapshot) (Snapshot, error) {
	const q = `
INSERT INTO location_snapshots
  (driver_id, driver_phone, trip_pin, latitude, longitude, kind, trip_started_at,
   accuracy, battery_level, network_type, offline_capture, captured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + snapshotColumns
	return scanSnapshot(r.pg.QueryRow(ctx, q, insertArgs(s)...))
}

func (r *Repo) List(ctx context.Context, pin string) ([]Snapshot, error) {
	const q = `SELECT ` + snapshotColumns + ` FROM location_snapshots WHERE trip_pin = $1 ORDER BY captured_at ASC, id ASC`
	rows, err := r.pg.Query(ctx, q, pin)
	if err != nil {
		return nil, db.Classify(err)
	}
	defer rows.Close()
	out := []Snapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, db.Classify(rows.Err())
}

func insertArgs(s Snapshot) []any {
	var ph, network *string
	if !s.DriverPhone.IsZero() {
		v := string(s.DriverPhone)
		ph = &v
	}
	if s.NetworkType != "" {
		v := string(s.NetworkType)
		network = &v
	}
	return []any{
		s.DriverID, ph, s.PIN, s.Latitude, s.Longitude, string(s.Kind), s.TripStartedAt,
		s.Accuracy, s.BatteryLevel, network, s.Offline, s.CapturedAt,
	}
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		s           Snapshot
		ph, network *string
		kind        string
	)
	err := row.Scan(&s.ID, &s.DriverID, &ph, &s.PIN, &s.Latitude, &s.Longitude, &kind, &s.TripStartedAt,
		&s.Accuracy, &s.BatteryLevel, &network, &s.Offline, &s.CapturedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, errors.New("snapshot insert returned no row")
		}
		return Snapshot{}, db.Classify(err)
	}
	s.Kind = domain.SnapshotKind(kind)
	if ph != nil {
		s.DriverPhone = phone.Number(*ph)
	}
	if network != nil {
		s.NetworkType = domain.NetworkType(*network)
	}
	return s, nil
}

package drivers

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

var ErrNotFound = domain.ErrDriverNotFound

// Repo is the Postgres Store.
type Repo struct {
	pg *pgxpool.Pool
}

func NewRepo(pg *pgxpool.Pool) *Repo {
	return &Repo{pg: pg}
}

const driverColumns = `id, phone, name, license_number, driver_pin, identity, phone_verified_at, created_at, updated_at`

func (r *Repo) FindByPhone(ctx context.Context, p phone.Number) (Driver, error) {
	const q = `SELECT ` + driverColumns + ` FROM drivers WHERE phone = $1 LIMIT 1`
	return scanDriver(r.pg.QueryRow(ctx, q, string(p)))
}

func (r *Repo) FindByID(ctx context.Context, id uuid.UUID) (Driver, error) {
	const q = `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1 LIMIT 1`
	return scanDriver(r.pg.QueryRow(ctx, q, id))
}

func (r *Repo) Ensure(ctx context.Context, d Driver) (Driver, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	// The no-op DO UPDATE makes RETURNING yield the existing row.
	if d.Phone.IsZero() {
		const q = `
INSERT INTO drivers (id, phone, name, identity, created_at, updated_at)
VALUES ($1, NULL, $2, $3, now(), now())
ON CONFLICT (id) DO UPDATE SET id = drivers.id
RETURNING ` + driverColumns
		return scanDriver(r.pg.QueryRow(ctx, q, d.ID, d.Name, string(d.Identity)))
	}
	const q = `
INSERT INTO drivers (id, phone, name, identity, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (phone) DO UPDATE SET phone = drivers.phone
RETURNING ` + driverColumns
	return scanDriver(r.pg.QueryRow(ctx, q, d.ID, string(d.Phone), d.Name, string(d.Identity)))
}

func (r *Repo) UpdateProfile(ctx context.Context, id uuid.UUID, p Profile, identity domain.Identity) (Driver, error) {
	const q = `
UPDATE drivers
SET name = COALESCE($2, name),
    license_number = COALESCE($3, license_number),
    identity = $4,
    updated_at = now()
WHERE id = $1
RETURNING ` + driverColumns
	return scanDriver(r.pg.QueryRow(ctx, q, id, p.Name, p.LicenseNumber, string(identity)))
}

func (r *Repo) MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE drivers SET phone_verified_at = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pg.Exec(ctx, q, id, at)
	if err != nil {
		return db.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) EnsureVehicle(ctx context.Context, plate string) (Vehicle, error) {
	const q = `
INSERT INTO vehicles (id, plate_number)
VALUES ($1, $2)
ON CONFLICT (plate_number) DO UPDATE SET plate_number = vehicles.plate_number
RETURNING id, plate_number, driver_id`
	var v Vehicle
	err := r.pg.QueryRow(ctx, q, uuid.New(), plate).Scan(&v.ID, &v.PlateNumber, &v.DriverID)
	if err != nil {
		return Vehicle{}, db.Classify(err)
	}
	return v, nil
}

func scanDriver(row pgx.Row) (Driver, error) {
	var (
		d        Driver
		ph       *string
		identity string
	)
	err := row.Scan(&d.ID, &ph, &d.Name, &d.LicenseNumber, &d.DriverPIN, &identity, &d.PhoneVerifiedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Driver{}, ErrNotFound
		}
		return Driver{}, db.Classify(err)
	}
	if ph != nil {
		d.Phone = phone.Number(*ph)
	}
	d.Identity = domain.Identity(identity)
	return d, nil
}

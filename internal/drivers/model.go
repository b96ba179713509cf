package drivers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

// Mirrors the `drivers` table.
type Driver struct {
	ID              uuid.UUID       `json:"id"`
	Phone           phone.Number    `json:"phone,omitempty"`
	Name            *string         `json:"name"`
	LicenseNumber   *string         `json:"license_number"`
	DriverPIN       *string         `json:"-"` // legacy, never used for trip auth
	Identity        domain.Identity `json:"identity"`
	PhoneVerifiedAt *time.Time      `json:"phone_verified_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Vehicle struct {
	ID          uuid.UUID  `json:"id"`
	PlateNumber string     `json:"plate_number"`
	DriverID    *uuid.UUID `json:"driver_id"`
}

// Profile holds the registration fields a driver may edit; nil keeps the stored value.
type Profile struct {
	Name          *string
	LicenseNumber *string
}

// Store persists drivers and vehicles.
type Store interface {
	FindByPhone(ctx context.Context, p phone.Number) (Driver, error)
	FindByID(ctx context.Context, id uuid.UUID) (Driver, error)
	// Ensure inserts d, or returns the stored row that already holds its
	// phone (or its id, for phoneless drivers). Existing rows are not changed.
	Ensure(ctx context.Context, d Driver) (Driver, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p Profile, identity domain.Identity) (Driver, error)
	MarkVerified(ctx context.Context, id uuid.UUID, at time.Time) error
	EnsureVehicle(ctx context.Context, plate string) (Vehicle, error)
}

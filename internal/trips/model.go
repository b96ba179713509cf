package trips

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

var (
	ErrNotFound = errors.New("trip not found")
	// ErrConflict: the trip changed state between read and write.
	ErrConflict = errors.New("trip state changed concurrently")
	ErrPinInUse = errors.New("pin already used by another trip")
)

// Mirrors the `trips` table.
type Trip struct {
	ID          uuid.UUID         `json:"id"`
	VehicleID   *uuid.UUID        `json:"vehicle_id"`
	PIN         string            `json:"ride_pin"`
	Status      domain.TripStatus `json:"status"`
	DriverID    *uuid.UUID        `json:"driver_id"`
	DriverPhone phone.Number      `json:"driver_phone,omitempty"` // zero when unset
	StartedAt   *time.Time        `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Store persists trips. Each method is one atomic statement.
type Store interface {
	// FindClaimable returns the active trip holding pin, else the oldest
	// scheduled or pending one.
	FindClaimable(ctx context.Context, pin string) (Trip, error)
	FindActive(ctx context.Context, pin string) (Trip, error)
	FindByID(ctx context.Context, id uuid.UUID) (Trip, error)
	PinInUse(ctx context.Context, pin string) (bool, error)
	Create(ctx context.Context, t Trip) (Trip, error)
	// Activate moves a scheduled or pending trip to active. Returns
	// ErrConflict when the trip is no longer claimable or another trip
	// already holds the PIN.
	Activate(ctx context.Context, id, driverID uuid.UUID, p phone.Number, at time.Time) (Trip, error)
	// AssignDriver sets the driver only when none is set and returns the stored trip.
	AssignDriver(ctx context.Context, id, driverID uuid.UUID) (Trip, error)
	// Finish moves the trip from one status to a terminal one; ErrConflict if it is no longer in from.
	Finish(ctx context.Context, id uuid.UUID, from, to domain.TripStatus, at time.Time) (Trip, error)
}

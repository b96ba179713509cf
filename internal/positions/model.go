package positions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

var ErrNotFound = errors.New("position not found")

// Position mirrors `current_locations`: one row per trip PIN.
type Position struct {
	PIN         string       `json:"trip_pin"`
	DriverID    uuid.UUID    `json:"driver_id"`
	DriverPhone phone.Number `json:"driver_phone,omitempty"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	Speed       *float64     `json:"speed"`
	Heading     *float64     `json:"heading"`
	Altitude    *float64     `json:"altitude"`
	Accuracy    *float64     `json:"accuracy"`
	TripActive  bool         `json:"trip_active"`
	// RecordedAt is the device capture time; nil until the first fix.
	RecordedAt  *time.Time `json:"recorded_at"`
	LastUpdated time.Time  `json:"last_updated"`
}

type Store interface {
	// Put overwrites the row for pos.PIN unconditionally; a nil RecordedAt
	// keeps the stored one.
	Put(ctx context.Context, pos Position) error
	// PutIfNewer overwrites the row unless it holds a later RecordedAt;
	// reports whether the write was applied.
	PutIfNewer(ctx context.Context, pos Position) (bool, error)
	// DeactivateDriver clears trip_active on the driver's rows except
	// exceptPIN and returns the PINs it changed.
	DeactivateDriver(ctx context.Context, driverID uuid.UUID, exceptPIN string) ([]string, error)
	DeactivatePin(ctx context.Context, pin string) error
	FindByPIN(ctx context.Context, pin string) (Position, error)
	// FindActiveByPhone returns the most recently updated active row for the phone.
	FindActiveByPhone(ctx context.Context, p phone.Number) (Position, error)
}

package snapshots

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

// Mirrors the append-only `location_snapshots` table.
type Snapshot struct {
	ID            int64               `json:"id"`
	DriverID      uuid.UUID           `json:"driver_id"`
	DriverPhone   phone.Number        `json:"driver_phone,omitempty"`
	PIN           string              `json:"trip_id"` // ride PIN, named as the clients read it
	Latitude      float64             `json:"latitude"`
	Longitude     float64             `json:"longitude"`
	Kind          domain.SnapshotKind `json:"snapshot_type"`
	TripStartedAt *time.Time          `json:"trip_start_time"`
	Accuracy      *float64            `json:"location_accuracy"`
	BatteryLevel  *float64            `json:"battery_level"`
	NetworkType   domain.NetworkType  `json:"network_type,omitempty"`
	Offline       bool                `json:"is_offline_capture"`
	CapturedAt    time.Time           `json:"captured_at"`
}

type Store interface {
	Kinds(ctx context.Context, pin string) ([]domain.SnapshotKind, error)
	// InsertIfAbsent writes a checkpoint unless one of the same kind exists
	// for the PIN; reports whether the row was written.
	InsertIfAbsent(ctx context.Context, s Snapshot) (bool, error)
	// Append writes unconditionally (last_location rows).
	Append(ctx context.Context, s Snapshot) (Snapshot, error)
	// List returns snapshots for pin ordered by capture time.
	List(ctx context.Context, pin string) ([]Snapshot, error)
}

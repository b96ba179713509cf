package infra_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/db"
	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/migrations"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
	"github.com/rajyashhh/mandinex-truck-application/internal/snapshots"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

// testPool connects to a throwaway database named by TEST_POSTGRES_DSN,
// migrates it and empties the tracking tables.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	if err := migrations.Up(dsn); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	pool, err := db.NewPostgres(ctx, config.Postgres{DSN: dsn, MaxConns: 4, ConnectTimeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(ctx, `TRUNCATE location_snapshots, current_locations, trips, vehicles, drivers CASCADE`); err != nil {
		t.Fatal(err)
	}
	return pool
}

func TestPostgres_TripActivationIsConditional(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := trips.NewRepo(pool)

	driver, err := drivers.NewRepo(pool).Ensure(ctx, drivers.Driver{Phone: "7985113984", Identity: domain.IdentityUnverified})
	if err != nil {
		t.Fatal(err)
	}
	first, err := repo.Create(ctx, trips.Trip{PIN: "123456", Status: domain.TripScheduled})
	if err != nil {
		t.Fatal(err)
	}
	at := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	active, err := repo.Activate(ctx, first.ID, driver.ID, driver.Phone, at)
	if err != nil || active.Status != domain.TripActive || active.StartedAt == nil || !active.StartedAt.Equal(at) {
		t.Fatalf("activate: %+v, %v", active, err)
	}
	if _, err := repo.Activate(ctx, first.ID, driver.ID, driver.Phone, at); !errors.Is(err, trips.ErrConflict) {
		t.Fatalf("second activation: %v", err)
	}

	// The partial unique index allows one active trip per PIN.
	second, err := repo.Create(ctx, trips.Trip{PIN: "123456", Status: domain.TripScheduled})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Activate(ctx, second.ID, driver.ID, driver.Phone, at); !errors.Is(err, trips.ErrConflict) {
		t.Fatalf("activation of a second trip on an active PIN: %v", err)
	}
	found, err := repo.FindActive(ctx, "123456")
	if err != nil || found.ID != first.ID {
		t.Fatalf("active trip = %+v, %v", found, err)
	}
}

func TestPostgres_CheckpointSnapshotsAreInsertedOnce(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := snapshots.NewRepo(pool)
	at := time.Date(2025, 3, 1, 12, 5, 0, 0, time.UTC)

	snap := snapshots.Snapshot{
		DriverID: uuid.New(), DriverPhone: "7985113984", PIN: "123456",
		Latitude: 27.17, Longitude: 78.04, Kind: "6_hour", CapturedAt: at,
	}
	for i, want := range []bool{true, false} {
		ok, err := repo.InsertIfAbsent(ctx, snap)
		if err != nil || ok != want {
			t.Fatalf("insert %d: %v, %v", i, ok, err)
		}
	}

	last := snap
	last.Kind, last.Offline = domain.LastLocation, true
	for i := 0; i < 2; i++ {
		last.CapturedAt = at.Add(time.Duration(i+1) * time.Minute)
		if _, err := repo.Append(ctx, last); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List(ctx, "123456")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 || list[0].Kind != "6_hour" || list[2].Kind != domain.LastLocation || !list[2].Offline {
		t.Fatalf("snapshots = %+v", list)
	}
}

func TestPostgres_PositionUpsertIsGuarded(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := positions.NewRepo(pool)
	driverID := uuid.New()
	p := phone.Number("7985113984")
	begin := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)

	put := func(lat float64, at *time.Time) positions.Position {
		return positions.Position{PIN: "123456", DriverID: driverID, DriverPhone: p, Latitude: lat, Longitude: 77.2, TripActive: true, RecordedAt: at}
	}
	if err := repo.Put(ctx, put(28.60, nil)); err != nil {
		t.Fatal(err)
	}

	newer, older := begin.Add(10*time.Minute), begin.Add(5*time.Minute)
	if ok, err := repo.PutIfNewer(ctx, put(28.70, &newer)); err != nil || !ok {
		t.Fatalf("first fix: %v, %v", ok, err)
	}
	if ok, err := repo.PutIfNewer(ctx, put(28.10, &older)); err != nil || ok {
		t.Fatalf("older fix applied: %v, %v", ok, err)
	}

	// A resume rewrites the row without a capture time; the stored one stays.
	if err := repo.Put(ctx, put(28.65, nil)); err != nil {
		t.Fatal(err)
	}
	if ok, err := repo.PutIfNewer(ctx, put(28.10, &older)); err != nil || ok {
		t.Fatalf("older fix applied after resume: %v, %v", ok, err)
	}
	pos, err := repo.FindByPIN(ctx, "123456")
	if err != nil {
		t.Fatal(err)
	}
	if pos.Latitude != 28.65 || pos.RecordedAt == nil || !pos.RecordedAt.Equal(newer) {
		t.Fatalf("stored position = %+v", pos)
	}
}

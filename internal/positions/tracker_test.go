package positions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/memstore"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
)

func newLiveTracker(t *testing.T) (*positions.Tracker, *memstore.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mem := memstore.New()
	live := positions.NewRedisLiveIndex(rdb, "trips:live")
	return positions.NewTracker(mem.Positions(), live, zap.NewNop()), mem, mr
}

func TestTracker_NearbyFollowsActiveTrips(t *testing.T) {
	tr, _, _ := newLiveTracker(t)
	ctx := context.Background()
	driver := uuid.New()

	// Connaught Place and India Gate are about 2.5 km apart; Agra is far.
	if err := tr.Begin(ctx, "111111", driver, driverPhone, 28.6315, 77.2167); err != nil {
		t.Fatal(err)
	}
	if err := tr.Begin(ctx, "222222", uuid.New(), "9876543210", 27.1751, 78.0421); err != nil {
		t.Fatal(err)
	}

	near, err := tr.Nearby(ctx, 28.6129, 77.2295, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(near) != 1 || near[0].PIN != "111111" {
		t.Fatalf("nearby = %+v", near)
	}
	if near[0].DistanceKm <= 0 || near[0].DistanceKm > 5 {
		t.Fatalf("distance = %v", near[0].DistanceKm)
	}

	if err := tr.DeactivatePin(ctx, "111111"); err != nil {
		t.Fatal(err)
	}
	near, err = tr.Nearby(ctx, 28.6129, 77.2295, 5, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(near) != 0 {
		t.Fatalf("finished trip still indexed: %+v", near)
	}
}

func TestTracker_BeginDeactivatesDriversOtherTrips(t *testing.T) {
	tr, mem, mr := newLiveTracker(t)
	ctx := context.Background()
	driver := uuid.New()

	if err := tr.Begin(ctx, "111111", driver, driverPhone, 28.63, 77.21); err != nil {
		t.Fatal(err)
	}
	if err := tr.Begin(ctx, "222222", driver, driverPhone, 28.64, 77.22); err != nil {
		t.Fatal(err)
	}

	old, _ := mem.Positions().FindByPIN(ctx, "111111")
	if old.TripActive {
		t.Fatal("previous trip position still active")
	}
	members, err := mr.ZMembers("trips:live")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0] != "222222" {
		t.Fatalf("live members = %v", members)
	}

	cur, err := tr.CurrentForDriver(ctx, driverPhone)
	if err != nil || cur.PIN != "222222" {
		t.Fatalf("current = %+v, %v", cur, err)
	}
}

func TestTracker_LiveIndexFailureDoesNotFailWrites(t *testing.T) {
	tr, mem, mr := newLiveTracker(t)
	ctx := context.Background()
	mr.Close()

	if err := tr.Begin(ctx, "111111", uuid.New(), driverPhone, 28.63, 77.21); err != nil {
		t.Fatalf("begin failed on live index outage: %v", err)
	}
	if _, err := mem.Positions().FindByPIN(ctx, "111111"); err != nil {
		t.Fatalf("position not stored: %v", err)
	}
}

func TestTracker_NearbyWithoutLiveIndex(t *testing.T) {
	tr := positions.NewTracker(memstore.New().Positions(), nil, zap.NewNop())
	if _, err := tr.Nearby(context.Background(), 0, 0, 1, 1); !errors.Is(err, positions.ErrLiveIndexDisabled) {
		t.Fatalf("want ErrLiveIndexDisabled, got %v", err)
	}
	if _, err := tr.CurrentForDriver(context.Background(), ""); !errors.Is(err, positions.ErrNotFound) {
		t.Fatalf("empty phone: %v", err)
	}
}

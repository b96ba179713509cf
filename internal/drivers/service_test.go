package drivers_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/memstore"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

func strPtr(s string) *string { return &s }

func TestSyntheticID_Deterministic(t *testing.T) {
	a, b := drivers.SyntheticID("123456"), drivers.SyntheticID("123456")
	if a != b {
		t.Fatalf("ids differ: %s %s", a, b)
	}
	if a == drivers.SyntheticID("123457") {
		t.Fatal("different pins produced the same id")
	}
	if a.Version() != 5 {
		t.Fatalf("version = %d, want 5", a.Version())
	}
}

func TestService_EnsureIsIdempotent(t *testing.T) {
	svc := drivers.NewService(memstore.New().Drivers(), zap.NewNop())
	ctx := context.Background()
	p := phone.Number("7985113984")

	first, err := svc.EnsurePending(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.EnsureUnverified(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID || again.Identity != domain.IdentityPending {
		t.Fatalf("existing driver changed: %+v -> %+v", first, again)
	}

	syn1, _ := svc.Synthetic(ctx, "123456")
	syn2, _ := svc.Synthetic(ctx, "123456")
	if syn1.ID != syn2.ID || syn1.Identity != domain.IdentitySynthetic || !syn1.Phone.IsZero() {
		t.Fatalf("synthetic = %+v / %+v", syn1, syn2)
	}

	if _, err := svc.Lookup(ctx, ""); !errors.Is(err, drivers.ErrNotFound) {
		t.Fatalf("empty phone lookup: %v", err)
	}
}

func TestService_CompleteRegistration(t *testing.T) {
	svc := drivers.NewService(memstore.New().Drivers(), zap.NewNop())
	ctx := context.Background()
	d, err := svc.EnsurePending(ctx, "7985113984")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.CompleteRegistration(ctx, d.ID, drivers.Profile{Name: strPtr(" R ")}); !errors.Is(err, drivers.ErrProfileInvalid) {
		t.Fatalf("short name: %v", err)
	}
	if _, err := svc.CompleteRegistration(ctx, d.ID, drivers.Profile{LicenseNumber: strPtr("  ")}); !errors.Is(err, drivers.ErrProfileInvalid) {
		t.Fatalf("blank license: %v", err)
	}

	got, err := svc.CompleteRegistration(ctx, d.ID, drivers.Profile{Name: strPtr(" Ravi Kumar "), LicenseNumber: strPtr("dl-0420110012345")})
	if err != nil {
		t.Fatal(err)
	}
	if got.Identity != domain.IdentityRegistered || *got.Name != "Ravi Kumar" || *got.LicenseNumber != "DL-0420110012345" {
		t.Fatalf("registered driver = %+v", got)
	}

	syn, _ := svc.Synthetic(ctx, "999999")
	if _, err := svc.CompleteRegistration(ctx, syn.ID, drivers.Profile{Name: strPtr("Someone")}); !errors.Is(err, drivers.ErrProfileInvalid) {
		t.Fatalf("synthetic registration: %v", err)
	}
}

func TestService_EnsureVehicleNormalizesPlate(t *testing.T) {
	svc := drivers.NewService(memstore.New().Drivers(), zap.NewNop())
	ctx := context.Background()
	a, err := svc.EnsureVehicle(ctx, "dl 01 ab 1234")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := svc.EnsureVehicle(ctx, "DL01AB1234")
	if a.ID != b.ID || a.PlateNumber != "DL01AB1234" {
		t.Fatalf("vehicles = %+v %+v", a, b)
	}
	if _, err := svc.EnsureVehicle(ctx, "  "); !errors.Is(err, domain.ErrMissingFields) {
		t.Fatalf("blank plate: %v", err)
	}
}

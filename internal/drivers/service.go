package drivers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
)

// syntheticNamespace scopes UUIDv5 ids derived from trip PINs.
var syntheticNamespace = uuid.MustParse("5b0f3c1e-8f2d-4d6a-9c57-2f1e7a3b9d40")

// SyntheticID is the driver id substituted for trips that have no driver.
// The same PIN always yields the same id.
func SyntheticID(pin string) uuid.UUID {
	return uuid.NewSHA1(syntheticNamespace, []byte("trip-pin:"+pin))
}

// Service applies the driver identity rules on top of a Store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger, now: time.Now}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Driver, error) {
	return s.store.FindByID(ctx, id)
}

// Lookup finds a driver by normalized phone.
func (s *Service) Lookup(ctx context.Context, p phone.Number) (Driver, error) {
	if p.IsZero() {
		return Driver{}, ErrNotFound
	}
	return s.store.FindByPhone(ctx, p)
}

// EnsurePending creates the driver on first OTP request.
func (s *Service) EnsurePending(ctx context.Context, p phone.Number) (Driver, error) {
	if p.IsZero() {
		return Driver{}, domain.ErrMissingFields
	}
	name := "Driver"
	return s.store.Ensure(ctx, Driver{Phone: p, Name: &name, Identity: domain.IdentityPending})
}

// EnsureUnverified creates a driver on the fly for a trip start by an unknown phone.
func (s *Service) EnsureUnverified(ctx context.Context, p phone.Number) (Driver, error) {
	if p.IsZero() {
		return Driver{}, domain.ErrMissingFields
	}
	d, err := s.store.Ensure(ctx, Driver{Phone: p, Identity: domain.IdentityUnverified})
	if err != nil {
		return Driver{}, err
	}
	if d.Identity == domain.IdentityUnverified {
		s.logger.Warn("driver auto-created without verification", zap.String("driver_id", d.ID.String()))
	}
	return d, nil
}

// Synthetic returns the phoneless driver standing in for the trip with this PIN.
func (s *Service) Synthetic(ctx context.Context, pin string) (Driver, error) {
	name := "Trip " + pin
	return s.store.Ensure(ctx, Driver{ID: SyntheticID(pin), Name: &name, Identity: domain.IdentitySynthetic})
}

// MarkVerified records a successful OTP check.
func (s *Service) MarkVerified(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkVerified(ctx, id, s.now().UTC())
}

var ErrProfileInvalid = errors.New("invalid profile")

// CompleteRegistration stores name and license and promotes the driver to registered.
func (s *Service) CompleteRegistration(ctx context.Context, id uuid.UUID, p Profile) (Driver, error) {
	if p.Name != nil {
		v := strings.TrimSpace(*p.Name)
		if len(v) < 2 {
			return Driver{}, fmt.Errorf("%w: name is too short", ErrProfileInvalid)
		}
		p.Name = &v
	}
	if p.LicenseNumber != nil {
		v := strings.ToUpper(strings.TrimSpace(*p.LicenseNumber))
		if v == "" {
			return Driver{}, fmt.Errorf("%w: license number is empty", ErrProfileInvalid)
		}
		p.LicenseNumber = &v
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return Driver{}, err
	}
	if current.Identity == domain.IdentitySynthetic {
		return Driver{}, fmt.Errorf("%w: synthetic drivers cannot register", ErrProfileInvalid)
	}
	return s.store.UpdateProfile(ctx, id, p, domain.IdentityRegistered)
}

// EnsureVehicle returns the vehicle with this plate, creating it if needed.
func (s *Service) EnsureVehicle(ctx context.Context, plate string) (Vehicle, error) {
	plate = strings.ToUpper(strings.Join(strings.Fields(plate), ""))
	if plate == "" {
		return Vehicle{}, domain.ErrMissingFields
	}
	return s.store.EnsureVehicle(ctx, plate)
}

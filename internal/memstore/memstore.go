// Package memstore is an in-process implementation of the tracking stores,
// used with STORE=memory and in tests. All sub-stores share one lock and
// reproduce the conditional writes of the Postgres repositories.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
	"github.com/rajyashhh/mandinex-truck-application/internal/snapshots"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

type Store struct {
	mu  sync.Mutex
	now func() time.Time

	drivers   map[uuid.UUID]drivers.Driver
	vehicles  map[string]drivers.Vehicle
	trips     map[uuid.UUID]trips.Trip
	positions map[string]positions.Position
	snaps     []snapshots.Snapshot
	nextSnap  int64
}

func New() *Store {
	return &Store{
		now:       time.Now,
		drivers:   map[uuid.UUID]drivers.Driver{},
		vehicles:  map[string]drivers.Vehicle{},
		trips:     map[uuid.UUID]trips.Trip{},
		positions: map[string]positions.Position{},
	}
}

func (s *Store) Drivers() *DriverStore     { return &DriverStore{s} }
func (s *Store) Trips() *TripStore         { return &TripStore{s} }
func (s *Store) Positions() *PositionStore { return &PositionStore{s} }
func (s *Store) Snapshots() *SnapshotStore { return &SnapshotStore{s} }

// ---- drivers ----

type DriverStore struct{ s *Store }

var _ drivers.Store = (*DriverStore)(nil)

func (d *DriverStore) FindByPhone(_ context.Context, p phone.Number) (drivers.Driver, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if drv, ok := d.s.driverByPhone(p); ok {
		return drv, nil
	}
	return drivers.Driver{}, drivers.ErrNotFound
}

func (d *DriverStore) FindByID(_ context.Context, id uuid.UUID) (drivers.Driver, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	drv, ok := d.s.drivers[id]
	if !ok {
		return drivers.Driver{}, drivers.ErrNotFound
	}
	return drv, nil
}

func (d *DriverStore) Ensure(_ context.Context, drv drivers.Driver) (drivers.Driver, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if !drv.Phone.IsZero() {
		if existing, ok := d.s.driverByPhone(drv.Phone); ok {
			return existing, nil
		}
	} else if existing, ok := d.s.drivers[drv.ID]; ok && drv.ID != uuid.Nil {
		return existing, nil
	}
	if drv.ID == uuid.Nil {
		drv.ID = uuid.New()
	}
	now := d.s.now().UTC()
	drv.CreatedAt, drv.UpdatedAt = now, now
	d.s.drivers[drv.ID] = drv
	return drv, nil
}

func (d *DriverStore) UpdateProfile(_ context.Context, id uuid.UUID, p drivers.Profile, identity domain.Identity) (drivers.Driver, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	drv, ok := d.s.drivers[id]
	if !ok {
		return drivers.Driver{}, drivers.ErrNotFound
	}
	if p.Name != nil {
		drv.Name = p.Name
	}
	if p.LicenseNumber != nil {
		drv.LicenseNumber = p.LicenseNumber
	}
	drv.Identity = identity
	drv.UpdatedAt = d.s.now().UTC()
	d.s.drivers[id] = drv
	return drv, nil
}

func (d *DriverStore) MarkVerified(_ context.Context, id uuid.UUID, at time.Time) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	drv, ok := d.s.drivers[id]
	if !ok {
		return drivers.ErrNotFound
	}
	drv.PhoneVerifiedAt = &at
	drv.UpdatedAt = at
	d.s.drivers[id] = drv
	return nil
}

func (d *DriverStore) EnsureVehicle(_ context.Context, plate string) (drivers.Vehicle, error) {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	if v, ok := d.s.vehicles[plate]; ok {
		return v, nil
	}
	v := drivers.Vehicle{ID: uuid.New(), PlateNumber: plate}
	d.s.vehicles[plate] = v
	return v, nil
}

func (s *Store) driverByPhone(p phone.Number) (drivers.Driver, bool) {
	for _, drv := range s.drivers {
		if !drv.Phone.IsZero() && drv.Phone == p {
			return drv, true
		}
	}
	return drivers.Driver{}, false
}

// ---- trips ----

type TripStore struct{ s *Store }

var _ trips.Store = (*TripStore)(nil)

func (t *TripStore) FindClaimable(_ context.Context, pin string) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var best *trips.Trip
	for _, tr := range t.s.trips {
		if tr.PIN != pin || !tr.Status.Claimable() {
			continue
		}
		if tr.Status == domain.TripActive {
			return tr, nil
		}
		if best == nil || tr.CreatedAt.Before(best.CreatedAt) {
			c := tr
			best = &c
		}
	}
	if best == nil {
		return trips.Trip{}, trips.ErrNotFound
	}
	return *best, nil
}

func (t *TripStore) FindActive(_ context.Context, pin string) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if tr, ok := t.s.activeTrip(pin); ok {
		return tr, nil
	}
	return trips.Trip{}, trips.ErrNotFound
}

func (t *TripStore) FindByID(_ context.Context, id uuid.UUID) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tr, ok := t.s.trips[id]
	if !ok {
		return trips.Trip{}, trips.ErrNotFound
	}
	return tr, nil
}

func (t *TripStore) PinInUse(_ context.Context, pin string) (bool, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, tr := range t.s.trips {
		if tr.PIN == pin {
			return true, nil
		}
	}
	return false, nil
}

func (t *TripStore) Create(_ context.Context, tr trips.Trip) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	if tr.Status == domain.TripActive {
		if _, ok := t.s.activeTrip(tr.PIN); ok {
			return trips.Trip{}, trips.ErrConflict
		}
	}
	now := t.s.now().UTC()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = now
	}
	tr.UpdatedAt = now
	t.s.trips[tr.ID] = tr
	return tr, nil
}

func (t *TripStore) Activate(_ context.Context, id, driverID uuid.UUID, p phone.Number, at time.Time) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tr, ok := t.s.trips[id]
	if !ok || (tr.Status != domain.TripScheduled && tr.Status != domain.TripPending) {
		return trips.Trip{}, trips.ErrConflict
	}
	if _, held := t.s.activeTrip(tr.PIN); held {
		return trips.Trip{}, trips.ErrConflict
	}
	tr.Status = domain.TripActive
	tr.DriverID = &driverID
	tr.DriverPhone = p
	tr.StartedAt = &at
	tr.UpdatedAt = t.s.now().UTC()
	t.s.trips[id] = tr
	return tr, nil
}

func (t *TripStore) AssignDriver(_ context.Context, id, driverID uuid.UUID) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tr, ok := t.s.trips[id]
	if !ok {
		return trips.Trip{}, trips.ErrNotFound
	}
	if tr.DriverID == nil {
		tr.DriverID = &driverID
		tr.UpdatedAt = t.s.now().UTC()
		t.s.trips[id] = tr
	}
	return tr, nil
}

func (t *TripStore) Finish(_ context.Context, id uuid.UUID, from, to domain.TripStatus, at time.Time) (trips.Trip, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	tr, ok := t.s.trips[id]
	if !ok || tr.Status != from {
		return trips.Trip{}, trips.ErrConflict
	}
	tr.Status = to
	tr.EndedAt = &at
	tr.UpdatedAt = t.s.now().UTC()
	t.s.trips[id] = tr
	return tr, nil
}

func (s *Store) activeTrip(pin string) (trips.Trip, bool) {
	for _, tr := range s.trips {
		if tr.PIN == pin && tr.Status == domain.TripActive {
			return tr, true
		}
	}
	return trips.Trip{}, false
}

// ---- positions ----

type PositionStore struct{ s *Store }

var _ positions.Store = (*PositionStore)(nil)

func (p *PositionStore) Put(_ context.Context, pos positions.Position) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.putPosition(pos)
	return nil
}

func (p *PositionStore) PutIfNewer(_ context.Context, pos positions.Position) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if cur, ok := p.s.positions[pos.PIN]; ok && cur.RecordedAt != nil && pos.RecordedAt != nil &&
		cur.RecordedAt.After(*pos.RecordedAt) {
		return false, nil
	}
	p.s.putPosition(pos)
	return true, nil
}

func (p *PositionStore) DeactivateDriver(_ context.Context, driverID uuid.UUID, exceptPIN string) ([]string, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var pins []string
	for pin, pos := range p.s.positions {
		if pos.DriverID != driverID || !pos.TripActive || pin == exceptPIN {
			continue
		}
		pos.TripActive = false
		pos.LastUpdated = p.s.now().UTC()
		p.s.positions[pin] = pos
		pins = append(pins, pin)
	}
	sort.Strings(pins)
	return pins, nil
}

func (p *PositionStore) DeactivatePin(_ context.Context, pin string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if pos, ok := p.s.positions[pin]; ok {
		pos.TripActive = false
		pos.LastUpdated = p.s.now().UTC()
		p.s.positions[pin] = pos
	}
	return nil
}

func (p *PositionStore) FindByPIN(_ context.Context, pin string) (positions.Position, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pos, ok := p.s.positions[pin]
	if !ok {
		return positions.Position{}, positions.ErrNotFound
	}
	return pos, nil
}

func (p *PositionStore) FindActiveByPhone(_ context.Context, ph phone.Number) (positions.Position, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var (
		best  positions.Position
		found bool
	)
	for _, pos := range p.s.positions {
		if pos.DriverPhone != ph || !pos.TripActive {
			continue
		}
		if !found || pos.LastUpdated.After(best.LastUpdated) {
			best, found = pos, true
		}
	}
	if !found {
		return positions.Position{}, positions.ErrNotFound
	}
	return best, nil
}

// Len is the number of current position rows.
func (p *PositionStore) Len() int {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return len(p.s.positions)
}

func (s *Store) putPosition(pos positions.Position) {
	if cur, ok := s.positions[pos.PIN]; ok && pos.RecordedAt == nil {
		pos.RecordedAt = cur.RecordedAt
	}
	pos.LastUpdated = s.now().UTC()
	s.positions[pos.PIN] = pos
}

// ---- snapshots ----

type SnapshotStore struct{ s *Store }

var _ snapshots.Store = (*SnapshotStore)(nil)

func (x *SnapshotStore) Kinds(_ context.Context, pin string) ([]domain.SnapshotKind, error) {
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	var kinds []domain.SnapshotKind
	for _, sn := range x.s.snaps {
		if sn.PIN == pin {
			kinds = append(kinds, sn.Kind)
		}
	}
	return kinds, nil
}

func (x *SnapshotStore) InsertIfAbsent(_ context.Context, sn snapshots.Snapshot) (bool, error) {
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	if sn.Kind != domain.LastLocation {
		for _, existing := range x.s.snaps {
			if existing.PIN == sn.PIN && existing.Kind == sn.Kind {
				return false, nil
			}
		}
	}
	x.s.appendSnapshot(sn)
	return true, nil
}

func (x *SnapshotStore) Append(_ context.Context, sn snapshots.Snapshot) (snapshots.Snapshot, error) {
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	return x.s.appendSnapshot(sn), nil
}

func (x *SnapshotStore) List(_ context.Context, pin string) ([]snapshots.Snapshot, error) {
	x.s.mu.Lock()
	defer x.s.mu.Unlock()
	out := []snapshots.Snapshot{}
	for _, sn := range x.s.snaps {
		if sn.PIN == pin {
			out = append(out, sn)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

func (s *Store) appendSnapshot(sn snapshots.Snapshot) snapshots.Snapshot {
	s.nextSnap++
	sn.ID = s.nextSnap
	if sn.CapturedAt.IsZero() {
		sn.CapturedAt = s.now().UTC()
	}
	s.snaps = append(s.snaps, sn)
	return sn
}

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/geo"
)

var (
	ErrRunning = errors.New("agent is already running")
	ErrNoFix   = errors.New("no fix acquired yet")
)

// Agent reports fixes for one trip. Updates that cannot be delivered go to
// the queue and are drained oldest first before anything newer is sent.
type Agent struct {
	cfg     Config
	api     API
	queue   *Queue
	source  PositionSource
	sensors Sensors
	logger  *zap.Logger
	now     func() time.Time

	mu         sync.Mutex
	last       *domain.Fix // last acquired
	lastSent   *domain.Fix // last sent or queued
	lastSentAt time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

func New(cfg Config, api API, queue *Queue, source PositionSource, sensors Sensors, logger *zap.Logger) *Agent {
	if sensors == nil {
		sensors = StaticSensors{Network: domain.NetworkUnknown}
	}
	return &Agent{
		cfg:     cfg.WithDefaults(),
		api:     api,
		queue:   queue,
		source:  source,
		sensors: sensors,
		logger:  logger,
		now:     time.Now,
	}
}

// BeginTrip acquires the first fix and starts (or resumes) the trip with it.
func (a *Agent) BeginTrip(ctx context.Context) (StartResult, error) {
	fix, err := a.source.Next(ctx)
	if err != nil {
		return StartResult{}, fmt.Errorf("first fix: %w", err)
	}
	a.setLast(fix)
	res, err := a.api.StartTrip(ctx, StartTrip{
		DriverPhone: a.cfg.Phone,
		RidePin:     strings.TrimSpace(a.cfg.PIN),
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
	})
	if err != nil {
		return StartResult{}, err
	}
	a.logger.Info("trip started",
		zap.String("trip_id", res.TripID),
		zap.String("pin", a.cfg.PIN),
		zap.Bool("resumed", res.IsResumed),
	)
	return res, nil
}

// Start runs the loop in the background until Stop, ctx cancellation or the
// source running out. Undelivered updates from an earlier run go first.
func (a *Agent) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	go a.run(ctx, a.done)
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (a *Agent) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.cancel = nil
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the loop exits; nil before Start.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *Agent) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	if _, _, err := a.Flush(ctx); err != nil {
		a.logger.Info("queue not drained at start", zap.Error(err))
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		if err := a.tick(ctx); err != nil {
			if errors.Is(err, ErrSourceExhausted) {
				a.logger.Info("position source exhausted, stopping")
				return
			}
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("tick failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick acquires one fix and sends or queues it.
func (a *Agent) tick(ctx context.Context) error {
	fix, err := a.source.Next(ctx)
	if err != nil {
		return err
	}
	a.setLast(fix)

	now := a.now()
	if !a.due(fix, now) {
		return nil
	}
	u := a.update(fix)

	pending, err := a.queue.Len(ctx)
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if pending > 0 {
		// Keep FIFO: newer fixes wait behind the backlog.
		if err := a.queue.Enqueue(ctx, u); err != nil {
			return fmt.Errorf("enqueue: %w", err)
		}
		a.markSent(fix, now)
		if _, _, err := a.Flush(ctx); err != nil {
			a.logger.Info("queue drain paused", zap.Int("pending", pending+1), zap.Error(err))
		}
		return nil
	}

	res, err := a.api.UpdateLocation(ctx, u)
	switch {
	case err == nil:
		if res.SnapshotSaved {
			a.logger.Info("checkpoint snapshot saved", zap.String("kind", res.SnapshotType))
		}
	case errors.Is(err, ErrPermanent):
		a.logger.Warn("update rejected, dropped", zap.Error(err))
	default:
		if qerr := a.queue.Enqueue(ctx, u); qerr != nil {
			return fmt.Errorf("enqueue after %v: %w", err, qerr)
		}
		a.logger.Info("update queued", zap.Error(err))
	}
	a.markSent(fix, now)
	return nil
}

// due reports whether the fix moved far enough, or the silence window ran out.
func (a *Agent) due(fix domain.Fix, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastSent == nil {
		return true
	}
	if now.Sub(a.lastSentAt) >= a.cfg.MaxSilence {
		return true
	}
	moved := geo.Haversine(a.lastSent.Latitude, a.lastSent.Longitude, fix.Latitude, fix.Longitude)
	return moved >= a.cfg.DistanceThreshold
}

// Flush drains the queue oldest first. It stops at the first delivery
// failure; permanently rejected entries are dropped.
func (a *Agent) Flush(ctx context.Context) (sent, dropped int, err error) {
	for {
		e, ok, err := a.queue.Peek(ctx)
		if err != nil || !ok {
			return sent, dropped, err
		}
		_, err = a.api.UpdateLocation(ctx, e.Update)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrPermanent):
			dropped++
			a.logger.Warn("queued update rejected, dropped", zap.Int64("entry", e.ID), zap.Error(err))
		default:
			if terr := a.queue.Touch(ctx, e.ID); terr != nil {
				a.logger.Warn("queue touch failed", zap.Error(terr))
			}
			return sent, dropped, err
		}
		if err := a.queue.Delete(ctx, e.ID); err != nil {
			return sent, dropped, err
		}
	}
}

// Suspend makes one best-effort last-location call with the last known fix.
// Nothing is queued if it fails.
func (a *Agent) Suspend(ctx context.Context) error {
	a.mu.Lock()
	last := a.last
	a.mu.Unlock()
	if last == nil {
		return ErrNoFix
	}
	network := a.sensors.NetworkType()
	if network == "" {
		network = domain.NetworkOffline
	}
	err := a.api.SaveLastLocation(ctx, LastLocation{
		TripID:       a.cfg.PIN,
		DriverPhone:  a.cfg.Phone,
		Latitude:     last.Latitude,
		Longitude:    last.Longitude,
		Accuracy:     last.Accuracy,
		BatteryLevel: a.sensors.BatteryLevel(),
		NetworkType:  string(network),
	})
	if err != nil {
		return fmt.Errorf("save last location: %w", err)
	}
	a.logger.Info("last location saved", zap.String("pin", a.cfg.PIN))
	return nil
}

func (a *Agent) update(fix domain.Fix) Update {
	recorded := fix.RecordedAt
	if recorded.IsZero() {
		recorded = a.now().UTC()
	}
	return Update{
		TripID:       a.cfg.PIN,
		DriverPhone:  a.cfg.Phone,
		Latitude:     fix.Latitude,
		Longitude:    fix.Longitude,
		Speed:        fix.Speed,
		Heading:      fix.Heading,
		Altitude:     fix.Altitude,
		Accuracy:     fix.Accuracy,
		BatteryLevel: a.sensors.BatteryLevel(),
		NetworkType:  string(a.sensors.NetworkType()),
		RecordedAt:   recorded,
	}
}

func (a *Agent) setLast(fix domain.Fix) {
	a.mu.Lock()
	a.last = &fix
	a.mu.Unlock()
}

func (a *Agent) markSent(fix domain.Fix, at time.Time) {
	a.mu.Lock()
	a.lastSent = &fix
	a.lastSentAt = at
	a.mu.Unlock()
}

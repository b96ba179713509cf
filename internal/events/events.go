// Package events publishes tracking events for downstream consumers.
package events

import (
	"context"
	"sync"
	"time"
)

const (
	TripStarted       = "trip.started"
	TripFinished      = "trip.finished"
	LocationUpdated   = "location.updated"
	LocationLastKnown = "location.last_known"
	SnapshotCaptured  = "snapshot.captured"
)

// Event is keyed by trip PIN so one trip's events stay ordered on a partition.
type Event struct {
	Type     string         `json:"type"`
	PIN      string         `json:"pin"`
	DriverID string         `json:"driver_id,omitempty"`
	At       time.Time      `json:"at"`
	Data     map[string]any `json:"data,omitempty"`
}

// Publisher is best effort: callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of what was published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

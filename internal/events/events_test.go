package events

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	ctx := context.Background()
	_ = r.Publish(ctx, Event{Type: TripStarted, PIN: "123456"})
	_ = r.Publish(ctx, Event{Type: LocationUpdated, PIN: "123456"})

	types := r.Types()
	if len(types) != 2 || types[0] != TripStarted || types[1] != LocationUpdated {
		t.Fatalf("types = %v", types)
	}
	evs := r.Events()
	evs[0].PIN = "changed"
	if r.Events()[0].PIN != "123456" {
		t.Fatal("Events must return a copy")
	}
}

func TestEventJSONShape(t *testing.T) {
	e := Event{
		Type: SnapshotCaptured,
		PIN:  "123456",
		At:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Data: map[string]any{"kind": "6_hour"},
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	for _, want := range []string{`"type":"snapshot.captured"`, `"pin":"123456"`, `"kind":"6_hour"`} {
		if !strings.Contains(s, want) {
			t.Errorf("%s missing %s", s, want)
		}
	}
	if strings.Contains(s, "driver_id") {
		t.Errorf("empty driver_id should be omitted: %s", s)
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), Event{}); err != nil {
		t.Fatal(err)
	}
}

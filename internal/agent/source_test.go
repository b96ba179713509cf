package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTrack(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenReplay_CSV(t *testing.T) {
	path := writeTrack(t, "route.csv", "Longitude, Latitude, speed\n77.2, 28.6, 12.5\n77.21, 28.61,\n")
	src, err := OpenReplay(path, false)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	first, err := src.Next(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Latitude != 28.6 || first.Longitude != 77.2 || first.Speed == nil || *first.Speed != 12.5 {
		t.Fatalf("first = %+v", first)
	}
	if first.RecordedAt.IsZero() {
		t.Fatal("fix not stamped")
	}
	second, _ := src.Next(ctx)
	if second.Latitude != 28.61 || second.Speed != nil {
		t.Fatalf("second = %+v", second)
	}
	if _, err := src.Next(ctx); !errors.Is(err, ErrSourceExhausted) {
		t.Fatalf("want exhausted, got %v", err)
	}
}

func TestOpenReplay_JSONLLoops(t *testing.T) {
	path := writeTrack(t, "route.jsonl", "# morning run\n{\"latitude\":28.6,\"longitude\":77.2,\"accuracy\":5}\n\n{\"latitude\":28.7,\"longitude\":77.3}\n")
	src, err := OpenReplay(path, true)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	var lats []float64
	for i := 0; i < 3; i++ {
		fix, err := src.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		lats = append(lats, fix.Latitude)
	}
	if !equalFloats(lats, []float64{28.6, 28.7, 28.6}) {
		t.Fatalf("lats = %v", lats)
	}
}

func TestOpenReplay_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "route.gpx", "<gpx/>"},
		{"missing columns", "route.csv", "lat,lng\n28.6,77.2\n"},
		{"out of range", "route.csv", "latitude,longitude\n91,77.2\n"},
		{"jsonl without longitude", "route.jsonl", "{\"latitude\":28.6}\n"},
		{"empty", "route.csv", "latitude,longitude\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := OpenReplay(writeTrack(t, tt.file, tt.content), false); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestReplaySource_CanceledContext(t *testing.T) {
	src := NewReplaySource(track(1), true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueue_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	q, err := OpenQueue(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, lat := range []float64{1, 2, 3} {
		if err := q.Enqueue(ctx, Update{TripID: "123456", Latitude: lat}); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatal(err)
	}

	q, err = OpenQueue(path)
	if err != nil {
		t.Fatal(err)
	}
	defer q.Close()
	list, err := q.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Update.Latitude != 1 || list[1].Update.Latitude != 2 || list[0].QueuedAt.IsZero() {
		t.Fatalf("list = %+v", list)
	}

	n, err := q.Clear(ctx)
	if err != nil || n != 3 {
		t.Fatalf("clear = %d, %v", n, err)
	}
	if _, ok, _ := q.Peek(ctx); ok {
		t.Fatal("queue should be empty")
	}
}

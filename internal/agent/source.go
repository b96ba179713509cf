package agent

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
)

// ErrSourceExhausted ends the tracking loop.
var ErrSourceExhausted = errors.New("position source exhausted")

// PositionSource yields device fixes.
type PositionSource interface {
	Next(ctx context.Context) (domain.Fix, error)
}

// Sensors reports the device state sent with each fix.
type Sensors interface {
	BatteryLevel() *float64
	NetworkType() domain.NetworkType
}

// StaticSensors always reports the same values.
type StaticSensors struct {
	Battery *float64
	Network domain.NetworkType
}

func (s StaticSensors) BatteryLevel() *float64         { return s.Battery }
func (s StaticSensors) NetworkType() domain.NetworkType { return s.Network }

// ReplaySource plays back a recorded track. Fixes are stamped with the time
// they are handed out.
type ReplaySource struct {
	mu    sync.Mutex
	fixes []domain.Fix
	next  int
	loop  bool
	now   func() time.Time
}

func NewReplaySource(fixes []domain.Fix, loop bool) *ReplaySource {
	return &ReplaySource{fixes: fixes, loop: loop, now: time.Now}
}

// OpenReplay reads a .csv (header row with latitude and longitude columns) or
// a .jsonl track file.
func OpenReplay(path string, loop bool) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fixes []domain.Fix
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		fixes, err = parseCSV(f)
	case ".jsonl", ".ndjson":
		fixes, err = parseJSONL(f)
	default:
		return nil, fmt.Errorf("unsupported track format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(fixes) == 0 {
		return nil, fmt.Errorf("%s: no fixes", path)
	}
	return NewReplaySource(fixes, loop), nil
}

func (r *ReplaySource) Next(ctx context.Context) (domain.Fix, error) {
	if err := ctx.Err(); err != nil {
		return domain.Fix{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.fixes) {
		if !r.loop || len(r.fixes) == 0 {
			return domain.Fix{}, ErrSourceExhausted
		}
		r.next = 0
	}
	fix := r.fixes[r.next]
	r.next++
	fix.RecordedAt = r.now().UTC()
	return fix, nil
}

func parseCSV(rd io.Reader) ([]domain.Fix, error) {
	reader := csv.NewReader(rd)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	latCol, okLat := idx["latitude"]
	lonCol, okLon := idx["longitude"]
	if !okLat || !okLon {
		return nil, errors.New("header needs latitude and longitude columns")
	}

	optional := func(rec []string, name string) *float64 {
		i, ok := idx[name]
		if !ok || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return nil
		}
		return &v
	}

	var out []domain.Fix
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if latCol >= len(rec) || lonCol >= len(rec) {
			return nil, fmt.Errorf("line %d: short record", line)
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
		lon, err2 := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
		if err1 != nil || err2 != nil || !domain.ValidCoordinates(lat, lon) {
			return nil, fmt.Errorf("line %d: bad coordinates", line)
		}
		out = append(out, domain.Fix{
			Latitude:  lat,
			Longitude: lon,
			Speed:     optional(rec, "speed"),
			Heading:   optional(rec, "heading"),
			Altitude:  optional(rec, "altitude"),
			Accuracy:  optional(rec, "accuracy"),
		})
	}
	return out, nil
}

type jsonFix struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Speed     *float64 `json:"speed"`
	Heading   *float64 `json:"heading"`
	Altitude  *float64 `json:"altitude"`
	Accuracy  *float64 `json:"accuracy"`
}

func parseJSONL(rd io.Reader) ([]domain.Fix, error) {
	var out []domain.Fix
	sc := bufio.NewScanner(rd)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var jf jsonFix
		if err := json.Unmarshal([]byte(text), &jf); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if jf.Latitude == nil || jf.Longitude == nil || !domain.ValidCoordinates(*jf.Latitude, *jf.Longitude) {
			return nil, fmt.Errorf("line %d: bad coordinates", line)
		}
		out = append(out, domain.Fix{
			Latitude:  *jf.Latitude,
			Longitude: *jf.Longitude,
			Speed:     jf.Speed,
			Heading:   jf.Heading,
			Altitude:  jf.Altitude,
			Accuracy:  jf.Accuracy,
		})
	}
	return out, sc.Err()
}

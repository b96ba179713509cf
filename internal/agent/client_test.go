package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_UpdateLocation(t *testing.T) {
	var got Update
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/update-location" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Device-Type") != "agent" || r.Header.Get("X-Client-Token") != "tok" || r.Header.Get("X-Language") != "hi" {
			t.Errorf("headers = %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"snapshotSaved":true,"snapshotType":"6_hour","positionUpdated":true}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ClientToken: "tok", Language: "hi"})
	recorded := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	res, err := c.UpdateLocation(context.Background(), Update{TripID: "123456", Latitude: 28.6, Longitude: 77.2, RecordedAt: recorded})
	if err != nil {
		t.Fatal(err)
	}
	if !res.SnapshotSaved || res.SnapshotType != "6_hour" || !res.PositionUpdated {
		t.Fatalf("result = %+v", res)
	}
	if got.TripID != "123456" || !got.RecordedAt.Equal(recorded) {
		t.Fatalf("body = %+v", got)
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
		code      string
	}{
		{"trip not found", http.StatusNotFound, `{"error":"Trip not found","code":"trip_not_found"}`, true, "trip_not_found"},
		{"bad request", http.StatusBadRequest, `{"error":"missing fields","code":"missing_fields"}`, true, "missing_fields"},
		{"forbidden", http.StatusForbidden, `{"error":"invalid pin","code":"invalid_pin"}`, true, "invalid_pin"},
		{"unavailable", http.StatusServiceUnavailable, `{"error":"store unavailable","code":"store_unavailable"}`, false, "store_unavailable"},
		{"plain text 502", http.StatusBadGateway, `bad gateway`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, ClientToken: "tok"})
			err := c.SaveLastLocation(context.Background(), LastLocation{TripID: "123456"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v", err)
			}
			if apiErr.Status != tt.status || apiErr.Code != tt.code {
				t.Fatalf("apiErr = %+v", apiErr)
			}
			if errors.Is(err, ErrPermanent) != tt.permanent {
				t.Fatalf("permanent = %v, want %v", !tt.permanent, tt.permanent)
			}
		})
	}
}

func TestClient_TransportFailureIsNotPermanent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{BaseURL: url, ClientToken: "tok", RequestTimeout: time.Second})
	_, err := c.StartTrip(context.Background(), StartTrip{RidePin: "123456"})
	if err == nil || errors.Is(err, ErrPermanent) {
		t.Fatalf("err = %v", err)
	}
}

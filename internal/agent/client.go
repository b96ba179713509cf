package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrPermanent marks a rejection that retrying cannot fix (400, 403, 404).
var ErrPermanent = errors.New("rejected by server")

// APIError is a non-2xx answer from the tracking API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tracking api %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	if target != ErrPermanent {
		return false
	}
	switch e.Status {
	case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// Update is the update-location body. Queued updates keep their RecordedAt
// so the server can tell a late delivery from a fresh fix.
type Update struct {
	TripID       string    `json:"tripId"`
	DriverPhone  string    `json:"driverPhone"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Speed        *float64  `json:"speed,omitempty"`
	Heading      *float64  `json:"heading,omitempty"`
	Altitude     *float64  `json:"altitude,omitempty"`
	Accuracy     *float64  `json:"accuracy,omitempty"`
	BatteryLevel *float64  `json:"batteryLevel,omitempty"`
	NetworkType  string    `json:"networkType,omitempty"`
	RecordedAt   time.Time `json:"recordedAt"`
}

type UpdateResult struct {
	Success         bool   `json:"success"`
	SnapshotSaved   bool   `json:"snapshotSaved"`
	SnapshotType    string `json:"snapshotType"`
	PositionUpdated bool   `json:"positionUpdated"`
}

type LastLocation struct {
	TripID       string   `json:"tripId"`
	DriverPhone  string   `json:"driverPhone"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	BatteryLevel *float64 `json:"batteryLevel,omitempty"`
	NetworkType  string   `json:"networkType,omitempty"`
}

type StartTrip struct {
	DriverPhone string  `json:"driverPhone"`
	RidePin     string  `json:"ridePin"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type StartResult struct {
	TripID    string    `json:"tripId"`
	RidePin   string    `json:"ridePin"`
	Message   string    `json:"message"`
	IsResumed bool      `json:"isResumed"`
	StartedAt time.Time `json:"startedAt"`
}

// API is the part of the tracking service the agent talks to.
type API interface {
	StartTrip(ctx context.Context, req StartTrip) (StartResult, error)
	UpdateLocation(ctx context.Context, u Update) (UpdateResult, error)
	SaveLastLocation(ctx context.Context, l LastLocation) error
}

// Client calls the tracking API over HTTP with the mobile client headers.
type Client struct {
	baseURL     string
	clientToken string
	deviceType  string
	language    string
	http        *http.Client
}

func NewClient(cfg Config) *Client {
	cfg = cfg.WithDefaults()
	return &Client{
		baseURL:     cfg.BaseURL,
		clientToken: cfg.ClientToken,
		deviceType:  cfg.DeviceType,
		language:    cfg.Language,
		http:        &http.Client{Timeout: cfg.RequestTimeout},
	}
}

func (c *Client) StartTrip(ctx context.Context, req StartTrip) (StartResult, error) {
	var out StartResult
	err := c.post(ctx, "/v1/start-trip", req, &out)
	return out, err
}

func (c *Client) UpdateLocation(ctx context.Context, u Update) (UpdateResult, error) {
	var out UpdateResult
	err := c.post(ctx, "/v1/update-location", u, &out)
	return out, err
}

func (c *Client) SaveLastLocation(ctx context.Context, l LastLocation) error {
	return c.post(ctx, "/v1/save-last-location", l, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Device-Type", c.deviceType)
	req.Header.Set("X-Client-Token", c.clientToken)
	if c.language != "" {
		req.Header.Set("X-Language", c.language)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode}
		var eb struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &eb) == nil {
			apiErr.Code, apiErr.Message = eb.Code, eb.Error
		} else {
			apiErr.Message = string(raw)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

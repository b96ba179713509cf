package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/domain"
	"github.com/rajyashhh/mandinex-truck-application/internal/i18n"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/mw"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/resp"
	"github.com/rajyashhh/mandinex-truck-application/internal/snapshots"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

// TrackingHandler serves the driver app and field agent endpoints.
type TrackingHandler struct {
	logger    *zap.Logger
	norm      phone.Normalizer
	registry  *trips.Registry
	ingestor  *positions.Ingestor
	tracker   *positions.Tracker
	scheduler *snapshots.Scheduler
	radiusKm  float64
}

func NewTrackingHandler(
	logger *zap.Logger,
	norm phone.Normalizer,
	registry *trips.Registry,
	ingestor *positions.Ingestor,
	tracker *positions.Tracker,
	scheduler *snapshots.Scheduler,
	nearbyRadiusKm float64,
) *TrackingHandler {
	return &TrackingHandler{
		logger:    logger,
		norm:      norm,
		registry:  registry,
		ingestor:  ingestor,
		tracker:   tracker,
		scheduler: scheduler,
		radiusKm:  nearbyRadiusKm,
	}
}

type startTripReq struct {
	DriverPhone string   `json:"driverPhone"`
	RidePin     string   `json:"ridePin"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
}

type startTripResp struct {
	TripID    string    `json:"tripId"`
	RidePin   string    `json:"ridePin"`
	Message   string    `json:"message"`
	IsResumed bool      `json:"isResumed"`
	StartedAt time.Time `json:"startedAt"`
}

// POST /v1/start-trip
func (h *TrackingHandler) StartTrip(c *gin.Context) {
	var req startTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		fail(c, h.logger, domain.ErrMissingFields)
		return
	}
	res, err := h.registry.StartOrResume(c.Request.Context(), trips.StartRequest{
		Phone:     h.norm.Normalize(req.DriverPhone),
		PIN:       req.RidePin,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	msg := "msg.trip_started"
	if res.Resumed {
		msg = "msg.trip_resumed"
	}
	resp.OK(c, startTripResp{
		TripID:    res.TripID.String(),
		RidePin:   res.PIN,
		Message:   i18n.T(mw.Lang(c), msg),
		IsResumed: res.Resumed,
		StartedAt: res.StartedAt,
	})
}

type updateLocationReq struct {
	TripID       string     `json:"tripId"` // the ride PIN
	DriverPhone  string     `json:"driverPhone"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Speed        *float64   `json:"speed"`
	Heading      *float64   `json:"heading"`
	Altitude     *float64   `json:"altitude"`
	Accuracy     *float64   `json:"accuracy"`
	BatteryLevel *float64   `json:"batteryLevel"`
	NetworkType  string     `json:"networkType"`
	RecordedAt   *time.Time `json:"recordedAt"`
}

type updateLocationResp struct {
	Success         bool   `json:"success"`
	SnapshotSaved   bool   `json:"snapshotSaved"`
	SnapshotType    string `json:"snapshotType,omitempty"`
	PositionUpdated bool   `json:"positionUpdated"`
}

// POST /v1/update-location
func (h *TrackingHandler) UpdateLocation(c *gin.Context) {
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	res, err := h.ingestor.Ingest(c.Request.Context(), positions.IngestRequest{
		PIN:          req.TripID,
		Phone:        h.norm.Normalize(req.DriverPhone),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Speed:        req.Speed,
		Heading:      req.Heading,
		Altitude:     req.Altitude,
		Accuracy:     req.Accuracy,
		BatteryLevel: req.BatteryLevel,
		NetworkType:  domain.ParseNetworkType(strings.ToLower(strings.TrimSpace(req.NetworkType))),
		RecordedAt:   req.RecordedAt,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, updateLocationResp{
		Success:         true,
		SnapshotSaved:   res.SnapshotTaken,
		SnapshotType:    string(res.SnapshotKind),
		PositionUpdated: res.PositionUpdated,
	})
}

type saveLastLocationReq struct {
	TripID       string   `json:"tripId"`
	DriverPhone  string   `json:"driverPhone"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Accuracy     *float64 `json:"accuracy"`
	BatteryLevel *float64 `json:"batteryLevel"`
	NetworkType  string   `json:"networkType"`
}

// POST /v1/save-last-location
func (h *TrackingHandler) SaveLastLocation(c *gin.Context) {
	var req saveLastLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	network := domain.ParseNetworkType(strings.ToLower(strings.TrimSpace(req.NetworkType)))
	if network == "" {
		network = domain.NetworkOffline
	}
	_, err := h.ingestor.Suspend(c.Request.Context(), positions.SuspendRequest{
		PIN:          req.TripID,
		Phone:        h.norm.Normalize(req.DriverPhone),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Accuracy:     req.Accuracy,
		BatteryLevel: req.BatteryLevel,
		NetworkType:  network,
	})
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "message": i18n.T(mw.Lang(c), "msg.last_location_saved")})
}

type driverLocation struct {
	positions.Position
	TripID    string     `json:"trip_id,omitempty"`
	RidePin   string     `json:"ride_pin"`
	StartTime *time.Time `json:"start_time,omitempty"`
}

// GET /v1/driver-location/:phone
func (h *TrackingHandler) DriverLocation(c *gin.Context) {
	ctx := c.Request.Context()
	pos, err := h.tracker.CurrentForDriver(ctx, h.norm.Normalize(c.Param("phone")))
	if err != nil {
		if errors.Is(err, positions.ErrNotFound) {
			err = domain.ErrTripNotFound
		}
		fail(c, h.logger, err)
		return
	}
	out := driverLocation{Position: pos, RidePin: pos.PIN}
	trip, err := h.registry.ActiveTrip(ctx, pos.PIN)
	switch {
	case err == nil:
		start := trips.StartOf(trip)
		out.TripID = trip.ID.String()
		out.StartTime = &start
	case !errors.Is(err, domain.ErrTripNotFound):
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "location": out})
}

// GET /v1/trip-snapshots/:tripId
func (h *TrackingHandler) TripSnapshots(c *gin.Context) {
	list, err := h.scheduler.List(c.Request.Context(), strings.TrimSpace(c.Param("tripId")))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	resp.OK(c, gin.H{"success": true, "snapshots": list})
}

// GET /v1/tracking/nearby?lat=&lon=&radius_km=&limit=
func (h *TrackingHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		fail(c, h.logger, domain.ErrMissingFields)
		return
	}
	if !domain.ValidCoordinates(lat, lon) {
		fail(c, h.logger, domain.ErrInvalidCoordinates)
		return
	}
	radius := h.radiusKm
	if v, err := strconv.ParseFloat(c.Query("radius_km"), 64); err == nil && v > 0 && v <= 500 {
		radius = v
	}
	limit := 50
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	found, err := h.tracker.Nearby(c.Request.Context(), lat, lon, radius, limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if found == nil {
		found = []positions.Nearby{}
	}
	resp.OK(c, gin.H{"success": true, "radius_km": radius, "trips": found})
}

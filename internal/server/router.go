package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rajyashhh/mandinex-truck-application/internal/config"
	"github.com/rajyashhh/mandinex-truck-application/internal/drivers"
	"github.com/rajyashhh/mandinex-truck-application/internal/infra"
	"github.com/rajyashhh/mandinex-truck-application/internal/otp"
	"github.com/rajyashhh/mandinex-truck-application/internal/phone"
	"github.com/rajyashhh/mandinex-truck-application/internal/positions"
	"github.com/rajyashhh/mandinex-truck-application/internal/security"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/handlers"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/mw"
	"github.com/rajyashhh/mandinex-truck-application/internal/server/swaggerui"
	"github.com/rajyashhh/mandinex-truck-application/internal/snapshots"
	"github.com/rajyashhh/mandinex-truck-application/internal/store"
	"github.com/rajyashhh/mandinex-truck-application/internal/trips"
)

func NewRouter(cfg *config.Config, deps *infra.Infra, logger *zap.Logger) http.Handler {
	if cfg.IsLocal() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.Recovery(logger))
	r.Use(mw.RequestID())
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.Metrics())
	r.Use(mw.SecurityHeaders())

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{mw.HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}))

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	norm := phone.NewNormalizer(cfg.Tracking.CountryPrefix)

	driverSvc := drivers.NewService(deps.Drivers, logger)
	tracker := positions.NewTracker(deps.Positions, deps.Live, logger)
	registry := trips.NewRegistry(deps.Trips, driverSvc, tracker, deps.Events, logger, trips.Options{
		AllowAutoDriverCreation: cfg.Tracking.AllowAutoDriverCreation,
	}).WithClock(clock)
	scheduler := snapshots.NewScheduler(deps.Snapshots, tracker, deps.Events, logger, snapshots.Config{
		Thresholds: cfg.Tracking.SnapshotThresholds,
		MaxElapsed: cfg.Tracking.MaxElapsed,
	}).WithClock(clock)
	ingestor := positions.NewIngestor(registry, tracker, scheduler, deps.Events, logger).WithClock(clock)

	jwtm := security.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTAccessTTL, cfg.Security.JWTRefreshTTL)
	otpStore := store.NewOTPStore(deps.Redis, cfg.Security.JWTSecret, cfg.OTP.TTL, cfg.OTP.Cooldown, cfg.OTP.MaxAttempts)
	refreshStore := store.NewRefreshStore(deps.Redis, cfg.Security.JWTRefreshTTL)

	var sender otp.Sender = otp.LogSender{Logger: logger}
	if cfg.OTP.GatewayToken != "" {
		sender = otp.NewGatewayClient(cfg.OTP.GatewayBaseURL, cfg.OTP.GatewayToken, cfg.OTP.GatewaySender)
	} else if !cfg.IsLocal() {
		logger.Warn("OTP_GATEWAY_TOKEN is empty; codes are only logged")
	}
	otpSvc := otp.NewService(otpStore, sender, norm, cfg.OTP.TTL, cfg.OTP.Length, logger)

	healthH := handlers.NewHealthHandler(logger, deps)
	trackingH := handlers.NewTrackingHandler(logger, norm, registry, ingestor, tracker, scheduler, cfg.Tracking.NearbyRadiusKm)
	authH := handlers.NewAuthHandler(logger, norm, driverSvc, otpSvc, refreshStore, jwtm)
	profileH := handlers.NewProfileHandler(logger, driverSvc)
	dispatchH := handlers.NewDispatchHandler(logger, registry)

	r.GET("/health", healthH.Live)
	r.GET("/ready", healthH.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	swaggerui.Register(r)

	v1 := r.Group("/v1")
	v1.Use(mw.RequireBaseHeaders(cfg.Security))
	v1.Use(mw.RateLimit(deps.Redis, cfg.Security.RateLimitRPS, logger))

	v1.POST("/start-trip", trackingH.StartTrip)
	v1.POST("/update-location", trackingH.UpdateLocation)
	v1.POST("/save-last-location", trackingH.SaveLastLocation)
	v1.GET("/driver-location/:phone", trackingH.DriverLocation)
	v1.GET("/trip-snapshots/:tripId", trackingH.TripSnapshots)
	v1.GET("/tracking/nearby", trackingH.Nearby)

	v1.POST("/auth/otp/send", authH.SendOTP)
	v1.POST("/auth/otp/verify", authH.VerifyOTP)
	v1.POST("/auth/refresh", authH.Refresh)
	v1.POST("/auth/logout", authH.Logout)

	authed := v1.Group("/drivers")
	authed.Use(mw.RequireDriver(jwtm))
	authed.GET("/profile", profileH.Get)
	authed.PATCH("/profile", profileH.Update)

	dispatch := v1.Group("/dispatch")
	dispatch.Use(mw.RequireFrontend())
	dispatch.POST("/trips", dispatchH.Schedule)
	dispatch.POST("/trips/:id/finish", dispatchH.Finish)

	return r
}

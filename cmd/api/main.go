package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/clearbrook/scheduler/internal/api/router"
	"github.com/clearbrook/scheduler/internal/audit"
	"github.com/clearbrook/scheduler/internal/booking"
	"github.com/clearbrook/scheduler/internal/breaks"
	appconfig "github.com/clearbrook/scheduler/internal/config"
	"github.com/clearbrook/scheduler/internal/groups"
	"github.com/clearbrook/scheduler/internal/http/handlers"
	httpmiddleware "github.com/clearbrook/scheduler/internal/http/middleware"
	"github.com/clearbrook/scheduler/internal/locks"
	"github.com/clearbrook/scheduler/internal/notify"
	"github.com/clearbrook/scheduler/internal/observability/metrics"
	"github.com/clearbrook/scheduler/internal/override"
	"github.com/clearbrook/scheduler/internal/shifts"
	"github.com/clearbrook/scheduler/internal/slots"
	"github.com/clearbrook/scheduler/internal/waitlist"
	"github.com/clearbrook/scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// database/sql handle for the audit trail.
	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	// Repositories
	shiftRepo := shifts.NewRepository(pool)
	breakRepo := breaks.NewRepository(pool)
	apptRepo := booking.NewRepository(pool)
	waitlistRepo := waitlist.NewRepository(pool)
	auditService := audit.NewService(sqlDB)

	// Redis slot lock, optional
	var locker locks.SlotLocker = locks.NoopLocker{}
	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(opts)
		defer func() { _ = redisClient.Close() }()
		locker = locks.NewRedisSlotLocker(redisClient, cfg.SlotLockTTL)
		logger.Info("redis slot locking enabled", "addr", cfg.RedisAddr)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	schedMetrics := metrics.NewSchedulingMetrics(registry)

	// Override session
	session := override.NewSession(override.Config{
		Timeout:     cfg.OverrideTimeout,
		WarningLead: cfg.OverrideWarningLead,
		OnExpire:    func() { schedMetrics.ObserveOverride("expired") },
		Recorder:    auditService,
		Logger:      logger,
	})
	defer session.Close()

	// Waitlist auto-fill offers via email. Falls back to the stub when
	// SendGrid is not configured.
	var sender notify.EmailSender = notify.NewStubEmailSender(logger)
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		sender = sg
	}
	offerService := waitlist.NewOfferService(waitlist.NewPGDirectory(pool), sender, auditService, logger)

	bookingService := booking.NewService(booking.Config{
		Store:    apptRepo,
		Breaks:   breakRepo,
		Override: session,
		Locker:   locker,
		Recorder: auditService,
		Waitlist: waitlistRepo,
		Offers:   offerService,
		Logger:   logger,
	})

	// Group discount tiers
	tiers := groups.DefaultDiscountTiers()
	if cfg.GroupDiscountTiers != "" {
		parsed, err := groups.ParseTiers(cfg.GroupDiscountTiers)
		if err != nil {
			logger.Error("invalid GROUP_DISCOUNT_TIERS", "error", err)
			os.Exit(1)
		}
		tiers = parsed
	}

	finder := slots.NewFinder(cfg.SlotGranularityMins)

	routerCfg := &router.Config{
		Logger: logger,
		Availability: handlers.NewAvailabilityHandler(handlers.AvailabilityConfig{
			Finder:       finder,
			Appointments: apptRepo,
			Breaks:       breakRepo,
			Shifts:       shiftRepo,
			Metrics:      schedMetrics,
			Logger:       logger,
		}),
		Appointments: handlers.NewAppointmentsHandler(handlers.AppointmentsConfig{
			Bookings:     bookingService,
			Appointments: apptRepo,
			Metrics:      schedMetrics,
			Logger:       logger,
		}),
		Groups: handlers.NewGroupsHandler(handlers.GroupsConfig{
			Bookings: bookingService,
			Tiers:    tiers,
			Metrics:  schedMetrics,
			Logger:   logger,
		}),
		Override: handlers.NewOverrideHandler(handlers.OverrideConfig{
			Session: session,
			Metrics: schedMetrics,
			Logger:  logger,
		}),
		Waitlist: handlers.NewWaitlistHandler(handlers.WaitlistConfig{
			Store:        waitlistRepo,
			Appointments: apptRepo,
			Logger:       logger,
		}),
		Shifts: handlers.NewShiftsHandler(handlers.ShiftsConfig{
			Shifts: shiftRepo,
			Breaks: breakRepo,
			Logger: logger,
		}),
		Audit:              handlers.NewAuditHandler(auditService, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		StaffAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          httpmiddleware.NewRateLimiter(20, 40),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Marga-Ghale/teamhub-backend/internal/api"
	"github.com/Marga-Ghale/teamhub-backend/internal/api/middleware"
	"github.com/Marga-Ghale/teamhub-backend/internal/config"
	"github.com/Marga-Ghale/teamhub-backend/internal/cron"
	"github.com/Marga-Ghale/teamhub-backend/internal/db"
	"github.com/Marga-Ghale/teamhub-backend/internal/email"
	"github.com/Marga-Ghale/teamhub-backend/internal/logger"
	"github.com/Marga-Ghale/teamhub-backend/internal/metrics"
	"github.com/Marga-Ghale/teamhub-backend/internal/ops"
	"github.com/Marga-Ghale/teamhub-backend/internal/repository"
	"github.com/Marga-Ghale/teamhub-backend/internal/repository/memory"
	"github.com/Marga-Ghale/teamhub-backend/internal/seed"
	"github.com/Marga-Ghale/teamhub-backend/internal/service"
	"github.com/Marga-Ghale/teamhub-backend/internal/socket"
	"github.com/gin-gonic/gin"
)

// developmentJWTSecret lets a local build start without JWT_SECRET.
// config.Validate rejects an empty secret outside development.
const developmentJWTSecret = "teamhub-development-secret"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "teamhub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ============================================
	// Load configuration
	// ============================================
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pingers := map[string]ops.Pinger{}

	// ============================================
	// Initialize Store
	// ============================================
	var (
		store   repository.Store
		queries repository.QueryRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memory.New()
		store, queries = mem, mem
		log.Warn("Using in-memory store; data is lost on restart")

	default:
		log.Infow("Running database migrations", "path", cfg.MigrationsPath)
		if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}

		pg, err := db.NewPostgresDB(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer pg.Close()

		store = repository.NewSQLStore(pg.DB, log)
		queries = repository.NewQueryRepository(pg.Pool)
		pingers["postgres"] = pg
	}

	// ============================================
	// Initialize Redis sessions (optional)
	// ============================================
	var (
		sessionChecker middleware.SessionChecker
		sessionRevoker service.SessionRevoker
	)
	if cfg.RedisURL != "" {
		redisDB, err := db.NewRedisDB(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Warnw("Redis unavailable, sessions will not be checked or revoked", "error", err)
		} else {
			defer redisDB.Close()
			sessions := db.NewSessionStore(redisDB.Client)
			sessionChecker, sessionRevoker = sessions, sessions
			pingers["redis"] = redisDB
		}
	}

	// ============================================
	// Initialize Email, WebSocket Hub and Metrics
	// ============================================
	emailSvc := email.NewService(&email.Config{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Password:    cfg.SMTPPassword,
		From:        cfg.SMTPFrom,
		FromName:    cfg.SMTPFromName,
		UseTLS:      cfg.SMTPUseTLS,
		FrontendURL: cfg.FrontendURL,
	}, log)
	if cfg.SMTPHost == "" {
		log.Warn("Email not configured (SMTP_HOST not set); messages will only be logged")
	}

	hub := socket.NewHub(log)
	go hub.Run(ctx)
	broadcaster := socket.NewBroadcaster(hub)

	m := metrics.New()

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Store:         store,
		Queries:       queries,
		Plans:         cfg.Plans,
		InvitationTTL: cfg.InvitationTTL,
		Notifier:      emailSvc,
		Events:        broadcaster,
		Sessions:      sessionRevoker,
		Recorder:      m,
		Log:           log,
	})

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.StoreDriver == config.StoreDriverMemory && cfg.IsDevelopment() {
		if err := seed.SeedData(ctx, store, services, log); err != nil {
			return err
		}
	}

	secret := cfg.JWTSecret
	if secret == "" {
		log.Warn("JWT_SECRET not set; using the development secret")
		secret = developmentJWTSecret
	}
	verifier := middleware.NewJWTVerifier(secret)
	inviteLimit := middleware.NewRateLimiter(cfg.InviteRatePerMinute, cfg.InviteRateBurst, log)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	scheduler := cron.NewScheduler(services.Invitations, cfg.ExpirySweepSchedule, log)
	if err := scheduler.Every("@every 10m", "invite rate limiter cleanup", inviteLimit.Cleanup); err != nil {
		return err
	}
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	// ============================================
	// Create Routers
	// ============================================
	router := api.NewRouter(api.RouterDeps{
		Services:    services,
		Verifier:    verifier,
		Sessions:    sessionChecker,
		InviteLimit: inviteLimit,
		WebSocket:   socket.NewHandler(hub, verifier, socket.MemberRooms(queries)),
		Metrics:     m,
		FrontendURL: cfg.FrontendURL,
		Log:         log,
	})

	opsServer := ops.NewServer(":"+cfg.OpsPort, ops.NewRouter(m.Handler(), pingers), log)
	opsServer.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("Server starting", "port", cfg.Port, "environment", cfg.Environment, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ============================================
	// Graceful shutdown
	// ============================================
	select {
	case <-ctx.Done():
		log.Info("Shutting down server...")
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Ops server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
	return nil
}

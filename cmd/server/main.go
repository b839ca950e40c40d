package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/yatube/backend/internal/cache"
	"github.com/anonto42/yatube/backend/internal/handlers"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/router"
	"github.com/anonto42/yatube/backend/internal/storage"
	"github.com/anonto42/yatube/backend/internal/views"
	"github.com/anonto42/yatube/backend/pkg/config"
	"github.com/anonto42/yatube/backend/pkg/firebase"
	"github.com/anonto42/yatube/backend/pkg/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run() error {
	// Load configuration
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer zlog.Sync()

	// Initialize database connections
	db, err := config.InitDB(cfg, zlog)
	if err != nil {
		return fmt.Errorf("initialize databases: %w", err)
	}
	defer db.CloseDB()

	if err := db.Migrate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := router.Dependencies{
		Repos: router.NewPostgresRepositories(db.Postgres),
		Session: handlers.SessionConfig{
			Secret:       cfg.SecretKey,
			TTL:          cfg.SessionTTL,
			SecureCookie: cfg.IsProduction(),
		},
		Metrics: metrics.New(),
		Logger:  zlog,
	}

	if db.Mongo != nil {
		images, err := storage.NewGridFSImageStore(db.Mongo.Database(cfg.MongoDatabase))
		if err != nil {
			return fmt.Errorf("initialize image store: %w", err)
		}
		deps.Images = images
	}
	if db.Redis != nil {
		deps.PageCache = cache.NewRedisPageCache(db.Redis, cfg.IndexCacheTTL)
	}

	// Firebase login is optional
	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			return fmt.Errorf("initialize firebase: %w", err)
		}
		deps.Verifier = firebaseApp
		zlog.Info("Firebase app and auth client initialized")
	}

	renderer, err := views.NewRenderer()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	config.SetupMiddleware(e, zlog)
	router.SetupRoutes(e, deps)

	go deps.Metrics.Serve(ctx, ":"+cfg.MetricsPort, zlog)

	return serve(ctx, e, ":"+cfg.Port, zlog)
}

// serve runs e on addr until ctx is cancelled or the listener fails, then shuts it down.
func serve(ctx context.Context, e *echo.Echo, addr string, zlog *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zlog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

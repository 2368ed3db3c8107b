package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/govairn/govairn-backend/internal/data/db"
	"github.com/govairn/govairn-backend/internal/data/repos"
	"github.com/govairn/govairn-backend/internal/http"
	"github.com/govairn/govairn-backend/internal/observability"
	"github.com/govairn/govairn-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *http.Server
	Cfg      Config
	Repos    repos.Set
	Clients  Clients
	Services Services

	store        *db.Service
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.OtelServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})

	store, err := db.Open(log, cfg.DB)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := store.AutoMigrateAll(); err != nil {
		_ = store.Close()
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	theDB := store.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	repoSet := repos.NewSet(theDB, log)

	serviceSet, err := wireServices(theDB, log, cfg, repoSet, clients)
	if err != nil {
		clients.Close()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	handlerSet := wireHandlers(theDB, log, serviceSet)
	middleware := wireMiddleware(log, serviceSet)
	server := wireRouter(log, cfg, handlerSet, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Repos:        repoSet,
		Clients:      clients,
		Services:     serviceSet,
		store:        store,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the queue worker in the background. It is a no-op when the
// worker is disabled or already running.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil || !a.Cfg.WorkerEnabled {
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.Services.Worker.Start(workerCtx)
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run(ctx, a.Cfg.HTTPAddr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.Services.Worker.Wait()
		a.cancel = nil
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("Failed to close db", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("Failed to shut down tracing", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

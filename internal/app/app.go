package app

import (
	"context"
	"fmt"

	"github.com/yungbote/careerprep-backend/internal/data/db"
	httpapi "github.com/yungbote/careerprep-backend/internal/http"
	"github.com/yungbote/careerprep-backend/internal/observability"
	"github.com/yungbote/careerprep-backend/internal/platform/logger"
	"github.com/yungbote/careerprep-backend/internal/platform/shutdown"
	"github.com/yungbote/careerprep-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *db.Service
	Server   *httpapi.Server
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	SSEHub   *realtime.SSEHub

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger builds the process logger for cfg.LogMode.
func NewLogger(cfg Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDB connects to the configured database and, when migrate is set,
// brings the schema up to date.
func OpenDB(log *logger.Logger, cfg Config, migrate bool) (*db.Service, error) {
	svc, err := db.Open(log, cfg.DB)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := db.AutoMigrateAll(svc.DB()); err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	return svc, nil
}

func New(ctx context.Context, log *logger.Logger, cfg Config) (*App, error) {
	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	dbs, err := OpenDB(log, cfg, true)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = dbs.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	reposet := wireRepos(dbs.DB(), log)

	serviceset, err := wireServices(log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = dbs.Close()
		_ = otelShutdown(ctx)
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	handlerset := wireHandlers(log, cfg, dbs.DB(), reposet, clients, serviceset, hub)
	middleware := wireMiddleware(log, serviceset)

	return &App{
		Log:          log,
		DB:           dbs,
		Server:       wireServer(log, cfg, handlerset, middleware),
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		SSEHub:       hub,
		otelShutdown: otelShutdown,
	}, nil
}

// Start forwards bus messages into the local SSE hub.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	if err := a.Clients.SSEBus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start SSE forwarder: %w", err)
	}
	return nil
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
}

// Close drains pending record writes, then releases clients, the database
// and the tracer provider.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	err := shutdown.Run(a.Cfg.ShutdownTimeout,
		func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				a.Services.Saver.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return fmt.Errorf("pending record writes: %w", ctx.Err())
			}
		},
		func(context.Context) error {
			a.Clients.Close()
			return nil
		},
		func(context.Context) error { return a.DB.Close() },
		a.otelShutdown,
	)
	a.Log.Sync()
	return err
}

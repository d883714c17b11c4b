package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/devjourney-backend/internal/data/catalog"
	"github.com/yungbote/devjourney-backend/internal/data/tiered"
	"github.com/yungbote/devjourney-backend/internal/http"
	"github.com/yungbote/devjourney-backend/internal/observability"
	"github.com/yungbote/devjourney-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Catalog  *catalog.Catalog
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *http.Server

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.OtelEndpoint,
		Headers:     cfg.OtelHeaders,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	log.Info("Loading catalog...", "path", cfg.CatalogPath)
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsEnabled)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	reposet, err := wireRepos(log, cfg, clients, metrics)
	if err != nil {
		_ = clients.Close()
		log.Sync()
		return nil, err
	}
	serviceset := wireServices(log, cfg, cat, reposet)
	handlerset := wireHandlers(log, serviceset, reposet)
	middleware := wireMiddleware(log, serviceset)
	server := wireServer(log, cfg, handlerset, middleware, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Catalog:      cat,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background loops: invalidation forwarding, the periodic
// local-to-remote resync and the store health collector.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Repos.Bus != nil {
		resolver := a.Repos.Resolver
		err := a.Repos.Bus.StartForwarder(ctx, func(msg tiered.Invalidation) {
			a.Metrics.IncInvalidation("bus")
			resolver.HandleInvalidation(ctx, msg)
		})
		if err != nil {
			a.Log.Warn("invalidation forwarder not started", "error", err)
		}
	}

	if a.Clients.Postgres != nil && a.Cfg.SyncInterval > 0 {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			runSyncLoop(ctx, a.Log, a.Repos.Resolver, a.Metrics, a.Cfg.SyncInterval)
		}()
	}

	a.Metrics.StartStoreCollector(ctx, a.Log, a.Cfg.StoreProbeInterval, a.Repos.Resolver.Health)
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("http server listening", "addr", a.Cfg.HTTPAddr)
	return a.Server.Run()
}

// Shutdown drains in-flight requests. Close releases everything else.
func (a *App) Shutdown(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return nil
	}
	return a.Server.Shutdown(ctx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.wg.Wait()
	if a.Repos.Bus != nil {
		if err := a.Repos.Bus.Close(); err != nil {
			a.Log.Warn("invalidation bus close", "error", err)
		}
	}
	if err := a.Clients.Close(); err != nil {
		a.Log.Warn("close clients", "error", err)
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

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

	"go.uber.org/zap"

	"artlicor/backend/internal/cache"
	"artlicor/backend/internal/catalog"
	"artlicor/backend/internal/config"
	"artlicor/backend/internal/events"
	"artlicor/backend/internal/export"
	"artlicor/backend/internal/httpapi"
	"artlicor/backend/internal/logging"
	"artlicor/backend/internal/money"
	"artlicor/backend/internal/sales"
	"artlicor/backend/internal/service"
	"artlicor/backend/internal/store"
	"artlicor/backend/internal/store/memory"
	pgstore "artlicor/backend/internal/store/postgres"
)

const pruneInterval = 10 * time.Minute

type app struct {
	handler http.Handler
	service *service.Service
	closers []func() error
}

func (a *app) close(logger *zap.Logger) {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.Warn("close error", zap.Error(err))
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	application, err := newApp(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           application.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.CommitTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	pruneCtx, stopPrune := context.WithCancel(context.Background())
	go pruneRegisters(pruneCtx, application.service, cfg.RegisterIdle(), logger)

	go func() {
		logger.Info("art licor backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	stopPrune()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.CommitTimeout()+5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	application.close(logger)
	logger.Info("server stopped")
}

// newApp wires the store, the catalog cache, the event bus and the service.
// A configured database that cannot be reached is fatal; an unreachable
// redis falls back to the in-process cache.
func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	tag, err := cfg.Language()
	if err != nil {
		return nil, err
	}
	location, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	application := &app{}

	var repo store.Repository
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set: %w", err)
		}
		application.closers = append(application.closers, pg.Close)
		if cfg.ApplySchema {
			if err := pg.ApplySchema(ctx); err != nil {
				application.close(logger)
				return nil, fmt.Errorf("apply schema: %w", err)
			}
		}
		repo = pg
		logger.Info("repository: postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository: in-memory")
	}

	catalogCache := cache.CatalogCache(cache.NewMemoryCatalogCache())
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCatalogCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using in-process cache", zap.Error(err))
			_ = redisCache.Close()
		} else {
			catalogCache = redisCache
			application.closers = append(application.closers, redisCache.Close)
			logger.Info("cache: redis")
		}
	} else {
		logger.Info("cache: in-process")
	}

	bus := events.NewBus(logger)
	lookup := catalog.NewLookup(repo, catalogCache, cfg.CatalogCacheTTL(), logger)
	bus.Subscribe("catalog-cache", lookup.HandleEvent)

	application.service = service.New(service.Deps{
		Repo:              repo,
		Catalog:           lookup,
		Publisher:         bus,
		Protocol:          sales.NewProtocol(repo, bus, cfg.CommitTimeout(), logger),
		Registers:         sales.NewRegistry(),
		Renderer:          export.NewRenderer(money.NewFormatter(tag, cfg.CurrencySymbol), location, cfg.LogoPath),
		Location:          location,
		FallbackStoreName: cfg.StoreNameFallback,
		Logger:            logger,
	})
	application.handler = httpapi.New(application.service, logger, cfg.AllowedOrigin).Handler()
	return application, nil
}

func pruneRegisters(ctx context.Context, svc *service.Service, maxIdle time.Duration, logger *zap.Logger) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.PruneRegisters(maxIdle); n > 0 {
				logger.Info("idle registers pruned", zap.Int("count", n))
			}
		}
	}
}

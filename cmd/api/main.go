package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/gabrielgalarza/orgmapper/internal/api/http"
	"github.com/gabrielgalarza/orgmapper/internal/api/http/handlers"
	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/config"
	"github.com/gabrielgalarza/orgmapper/internal/events"
	"github.com/gabrielgalarza/orgmapper/internal/mutation"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
	"github.com/gabrielgalarza/orgmapper/internal/persistence"
	"github.com/gabrielgalarza/orgmapper/internal/repository"
	"github.com/gabrielgalarza/orgmapper/internal/service"
	"github.com/gabrielgalarza/orgmapper/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := persistence.Open(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer store.Close()

	clk := clock.Real()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	repo := repository.NewOrganizationRepository(store, logger,
		repository.WithKeyPrefix(cfg.Storage.KeyPrefix),
		repository.WithClock(clk),
	)
	autosaver := worker.NewAutosaver(repo, clk, cfg.Autosave.Debounce(), logger, metrics)
	worker.StartAutosaveWorker(dispatcher, autosaver)

	activity := service.NewActivityService(dispatcher, logger, 0)
	activity.RegisterHandlers()

	orgService := service.NewOrgService(service.OrgDependencies{
		Repository: repo,
		Engine:     mutation.NewEngine(),
		Autosaver:  autosaver,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
		Metrics:    metrics,
	})
	orgService.Start(ctx)
	logger.Info("organization loaded",
		zap.String("org_id", orgService.Current().ID),
		zap.String("backend", cfg.Storage.Backend))

	app := httptransport.NewApp(cfg.App, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, cfg.Storage.Backend, store),
		Document:      handlers.NewDocumentHandler(orgService),
		Query:         handlers.NewQueryHandler(orgService),
		Organizations: handlers.NewOrganizationsHandler(orgService, activity),
		Transfer:      handlers.NewTransferHandler(orgService, cfg.Share.BaseURL),
		Metrics:       metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := orgService.Shutdown(flushCtx); err != nil {
		logger.Error("failed to save pending changes", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

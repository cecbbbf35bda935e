package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/gabrielgalarza/orgmapper/internal/clock"
	"github.com/gabrielgalarza/orgmapper/internal/config"
	"github.com/gabrielgalarza/orgmapper/internal/events"
	"github.com/gabrielgalarza/orgmapper/internal/observability"
	"github.com/gabrielgalarza/orgmapper/internal/persistence"
	"github.com/gabrielgalarza/orgmapper/internal/repository"
	"github.com/gabrielgalarza/orgmapper/internal/service"
	"github.com/gabrielgalarza/orgmapper/internal/worker"
)

// session is one open connection to the catalog for the duration of a command.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	store  persistence.KVStore
	svc    *service.OrgService
}

func openSession(ctx context.Context, verbose bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.Logger.Format = "console"
	if !verbose {
		cfg.Logger.Level = "warn"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, err
	}

	store, err := persistence.Open(ctx, *cfg, logger)
	if err != nil {
		return nil, err
	}

	clk := clock.Real()
	dispatcher := events.NewInMemoryDispatcher()
	repo := repository.NewOrganizationRepository(store, logger,
		repository.WithKeyPrefix(cfg.Storage.KeyPrefix),
		repository.WithClock(clk),
	)
	autosaver := worker.NewAutosaver(repo, clk, cfg.Autosave.Debounce(), logger, nil)
	worker.StartAutosaveWorker(dispatcher, autosaver)
	service.NewActivityService(dispatcher, logger, 0).RegisterHandlers()

	svc := service.NewOrgService(service.OrgDependencies{
		Repository: repo,
		Autosaver:  autosaver,
		Dispatcher: dispatcher,
		Clock:      clk,
		Logger:     logger,
	})
	svc.Start(ctx)

	return &session{cfg: cfg, logger: logger, store: store, svc: svc}, nil
}

func (s *session) Close(ctx context.Context) error {
	err := s.svc.Shutdown(ctx)
	err = errors.Join(err, s.store.Close())
	_ = s.logger.Sync()
	return err
}

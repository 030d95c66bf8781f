// Package app assembles the service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/park285/cheese-frames/internal/archive"
	"github.com/park285/cheese-frames/internal/config"
	"github.com/park285/cheese-frames/internal/framepresenter"
	"github.com/park285/cheese-frames/internal/httpapi"
	"github.com/park285/cheese-frames/internal/hubclient"
	"github.com/park285/cheese-frames/internal/msgcat"
	"github.com/park285/cheese-frames/internal/orchestrator"
	"github.com/park285/cheese-frames/internal/render"
	"github.com/park285/cheese-frames/internal/rules"
	"github.com/park285/cheese-frames/internal/session"
	"go.uber.org/zap"
)

type Deps struct {
	Store        *session.Store
	Persister    *session.Persister
	Archive      archive.Repository
	Orchestrator *orchestrator.Orchestrator
	HTTP         *fiber.App
}

// New opens the persistence backend, restores sessions from it and wires the
// orchestrator behind the HTTP app.
func New(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	session.DisplayNameLimit = cfg.DisplayNameLimit

	store, persister, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var repo archive.Repository
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pg, err := archive.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		repo = pg
	} else {
		repo = archive.NewMemoryRepository()
	}

	orch := orchestrator.New(store,
		orchestrator.WithRenderer(render.NewPNGRenderer(cfg.BoardSquareSize)),
		orchestrator.WithArchive(repo),
		orchestrator.WithLogger(logger.Named("orchestrator")),
	)

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		_ = repo.Close()
		_ = store.Close()
		return nil, fmt.Errorf("load messages: %w", err)
	}
	presenter := framepresenter.NewPresenter(cfg.PublicURL, framepresenter.NewFormatter(cat))

	opts := []httpapi.Option{
		httpapi.WithPersistStats(persister),
		httpapi.WithLogger(logger.Named("http")),
	}
	if hub := strings.TrimSpace(cfg.FrameHubURL); hub != "" {
		opts = append(opts, httpapi.WithFrameValidator(hubclient.NewClient(hub, hubclient.WithTimeout(cfg.FrameHubTimeout))))
	}
	app := httpapi.NewApp(httpapi.NewHandler(orch, presenter, opts...))

	return &Deps{Store: store, Persister: persister, Archive: repo, Orchestrator: orch, HTTP: app}, nil
}

// OpenStore builds the store over the configured backend and restores it.
func OpenStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*session.Store, *session.Persister, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	backend, err := session.OpenBackend(ctx, session.BackendOptions{
		Kind:        cfg.PersistBackend,
		FilePath:    cfg.PersistFile,
		RedisURL:    cfg.RedisURL,
		RedisKey:    cfg.RedisKey,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s backend: %w", cfg.PersistBackend, err)
	}
	persister := session.NewPersister(backend, logger.Named("persist"),
		session.Synchronous(cfg.PersistSync),
		session.WriteTimeout(cfg.PersistTimeout),
	)
	store := session.NewStore(rules.NewEngine(),
		session.WithPersister(persister),
		session.WithLogger(logger.Named("store")),
	)
	loaded, degraded, err := store.Restore(ctx)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("restore sessions: %w", err)
	}
	logger.Info("persistence_ready",
		zap.String("backend", cfg.PersistBackend),
		zap.Bool("sync", cfg.PersistSync),
		zap.Int("loaded", loaded),
		zap.Int("degraded", degraded),
	)
	return store, persister, nil
}

// Close flushes pending writes and releases backends.
func (d *Deps) Close(ctx context.Context) error {
	d.Store.Flush(ctx)
	var errs []error
	if err := d.Archive.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close archive: %w", err))
	}
	if err := d.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// Package application wires configuration into the record store, session
// guard and student service shared by the server and admin binaries.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/disha/internal/auth"
	"github.com/JonMunkholm/disha/internal/config"
	"github.com/JonMunkholm/disha/internal/core"
	"github.com/JonMunkholm/disha/internal/database"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config  *config.Config
	Store   core.Store
	Guard   *auth.Guard
	Service *core.Service

	closers []func()
}

// Open builds the store, session slot, guard and service described by cfg.
// Close releases whatever Open acquired, also after a partial failure.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	store, closeStore, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, closeStore)

	slot, closeSlot, err := OpenSlot(ctx, cfg.Session)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeSlot)

	app.Guard, err = auth.NewGuard(ctx, store, slot, auth.Options{
		Secret:   []byte(cfg.Session.Secret),
		TokenTTL: cfg.Session.TTL,
	})
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create session guard: %w", err)
	}

	app.Service = core.NewService(store, app.Guard, core.ServiceOptions{
		MaxFileSize:          cfg.Import.MaxFileSize,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
		ImportTimeout:        cfg.Import.Timeout,
	})
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// OpenStore connects the record store selected by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (core.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		slog.Warn("using in-memory record store; data is lost on exit")
		return database.NewMemory(), func() {}, nil

	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("connected to database", "name", database.DatabaseName(cfg.URL))

		pg := database.NewPostgres(pool)
		if cfg.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pg, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// OpenSlot creates the session slot selected by cfg.Backend.
func OpenSlot(ctx context.Context, cfg config.SessionConfig) (auth.Slot, func(), error) {
	switch cfg.Backend {
	case config.SessionMemory:
		return auth.NewMemorySlot(), func() {}, nil

	case config.SessionFile:
		slog.Info("session slot", "backend", cfg.Backend, "path", cfg.Path)
		return auth.NewFileSlot(cfg.Path), func() {}, nil

	case config.SessionRedis:
		client, err := auth.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("session slot", "backend", cfg.Backend, "addr", cfg.RedisAddr, "key", cfg.RedisKey)
		return auth.NewRedisSlot(client, cfg.RedisKey), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

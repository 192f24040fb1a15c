package cli

import (
	"context"
	"errors"
	"fmt"

	"pfm/internal/backend"
	"pfm/internal/commands"
	"pfm/internal/config"
	"pfm/internal/gateway"
	"pfm/internal/log"
	"pfm/internal/storage"
	"pfm/internal/viewmodel"
)

// Source tags mutations issued from the terminal.
const Source = "cli"

// App wires one terminal invocation: the gateway, its view model, the
// command runner and the local snapshot store.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Gateway  *gateway.Gateway
	View     *viewmodel.Aggregator
	Commands *commands.Commands
	Repo     *storage.SQLiteRepository

	closers []func() error
}

// NewApp creates the backend named by cfg and wires the rest around it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	var events commands.Publisher
	if res.Events != nil {
		events = res.Events
	}
	app, err := newApp(cfg, logger, res.API, events)
	if err != nil {
		res.Close()
		return nil, err
	}
	app.closers = append(app.closers, res.Close)
	return app, nil
}

func newApp(cfg *config.Config, logger *log.Logger, api gateway.API, events commands.Publisher) (*App, error) {
	logger = logger.WithComponent(log.ComponentCLI)
	repo, err := InitSQLite(logger, cfg.SQLiteDBPath, cfg.APIBaseURL)
	if err != nil {
		return nil, err
	}

	gw := gateway.New(api, logger)
	agg := viewmodel.NewAggregator(gw, nil, logger)
	pub := commands.Fanout{repo}
	if events != nil {
		pub = append(pub, events)
	}
	return &App{
		Config:   cfg,
		Logger:   logger,
		Gateway:  gw,
		View:     agg,
		Commands: commands.New(gw, agg, logger, commands.WithPublisher(pub, Source)),
		Repo:     repo,
		closers:  []func() error{repo.Close},
	}, nil
}

// Load shows the last saved view first, then reloads from the API. A
// failed resource therefore keeps its saved value behind the error banner.
// A fully successful reload replaces the saved view.
func (a *App) Load(ctx context.Context) viewmodel.Snapshot {
	saved, ok, err := a.Repo.LoadSnapshot(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "Ignoring unreadable snapshot", log.FieldError, err.Error())
	} else if ok {
		a.View.Store().Dispatch(viewmodel.SnapshotRestored{Snapshot: saved})
	}

	snap := a.View.Reload(ctx)
	a.persist(ctx)
	return snap
}

// persist saves the current view unless a resource failed.
func (a *App) persist(ctx context.Context) {
	snap := a.View.Store().Snapshot()
	if snap.Error != "" {
		return
	}
	if err := a.Repo.SaveSnapshot(ctx, snap); err != nil {
		a.Logger.WarnContext(ctx, "Failed to save snapshot", log.FieldError, err.Error())
	}
}

// Close releases the store and the backend.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close app: %w", errors.Join(errs...))
	}
	return nil
}

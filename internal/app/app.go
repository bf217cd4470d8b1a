package app

import (
	"context"
	"fmt"
	"log/slog"

	"StockPredictor/internal/config"
	"StockPredictor/internal/infrastructure/ann"
	"StockPredictor/internal/infrastructure/storage"
	"StockPredictor/internal/infrastructure/tabular"
	"StockPredictor/internal/logging"
	"StockPredictor/internal/ports"
	"StockPredictor/internal/sanitize"
	"StockPredictor/internal/server"
	"StockPredictor/internal/usecase"
)

// Application wires config to the workbench and the serving surfaces.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	workbench *usecase.Workbench
	server    *server.Server
	runs      *storage.SQLiteRepository
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	var runs *storage.SQLiteRepository
	if cfg.Storage.HistoryPath != "" {
		repo, err := storage.Open(cfg.Storage.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		runs = repo
	}

	sanitizer := sanitize.New(sanitize.Options{
		RowDropRatio:    cfg.Sanitizer.RowDropRatio,
		ColumnDropRatio: cfg.Sanitizer.ColumnDropRatio,
	}, baseLogger.With("component", "sanitizer"))

	deps := usecase.WorkbenchDeps{
		Source:    tabular.NewCSVSource(baseLogger.With("component", "csv")),
		Sanitizer: sanitizer,
		NewRegressor: func(inputDim int) (ports.Regressor, error) {
			return ann.New(inputDim, ann.Config{
				Hidden:       cfg.Training.Hidden,
				LearningRate: cfg.Training.LearningRate,
			})
		},
		Logger:     baseLogger.With("component", "workbench"),
		MinRows:    cfg.Training.MinRows,
		TrainSplit: cfg.Training.TrainSplit,
	}
	if runs != nil {
		deps.Runs = runs
	}
	workbench := usecase.NewWorkbench(deps)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		workbench: workbench,
		server:    server.New(workbench, baseLogger.With("component", "server")),
		runs:      runs,
	}, nil
}

// Workbench exposes the orchestration layer to the CLI.
func (a *Application) Workbench() *usecase.Workbench {
	return a.workbench
}

// Serve runs the REST surface until the context is canceled.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	return a.server.Run(ctx, addr)
}

// Close releases held resources (currently the run-history database).
func (a *Application) Close() error {
	if a.runs != nil {
		return a.runs.Close()
	}
	return nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"StockPredictor/internal/domain"
	"StockPredictor/internal/ports"
)

const schema = `CREATE TABLE IF NOT EXISTS training_runs (
	model_id       TEXT PRIMARY KEY,
	created_at     TIMESTAMP NOT NULL,
	input_features INTEGER NOT NULL,
	train_samples  INTEGER NOT NULL,
	test_samples   INTEGER NOT NULL,
	epochs         INTEGER NOT NULL,
	batch_size     INTEGER NOT NULL,
	loss           REAL NOT NULL,
	mae            REAL NOT NULL,
	elapsed_sec    REAL NOT NULL,
	rows           INTEGER NOT NULL,
	columns        INTEGER NOT NULL
)`

// SQLiteRepository records completed training runs in a local SQLite file.
// The model slot itself stays in memory; this is history, not state.
type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.RunRepository = (*SQLiteRepository)(nil)

// Open creates (or opens) the run-history database and ensures the schema.
func Open(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveRun inserts one training-run summary.
func (r *SQLiteRepository) SaveRun(ctx context.Context, run domain.TrainingRun) error {
	if r.db == nil {
		return nil
	}

	_, err := sq.Insert("training_runs").
		Columns("model_id", "created_at", "input_features", "train_samples",
			"test_samples", "epochs", "batch_size", "loss", "mae",
			"elapsed_sec", "rows", "columns").
		Values(run.ModelID, run.CreatedAt, run.InputFeatures, run.TrainSamples,
			run.TestSamples, run.Epochs, run.BatchSize, run.Loss, run.MAE,
			run.ElapsedSec, run.Rows, run.Columns).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert training run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest run summaries, newest first.
func (r *SQLiteRepository) RecentRuns(ctx context.Context, limit int) ([]domain.TrainingRun, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit < 1 {
		limit = 20
	}

	rows, err := sq.Select("model_id", "created_at", "input_features", "train_samples",
		"test_samples", "epochs", "batch_size", "loss", "mae",
		"elapsed_sec", "rows", "columns").
		From("training_runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query training runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.TrainingRun
	for rows.Next() {
		var run domain.TrainingRun
		if err := rows.Scan(&run.ModelID, &run.CreatedAt, &run.InputFeatures,
			&run.TrainSamples, &run.TestSamples, &run.Epochs, &run.BatchSize,
			&run.Loss, &run.MAE, &run.ElapsedSec, &run.Rows, &run.Columns); err != nil {
			return nil, fmt.Errorf("scan training run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return runs, nil
}

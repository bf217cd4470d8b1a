package ports

import (
	"context"
	"io"

	"StockPredictor/internal/domain"
)

// TableSource parses an uploaded or on-disk dataset into a raw table.
type TableSource interface {
	Load(ctx context.Context, r io.Reader) (domain.RawTable, error)
}

// Regressor is the opaque training/prediction collaborator. It accepts a
// rectangular, all-finite feature matrix with a stable column count; the
// feature count at prediction time must match the one used at training time.
type Regressor interface {
	Fit(x [][]float64, y []float64, epochs, batchSize int) error
	Evaluate(x [][]float64, y []float64) (loss, mae float64, err error)
	Predict(features []float64) (float64, error)
	InputDim() int
	Save(path string) error
}

// RunRepository persists training-run summaries for history/audit.
type RunRepository interface {
	SaveRun(ctx context.Context, run domain.TrainingRun) error
	RecentRuns(ctx context.Context, limit int) ([]domain.TrainingRun, error)
}

package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"StockPredictor/internal/domain"
	"StockPredictor/internal/ports"
	"StockPredictor/pkg/floats"
)

// WorkbenchDeps wires all driven adapters into the orchestration layer.
type WorkbenchDeps struct {
	Source       ports.TableSource
	Sanitizer    Sanitizer
	NewRegressor func(inputDim int) (ports.Regressor, error)
	Runs         ports.RunRepository
	Logger       *slog.Logger

	MinRows    int     // minimum rows required before any training attempt
	TrainSplit float64 // default train fraction when the caller passes none
}

// Sanitizer is the cleaning stage contract used by the workbench.
type Sanitizer interface {
	Clean(raw domain.RawTable) (domain.CleanTable, domain.CleanReport, error)
}

// Workbench implements the load→sanitize→validate→split→train→evaluate
// workflow plus evaluation and prediction against a caller-owned handle.
type Workbench struct {
	source       ports.TableSource
	sanitizer    Sanitizer
	newRegressor func(inputDim int) (ports.Regressor, error)
	runs         ports.RunRepository
	logger       *slog.Logger
	minRows      int
	trainSplit   float64
}

// ModelHandle is the caller-owned holder of a fitted model and its metadata.
// There is deliberately no process-wide slot at this layer; each surface
// decides how (and whether) to retain the handle.
type ModelHandle struct {
	Model ports.Regressor
	Info  domain.ModelInfo
}

// TrainOptions tune one training request.
type TrainOptions struct {
	Epochs    int
	BatchSize int
	TestSplit float64 // fraction held out for testing; 0 uses the configured default
}

// NewWorkbench constructs the orchestration component.
func NewWorkbench(deps WorkbenchDeps) *Workbench {
	minRows := deps.MinRows
	if minRows < 2 {
		minRows = 10
	}
	trainSplit := deps.TrainSplit
	if trainSplit <= 0 || trainSplit >= 1 {
		trainSplit = 0.8
	}
	return &Workbench{
		source:       deps.Source,
		sanitizer:    deps.Sanitizer,
		newRegressor: deps.NewRegressor,
		runs:         deps.Runs,
		logger:       deps.Logger,
		minRows:      minRows,
		trainSplit:   trainSplit,
	}
}

// Train runs the full pipeline on a CSV stream and returns the fitted handle
// together with a summary of what happened to the data.
func (w *Workbench) Train(ctx context.Context, r io.Reader, opts TrainOptions) (*ModelHandle, domain.TrainingSummary, error) {
	started := time.Now()

	clean, report, err := w.loadAndClean(ctx, r)
	if err != nil {
		return nil, domain.TrainingSummary{}, err
	}

	x, y, err := w.validateForTraining(clean)
	if err != nil {
		return nil, domain.TrainingSummary{}, err
	}

	testSplit := opts.TestSplit
	if testSplit <= 0 || testSplit >= 1 {
		testSplit = 1 - w.trainSplit
	}
	split := int((1 - testSplit) * float64(len(x)))
	if split < 1 || split >= len(x) {
		return nil, domain.TrainingSummary{}, fmt.Errorf(
			"%w: %d rows leave no data on one side of a %.0f%%/%.0f%% split",
			domain.ErrSizing, len(x), (1-testSplit)*100, testSplit*100)
	}
	xTrain, xTest := x[:split], x[split:]
	yTrain, yTest := y[:split], y[split:]

	epochs := opts.Epochs
	if epochs < 1 {
		epochs = 50
	}
	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 32
	}

	model, err := w.newRegressor(clean.NumFeatures())
	if err != nil {
		return nil, domain.TrainingSummary{}, fmt.Errorf("build model: %w", err)
	}

	w.debug("training model",
		"features", clean.NumFeatures(),
		"train_samples", len(xTrain),
		"test_samples", len(xTest),
		"epochs", epochs,
		"batch_size", batchSize)

	if err := model.Fit(xTrain, yTrain, epochs, batchSize); err != nil {
		return nil, domain.TrainingSummary{}, fmt.Errorf("train model: %w", err)
	}

	loss, mae, err := model.Evaluate(xTest, yTest)
	if err != nil {
		return nil, domain.TrainingSummary{}, fmt.Errorf("evaluate model: %w", err)
	}

	info := domain.ModelInfo{
		ID:            "model_" + uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		InputFeatures: clean.NumFeatures(),
		TrainSamples:  len(xTrain),
		TestSamples:   len(xTest),
		Epochs:        epochs,
		BatchSize:     batchSize,
		Loss:          loss,
		MAE:           mae,
	}
	summary := domain.TrainingSummary{
		Info:       info,
		Rows:       len(clean.Rows),
		Columns:    len(clean.Columns),
		ElapsedSec: time.Since(started).Seconds(),
		Report:     report,
	}

	w.recordRun(ctx, summary)

	return &ModelHandle{Model: model, Info: info}, summary, nil
}

// EvaluateCSV cleans a fresh dataset and scores the handle's model on it.
// The cleaned table must have exactly the trained feature count plus the
// target column.
func (w *Workbench) EvaluateCSV(ctx context.Context, h *ModelHandle, r io.Reader) (domain.EvalSummary, error) {
	if h == nil || h.Model == nil {
		return domain.EvalSummary{}, domain.ErrNoModel
	}

	clean, _, err := w.loadAndClean(ctx, r)
	if err != nil {
		return domain.EvalSummary{}, err
	}

	want := h.Model.InputDim() + 1
	if len(clean.Columns) != want {
		return domain.EvalSummary{}, fmt.Errorf(
			"%w: evaluation data must have %d columns, got %d",
			domain.ErrSchema, want, len(clean.Columns))
	}
	if !floats.AllFiniteMatrix(clean.Rows) {
		return domain.EvalSummary{}, fmt.Errorf(
			"%w: evaluation data still holds missing or infinite values",
			domain.ErrNumericValidity)
	}

	x, y := clean.SplitXY()
	loss, mae, err := h.Model.Evaluate(x, y)
	if err != nil {
		return domain.EvalSummary{}, fmt.Errorf("evaluate model: %w", err)
	}

	return domain.EvalSummary{Loss: loss, MAE: mae, TestSamples: len(x)}, nil
}

// Predict validates a single ad-hoc feature vector and returns one scalar.
func (w *Workbench) Predict(ctx context.Context, h *ModelHandle, features []float64) (float64, error) {
	if h == nil || h.Model == nil {
		return 0, domain.ErrNoModel
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(features) != h.Model.InputDim() {
		return 0, fmt.Errorf("%w: expected %d features, got %d",
			domain.ErrSchema, h.Model.InputDim(), len(features))
	}
	if !floats.AllFinite(features) {
		return 0, fmt.Errorf("%w: all feature values must be finite numbers",
			domain.ErrNumericValidity)
	}
	return h.Model.Predict(features)
}

// RecentRuns surfaces the persisted training history, newest first.
func (w *Workbench) RecentRuns(ctx context.Context, limit int) ([]domain.TrainingRun, error) {
	if w.runs == nil {
		return nil, nil
	}
	return w.runs.RecentRuns(ctx, limit)
}

func (w *Workbench) loadAndClean(ctx context.Context, r io.Reader) (domain.CleanTable, domain.CleanReport, error) {
	raw, err := w.source.Load(ctx, r)
	if err != nil {
		return domain.CleanTable{}, domain.CleanReport{}, fmt.Errorf("load data: %w", err)
	}

	clean, report, err := w.sanitizer.Clean(raw)
	if err != nil {
		return domain.CleanTable{}, report, fmt.Errorf("clean data: %w", err)
	}
	for _, warning := range report.Warnings {
		w.debug("sanitizer warning", "warning", warning)
	}
	return clean, report, nil
}

// validateForTraining enforces the pre-training guards: column count,
// finiteness, and the minimum row count — all before any model exists.
func (w *Workbench) validateForTraining(clean domain.CleanTable) ([][]float64, []float64, error) {
	if len(clean.Columns) < 2 {
		return nil, nil, fmt.Errorf(
			"%w: need at least 2 numeric columns (features + target), got %d",
			domain.ErrSchema, len(clean.Columns))
	}
	if !floats.AllFiniteMatrix(clean.Rows) {
		return nil, nil, fmt.Errorf(
			"%w: data still holds missing or infinite values after cleaning",
			domain.ErrNumericValidity)
	}
	if len(clean.Rows) < w.minRows {
		return nil, nil, fmt.Errorf(
			"%w: need at least %d rows for training, got %d",
			domain.ErrSizing, w.minRows, len(clean.Rows))
	}
	x, y := clean.SplitXY()
	return x, y, nil
}

func (w *Workbench) recordRun(ctx context.Context, s domain.TrainingSummary) {
	if w.runs == nil {
		return
	}
	run := domain.TrainingRun{
		ModelID:       s.Info.ID,
		CreatedAt:     s.Info.CreatedAt,
		InputFeatures: s.Info.InputFeatures,
		TrainSamples:  s.Info.TrainSamples,
		TestSamples:   s.Info.TestSamples,
		Epochs:        s.Info.Epochs,
		BatchSize:     s.Info.BatchSize,
		Loss:          s.Info.Loss,
		MAE:           s.Info.MAE,
		ElapsedSec:    s.ElapsedSec,
		Rows:          s.Rows,
		Columns:       s.Columns,
	}
	if err := w.runs.SaveRun(ctx, run); err != nil && w.logger != nil {
		w.logger.Error("persist training run", "error", err)
	}
}

func (w *Workbench) debug(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}

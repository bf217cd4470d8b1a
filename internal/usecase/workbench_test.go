package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"StockPredictor/internal/domain"
	"StockPredictor/internal/infrastructure/ann"
	"StockPredictor/internal/infrastructure/tabular"
	"StockPredictor/internal/ports"
	"StockPredictor/internal/sanitize"
)

type recordingRuns struct {
	saved []domain.TrainingRun
}

func (r *recordingRuns) SaveRun(_ context.Context, run domain.TrainingRun) error {
	r.saved = append(r.saved, run)
	return nil
}

func (r *recordingRuns) RecentRuns(context.Context, int) ([]domain.TrainingRun, error) {
	return r.saved, nil
}

func newTestWorkbench(runs ports.RunRepository) *Workbench {
	return NewWorkbench(WorkbenchDeps{
		Source:    tabular.NewCSVSource(nil),
		Sanitizer: sanitize.New(sanitize.Options{}, nil),
		NewRegressor: func(inputDim int) (ports.Regressor, error) {
			return ann.New(inputDim, ann.Config{Hidden: []int{8}, Seed: 3})
		},
		Runs: runs,
	})
}

// linearCSV builds n rows of x1,x2,y with y = x1 + 2*x2.
func linearCSV(n int) string {
	var b strings.Builder
	b.WriteString("x1,x2,y\n")
	for i := 0; i < n; i++ {
		x1 := float64(i) / float64(n)
		x2 := float64(n-i) / float64(n)
		fmt.Fprintf(&b, "%.4f,%.4f,%.4f\n", x1, x2, x1+2*x2)
	}
	return b.String()
}

func TestTrainProducesHandleAndSummary(t *testing.T) {
	t.Parallel()

	runs := &recordingRuns{}
	wb := newTestWorkbench(runs)

	handle, summary, err := wb.Train(context.Background(), strings.NewReader(linearCSV(50)),
		TrainOptions{Epochs: 20, BatchSize: 8, TestSplit: 0.2})
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	if handle == nil || handle.Model == nil {
		t.Fatal("expected a fitted model handle")
	}
	if summary.Info.InputFeatures != 2 {
		t.Fatalf("expected 2 input features, got %d", summary.Info.InputFeatures)
	}
	if summary.Info.TrainSamples != 40 || summary.Info.TestSamples != 10 {
		t.Fatalf("unexpected split: %d/%d", summary.Info.TrainSamples, summary.Info.TestSamples)
	}
	if !strings.HasPrefix(summary.Info.ID, "model_") {
		t.Fatalf("unexpected model id: %s", summary.Info.ID)
	}
	if math.IsNaN(summary.Info.Loss) || math.IsNaN(summary.Info.MAE) {
		t.Fatalf("metrics must be finite: %+v", summary.Info)
	}
	if len(runs.saved) != 1 || runs.saved[0].ModelID != summary.Info.ID {
		t.Fatalf("expected run to be recorded, got %+v", runs.saved)
	}
}

func TestTrainFailsOnTooFewRows(t *testing.T) {
	t.Parallel()

	wb := newTestWorkbench(nil)

	_, _, err := wb.Train(context.Background(), strings.NewReader(linearCSV(9)), TrainOptions{})
	if !errors.Is(err, domain.ErrSizing) {
		t.Fatalf("expected ErrSizing, got %v", err)
	}
}

func TestTrainFailsOnSingleColumn(t *testing.T) {
	t.Parallel()

	wb := newTestWorkbench(nil)
	csv := "y\n1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n11\n"

	_, _, err := wb.Train(context.Background(), strings.NewReader(csv), TrainOptions{})
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestTrainDropsDateColumns(t *testing.T) {
	t.Parallel()

	wb := newTestWorkbench(nil)
	var b strings.Builder
	b.WriteString("Date,x,y\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "2023-01-%02d,%d,%d\n", i+1, i, 2*i)
	}

	handle, summary, err := wb.Train(context.Background(), strings.NewReader(b.String()),
		TrainOptions{Epochs: 5})
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}
	if summary.Info.InputFeatures != 1 {
		t.Fatalf("date column should not count as a feature, got %d", summary.Info.InputFeatures)
	}
	if len(summary.Report.DroppedDateColumns) != 1 {
		t.Fatalf("expected Date in the report, got %+v", summary.Report)
	}
	if handle.Model.InputDim() != 1 {
		t.Fatalf("model input dim should be 1, got %d", handle.Model.InputDim())
	}
}

func TestPredictGuards(t *testing.T) {
	t.Parallel()

	wb := newTestWorkbench(nil)
	ctx := context.Background()

	if _, err := wb.Predict(ctx, nil, []float64{1}); !errors.Is(err, domain.ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}

	handle, _, err := wb.Train(ctx, strings.NewReader(linearCSV(30)), TrainOptions{Epochs: 5})
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}

	if _, err := wb.Predict(ctx, handle, []float64{1}); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema for short vector, got %v", err)
	}
	if _, err := wb.Predict(ctx, handle, []float64{1, math.NaN()}); !errors.Is(err, domain.ErrNumericValidity) {
		t.Fatalf("expected ErrNumericValidity, got %v", err)
	}
	if _, err := wb.Predict(ctx, handle, []float64{0.5, 0.5}); err != nil {
		t.Fatalf("valid prediction failed: %v", err)
	}
}

func TestEvaluateCSVColumnMismatch(t *testing.T) {
	t.Parallel()

	wb := newTestWorkbench(nil)
	ctx := context.Background()

	handle, _, err := wb.Train(ctx, strings.NewReader(linearCSV(30)), TrainOptions{Epochs: 5})
	if err != nil {
		t.Fatalf("Train returned error: %v", err)
	}

	wrong := "a,b,c,y\n1,2,3,4\n5,6,7,8\n"
	if _, err := wb.EvaluateCSV(ctx, handle, strings.NewReader(wrong)); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}

	ok, err := wb.EvaluateCSV(ctx, handle, strings.NewReader(linearCSV(15)))
	if err != nil {
		t.Fatalf("EvaluateCSV returned error: %v", err)
	}
	if ok.TestSamples != 15 {
		t.Fatalf("expected 15 test samples, got %d", ok.TestSamples)
	}
}

func TestEvaluateWithoutModel(t *testing.T) {
	t.Parallel()

	wb := newTestWorkbench(nil)
	_, err := wb.EvaluateCSV(context.Background(), nil, strings.NewReader(linearCSV(15)))
	if !errors.Is(err, domain.ErrNoModel) {
		t.Fatalf("expected ErrNoModel, got %v", err)
	}
}

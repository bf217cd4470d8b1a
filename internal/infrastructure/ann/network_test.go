package ann

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"StockPredictor/internal/domain"
)

// linearDataset builds y = 2*x1 + 3*x2 + 1 over a small grid.
func linearDataset() (x [][]float64, y []float64) {
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			a := float64(i) / 8
			b := float64(j) / 8
			x = append(x, []float64{a, b})
			y = append(y, 2*a+3*b+1)
		}
	}
	return x, y
}

func TestFitReducesLoss(t *testing.T) {
	t.Parallel()

	x, y := linearDataset()
	n, err := New(2, Config{Hidden: []int{16, 8}, Seed: 1})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	before, _, err := n.Evaluate(x, y)
	if err != nil {
		t.Fatalf("Evaluate before fit: %v", err)
	}

	if err := n.Fit(x, y, 200, 16); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	after, mae, err := n.Evaluate(x, y)
	if err != nil {
		t.Fatalf("Evaluate after fit: %v", err)
	}
	if after >= before {
		t.Fatalf("loss did not improve: before=%v after=%v", before, after)
	}
	if math.IsNaN(after) || math.IsNaN(mae) {
		t.Fatalf("metrics must be finite: loss=%v mae=%v", after, mae)
	}
}

func TestPredictWrongLengthIsSchemaError(t *testing.T) {
	t.Parallel()

	n, err := New(3, Config{Seed: 1})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = n.Predict([]float64{1, 2})
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestFitValidatesShapes(t *testing.T) {
	t.Parallel()

	n, err := New(2, Config{Seed: 1})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if err := n.Fit(nil, nil, 1, 1); !errors.Is(err, domain.ErrSizing) {
		t.Fatalf("expected ErrSizing for empty input, got %v", err)
	}
	if err := n.Fit([][]float64{{1, 2}}, []float64{1, 2}, 1, 1); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema for x/y length mismatch, got %v", err)
	}
	if err := n.Fit([][]float64{{1}}, []float64{1}, 1, 1); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema for short row, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	x, y := linearDataset()
	n, err := New(2, Config{Hidden: []int{8}, Seed: 7})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if err := n.Fit(x, y, 50, 16); err != nil {
		t.Fatalf("Fit returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := n.Save(path); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.InputDim() != 2 {
		t.Fatalf("unexpected input dim: %d", loaded.InputDim())
	}

	want, err := n.Predict([]float64{0.5, 0.25})
	if err != nil {
		t.Fatalf("Predict on original: %v", err)
	}
	got, err := loaded.Predict([]float64{0.5, 0.25})
	if err != nil {
		t.Fatalf("Predict on loaded: %v", err)
	}
	if math.Abs(want-got) > 1e-9 {
		t.Fatalf("loaded model diverges: want %v, got %v", want, got)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.json")
	fixture := []byte(`{"input_dim":2,"dims":[2,1],"weights":[[1]],"biases":[[0]]}`)
	if err := os.WriteFile(path, fixture, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an inconsistent artifact")
	}
}

func TestNewRejectsZeroFeatures(t *testing.T) {
	t.Parallel()

	if _, err := New(0, Config{}); !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

package ann

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"StockPredictor/pkg/floats"
)

// artifact is the on-disk JSON representation of a fitted network.
type artifact struct {
	InputDim     int         `json:"input_dim"`
	Dims         []int       `json:"dims"`
	LearningRate float64     `json:"learning_rate"`
	Weights      [][]float64 `json:"weights"` // row-major (in x out) per layer
	Biases       [][]float64 `json:"biases"`
}

// Save writes the fitted parameters as a JSON artifact. Optimizer state is
// not persisted; a loaded model can be retrained from fresh Adam moments.
func (n *Network) Save(path string) error {
	art := artifact{
		InputDim:     n.inputDim,
		Dims:         n.dims,
		LearningRate: n.lr,
		Weights:      make([][]float64, len(n.weights)),
		Biases:       make([][]float64, len(n.biases)),
	}
	for l, w := range n.weights {
		raw := w.RawMatrix().Data
		art.Weights[l] = append([]float64(nil), raw...)
		art.Biases[l] = append([]float64(nil), n.biases[l]...)
	}

	payload, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("marshal model artifact: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model directory: %w", err)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write model artifact: %w", err)
	}
	return nil
}

// Load reconstructs a network from a JSON artifact produced by Save.
func Load(path string) (*Network, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(payload, &art); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if len(art.Dims) < 2 || art.InputDim != art.Dims[0] || art.Dims[len(art.Dims)-1] != 1 {
		return nil, fmt.Errorf("model artifact has inconsistent dimensions")
	}
	if len(art.Weights) != len(art.Dims)-1 || len(art.Biases) != len(art.Dims)-1 {
		return nil, fmt.Errorf("model artifact has %d weight layers, expected %d",
			len(art.Weights), len(art.Dims)-1)
	}

	n := &Network{
		inputDim: art.InputDim,
		dims:     art.Dims,
		lr:       art.LearningRate,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
	if n.lr <= 0 {
		n.lr = defaultLearningRate
	}
	n.initParams()

	for l := range n.weights {
		in, out := n.dims[l], n.dims[l+1]
		if len(art.Weights[l]) != in*out || len(art.Biases[l]) != out {
			return nil, fmt.Errorf("model artifact layer %d has wrong shape", l)
		}
		if !floats.AllFinite(art.Weights[l]) || !floats.AllFinite(art.Biases[l]) {
			return nil, fmt.Errorf("model artifact layer %d holds non-finite parameters", l)
		}
		n.weights[l] = mat.NewDense(in, out, append([]float64(nil), art.Weights[l]...))
		copy(n.biases[l], art.Biases[l])
	}
	return n, nil
}

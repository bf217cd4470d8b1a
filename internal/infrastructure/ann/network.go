// Package ann implements the feed-forward regressor: two ReLU hidden layers
// and a single linear output unit, trained with mini-batch Adam on an MSE
// objective. Evaluation reports MSE loss and mean absolute error.
package ann

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"StockPredictor/internal/domain"
	"StockPredictor/internal/ports"
	"StockPredictor/pkg/floats"
)

// Adam hyper-parameters.
const (
	defaultLearningRate = 0.001
	beta1               = 0.9
	beta2               = 0.999
	epsilon             = 1e-8
)

// Config tunes the network topology and optimizer.
type Config struct {
	Hidden       []int   // hidden layer widths; default 64, 32
	LearningRate float64 // Adam step size; default 0.001
	Seed         int64   // weight init and shuffle seed; 0 draws a random one
}

// Network is a fully-connected regressor. Weights for layer l are stored as
// an (in x out) matrix so the forward pass is a plain left multiplication.
type Network struct {
	inputDim int
	dims     []int
	weights  []*mat.Dense
	biases   [][]float64
	lr       float64
	rng      *rand.Rand

	// Adam state, lazily sized with the weights.
	mW, vW []*mat.Dense
	mB, vB [][]float64
	step   int
}

var _ ports.Regressor = (*Network)(nil)

// New builds a network for the given feature count.
func New(inputDim int, cfg Config) (*Network, error) {
	if inputDim < 1 {
		return nil, fmt.Errorf("%w: need at least one input feature", domain.ErrSchema)
	}
	hidden := cfg.Hidden
	if len(hidden) == 0 {
		hidden = []int{64, 32}
	}
	lr := cfg.LearningRate
	if lr <= 0 {
		lr = defaultLearningRate
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	n := &Network{
		inputDim: inputDim,
		dims:     append(append([]int{inputDim}, hidden...), 1),
		lr:       lr,
		rng:      rand.New(rand.NewSource(seed)),
	}
	n.initParams()
	return n, nil
}

// InputDim returns the feature count the network was built for.
func (n *Network) InputDim() int { return n.inputDim }

func (n *Network) initParams() {
	layers := len(n.dims) - 1
	n.weights = make([]*mat.Dense, layers)
	n.biases = make([][]float64, layers)
	n.mW = make([]*mat.Dense, layers)
	n.vW = make([]*mat.Dense, layers)
	n.mB = make([][]float64, layers)
	n.vB = make([][]float64, layers)
	for l := 0; l < layers; l++ {
		in, out := n.dims[l], n.dims[l+1]
		data := make([]float64, in*out)
		std := math.Sqrt(2.0 / float64(in))
		for i := range data {
			data[i] = n.rng.NormFloat64() * std
		}
		n.weights[l] = mat.NewDense(in, out, data)
		n.biases[l] = make([]float64, out)
		n.mW[l] = mat.NewDense(in, out, nil)
		n.vW[l] = mat.NewDense(in, out, nil)
		n.mB[l] = make([]float64, out)
		n.vB[l] = make([]float64, out)
	}
	n.step = 0
}

// Fit runs mini-batch gradient descent for the requested number of epochs.
// Rows must all have the trained feature count.
func (n *Network) Fit(x [][]float64, y []float64, epochs, batchSize int) error {
	if len(x) == 0 {
		return fmt.Errorf("%w: no training rows", domain.ErrSizing)
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d feature rows vs %d targets", domain.ErrSchema, len(x), len(y))
	}
	for i, row := range x {
		if len(row) != n.inputDim {
			return fmt.Errorf("%w: row %d has %d features, expected %d",
				domain.ErrSchema, i, len(row), n.inputDim)
		}
	}
	if epochs < 1 {
		epochs = 1
	}
	if batchSize < 1 {
		batchSize = 32
	}
	if batchSize > len(x) {
		batchSize = len(x)
	}

	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}

	for epoch := 0; epoch < epochs; epoch++ {
		n.rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for start := 0; start < len(idx); start += batchSize {
			end := start + batchSize
			if end > len(idx) {
				end = len(idx)
			}
			batch := idx[start:end]
			xb, yb := n.gather(x, y, batch)
			n.trainBatch(xb, yb)
		}
	}
	return nil
}

// Evaluate returns MSE loss and MAE over the given set.
func (n *Network) Evaluate(x [][]float64, y []float64) (float64, float64, error) {
	if len(x) == 0 {
		return 0, 0, fmt.Errorf("%w: no evaluation rows", domain.ErrSizing)
	}
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: %d feature rows vs %d targets", domain.ErrSchema, len(x), len(y))
	}
	preds := make([]float64, len(x))
	for i, row := range x {
		p, err := n.Predict(row)
		if err != nil {
			return 0, 0, err
		}
		preds[i] = p
	}
	return floats.MSE(y, preds), floats.MAE(y, preds), nil
}

// Predict runs a single forward pass. A feature vector of the wrong length
// is a schema error, never a shape panic.
func (n *Network) Predict(features []float64) (float64, error) {
	if len(features) != n.inputDim {
		return 0, fmt.Errorf("%w: expected %d features, got %d",
			domain.ErrSchema, n.inputDim, len(features))
	}
	row := make([]float64, len(features))
	copy(row, features)
	a := mat.NewDense(1, n.inputDim, row)
	activations, _ := n.forward(a)
	return activations[len(activations)-1].At(0, 0), nil
}

func (n *Network) gather(x [][]float64, y []float64, batch []int) (*mat.Dense, *mat.Dense) {
	rows := len(batch)
	xd := make([]float64, rows*n.inputDim)
	yd := make([]float64, rows)
	for i, j := range batch {
		copy(xd[i*n.inputDim:(i+1)*n.inputDim], x[j])
		yd[i] = y[j]
	}
	return mat.NewDense(rows, n.inputDim, xd), mat.NewDense(rows, 1, yd)
}

// forward returns per-layer activations (a[0] is the input) and
// pre-activations z per layer.
func (n *Network) forward(input *mat.Dense) (activations, zs []*mat.Dense) {
	activations = make([]*mat.Dense, len(n.weights)+1)
	zs = make([]*mat.Dense, len(n.weights))
	activations[0] = input

	for l, w := range n.weights {
		rows, _ := activations[l].Dims()
		_, out := w.Dims()
		z := mat.NewDense(rows, out, nil)
		z.Mul(activations[l], w)
		addRowVector(z, n.biases[l])
		zs[l] = z

		if l == len(n.weights)-1 {
			activations[l+1] = z // linear output unit
			continue
		}
		a := mat.NewDense(rows, out, nil)
		a.Copy(z)
		relu(a)
		activations[l+1] = a
	}
	return activations, zs
}

func (n *Network) trainBatch(xb, yb *mat.Dense) {
	activations, zs := n.forward(xb)
	rows, _ := xb.Dims()
	layers := len(n.weights)

	// d(MSE)/d(output) for the batch.
	delta := mat.NewDense(rows, 1, nil)
	delta.Sub(activations[layers], yb)
	delta.Scale(2/float64(rows), delta)

	n.step++
	for l := layers - 1; l >= 0; l-- {
		in, out := n.weights[l].Dims()

		gw := mat.NewDense(in, out, nil)
		gw.Mul(activations[l].T(), delta)
		gb := columnSums(delta)

		if l > 0 {
			prev := mat.NewDense(rows, in, nil)
			prev.Mul(delta, n.weights[l].T())
			maskReLU(prev, zs[l-1])
			delta = prev
		}

		n.adamStep(n.weights[l].RawMatrix().Data, gw.RawMatrix().Data,
			n.mW[l].RawMatrix().Data, n.vW[l].RawMatrix().Data)
		n.adamStep(n.biases[l], gb, n.mB[l], n.vB[l])
	}
}

// adamStep applies one Adam update in place over flat parameter storage.
func (n *Network) adamStep(param, grad, m, v []float64) {
	c1 := 1 - math.Pow(beta1, float64(n.step))
	c2 := 1 - math.Pow(beta2, float64(n.step))
	for i := range param {
		g := grad[i]
		m[i] = beta1*m[i] + (1-beta1)*g
		v[i] = beta2*v[i] + (1-beta2)*g*g
		mhat := m[i] / c1
		vhat := v[i] / c2
		param[i] -= n.lr * mhat / (math.Sqrt(vhat) + epsilon)
	}
}

func addRowVector(m *mat.Dense, b []float64) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			m.Set(i, j, m.At(i, j)+b[j])
		}
	}
}

func relu(m *mat.Dense) {
	data := m.RawMatrix().Data
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
}

// maskReLU zeroes entries of dst wherever the matching pre-activation was
// non-positive.
func maskReLU(dst, z *mat.Dense) {
	d := dst.RawMatrix().Data
	s := z.RawMatrix().Data
	for i := range d {
		if s[i] <= 0 {
			d[i] = 0
		}
	}
}

func columnSums(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	sums := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			sums[j] += m.At(i, j)
		}
	}
	return sums
}

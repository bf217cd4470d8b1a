// Package floats holds small numeric helpers shared by the model backend
// and the orchestration layer.
package floats

import "math"

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	var s float64
	for _, v := range a {
		s += v
	}
	return s / float64(len(a))
}

// MSE is the mean squared error between two equal-length vectors.
func MSE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var s float64
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		s += d * d
	}
	return s / float64(len(yTrue))
}

// MAE is the mean absolute error between two equal-length vectors.
func MAE(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var s float64
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		if d < 0 {
			d = -d
		}
		s += d
	}
	return s / float64(len(yTrue))
}

// AllFinite reports whether every value is a finite real number.
func AllFinite(a []float64) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AllFiniteMatrix reports whether every cell of the matrix is finite.
func AllFiniteMatrix(m [][]float64) bool {
	for _, row := range m {
		if !AllFinite(row) {
			return false
		}
	}
	return true
}

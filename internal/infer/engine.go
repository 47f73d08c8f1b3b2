package infer

import (
	"fmt"
	"math"
)

// Model dimensions. The transform is fixed: 512 input features, one hidden
// layer of 256, 128-dimensional normalized embedding out.
const (
	InputDim  = 512
	HiddenDim = 256
	OutputDim = 128
)

// normEps keeps L2 normalization defined for all-zero vectors.
const normEps = 1e-8

// ErrDimensionMismatch is returned when an input vector does not match the
// model's expected input size.
type ErrDimensionMismatch struct {
	Got  int
	Want int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("input dimension mismatch: got %d, want %d", e.Got, e.Want)
}

// Engine runs the two-layer transform.
type Engine struct {
	weights Weights
}

// NewEngine creates an engine over the given weights.
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Infer maps a feature vector to a normalized embedding. Fails with a
// dimension-mismatch error if the input length is not InputDim.
func (e *Engine) Infer(x []float32) ([]float32, error) {
	if len(x) != InputDim {
		return nil, &ErrDimensionMismatch{Got: len(x), Want: InputDim}
	}

	h := linear(x, e.weights.W1, e.weights.B1, InputDim, HiddenDim)
	relu(h)
	out := linear(h, e.weights.W2, e.weights.B2, HiddenDim, OutputDim)
	l2Normalize(out)
	return out, nil
}

// linear computes x·W + b for a row-major in×out weight matrix.
func linear(x, w, b []float32, in, out int) []float32 {
	y := make([]float32, out)
	for j := 0; j < out; j++ {
		sum := float64(b[j])
		for i := 0; i < in; i++ {
			sum += float64(x[i]) * float64(w[i*out+j])
		}
		y[j] = float32(sum)
	}
	return y
}

// relu clamps negatives to zero in place.
func relu(x []float32) {
	for i, v := range x {
		if v < 0 {
			x[i] = 0
		}
	}
}

// l2Normalize scales the vector to unit length in place.
func l2Normalize(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum) + normEps
	for i := range x {
		x[i] = float32(float64(x[i]) / norm)
	}
}

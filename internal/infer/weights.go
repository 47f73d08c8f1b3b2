package infer

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
)

// Weights holds the two-layer model parameters as row-major flat slices.
type Weights struct {
	W1 []float32 // InputDim x HiddenDim
	B1 []float32 // HiddenDim
	W2 []float32 // HiddenDim x OutputDim
	B2 []float32 // OutputDim
}

// weightCount is the total number of float32 values a weights file must
// contain, in W1, B1, W2, B2 order.
const weightCount = InputDim*HiddenDim + HiddenDim + HiddenDim*OutputDim + OutputDim

// dummySeed makes the fallback weights deterministic across runs.
const dummySeed = 1

// LoadWeights reads model weights from a little-endian float32 binary file.
// When the file does not exist, deterministic small random weights are
// generated instead so the pipeline still produces embeddings; a truncated
// or oversized file is an error.
func LoadWeights(path string, logger *slog.Logger) (Weights, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Warn("weights file not found, using dummy weights", "path", path)
		return dummyWeights(), nil
	}
	if err != nil {
		return Weights{}, fmt.Errorf("read weights file: %w", err)
	}

	if len(data) != weightCount*4 {
		return Weights{}, fmt.Errorf("weights file %s holds %d bytes, want %d",
			path, len(data), weightCount*4)
	}

	values := make([]float32, weightCount)
	for i := range values {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		values[i] = math.Float32frombits(bits)
	}

	take := func(n int) []float32 {
		out := values[:n]
		values = values[n:]
		return out
	}
	return Weights{
		W1: take(InputDim * HiddenDim),
		B1: take(HiddenDim),
		W2: take(HiddenDim * OutputDim),
		B2: take(OutputDim),
	}, nil
}

// dummyWeights generates small random weight matrices with zero biases.
func dummyWeights() Weights {
	rng := rand.New(rand.NewSource(dummySeed))
	randSlice := func(n int) []float32 {
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(rng.NormFloat64()) * 0.01
		}
		return out
	}
	return Weights{
		W1: randSlice(InputDim * HiddenDim),
		B1: make([]float32, HiddenDim),
		W2: randSlice(HiddenDim * OutputDim),
		B2: make([]float32, OutputDim),
	}
}

package infer

import (
	"encoding/binary"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func TestInferProducesUnitEmbedding(t *testing.T) {
	engine := NewEngine(dummyWeights())

	x := make([]float32, InputDim)
	for i := range x {
		x[i] = float32(i%7) * 0.1
	}

	out, err := engine.Infer(x)
	require.NoError(t, err)
	require.Len(t, out, OutputDim)

	var sum float64
	for _, v := range out {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-3, "embedding should be L2-normalized")
}

func TestInferDimensionMismatch(t *testing.T) {
	engine := NewEngine(dummyWeights())

	_, err := engine.Infer(make([]float32, InputDim-1))
	require.Error(t, err)

	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, InputDim-1, dimErr.Got)
	assert.Equal(t, InputDim, dimErr.Want)
}

func TestInferZeroVectorIsValidInput(t *testing.T) {
	engine := NewEngine(dummyWeights())

	out, err := engine.Infer(make([]float32, InputDim))
	require.NoError(t, err)
	require.Len(t, out, OutputDim)
	// With zero input and zero biases everything stays finite
	for _, v := range out {
		assert.False(t, math.IsNaN(float64(v)))
		assert.False(t, math.IsInf(float64(v), 0))
	}
}

func TestInferIsDeterministic(t *testing.T) {
	engine := NewEngine(dummyWeights())

	x := make([]float32, InputDim)
	x[0] = 1
	a, err := engine.Infer(x)
	require.NoError(t, err)
	b, err := engine.Infer(x)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestReLU(t *testing.T) {
	x := []float32{-2, -0.5, 0, 0.5, 2}
	relu(x)
	assert.Equal(t, []float32{0, 0, 0, 0.5, 2}, x)
}

func TestLoadWeightsMissingFileFallsBackToDummy(t *testing.T) {
	w, err := LoadWeights(filepath.Join(t.TempDir(), "weights.bin"), setupTestLogger())
	require.NoError(t, err)
	assert.Len(t, w.W1, InputDim*HiddenDim)
	assert.Len(t, w.B1, HiddenDim)
	assert.Len(t, w.W2, HiddenDim*OutputDim)
	assert.Len(t, w.B2, OutputDim)

	// Fallback weights are deterministic
	w2, err := LoadWeights(filepath.Join(t.TempDir(), "weights.bin"), setupTestLogger())
	require.NoError(t, err)
	assert.Equal(t, w.W1[:8], w2.W1[:8])
}

func TestLoadWeightsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")

	data := make([]byte, weightCount*4)
	binary.LittleEndian.PutUint32(data, math.Float32bits(0.25))
	require.NoError(t, os.WriteFile(path, data, 0o644))

	w, err := LoadWeights(path, setupTestLogger())
	require.NoError(t, err)
	assert.InDelta(t, 0.25, w.W1[0], 1e-9)
	assert.Zero(t, w.B2[OutputDim-1])
}

func TestLoadWeightsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 128), 0o644))

	_, err := LoadWeights(path, setupTestLogger())
	assert.Error(t, err)
}

func TestVectorizeReturnsFixedLength(t *testing.T) {
	v := NewVectorizer(setupTestLogger())
	path := filepath.Join(t.TempDir(), "img.jpg")
	require.NoError(t, os.WriteFile(path, []byte("not really a jpeg but bytes suffice"), 0o644))

	vec := v.Vectorize(path)
	require.Len(t, vec, InputDim)

	var sum float32
	for _, val := range vec {
		assert.GreaterOrEqual(t, val, float32(0))
		sum += val
	}
	assert.Greater(t, sum, float32(0))
}

func TestVectorizeFailureYieldsZeroVector(t *testing.T) {
	v := NewVectorizer(setupTestLogger())

	vec := v.Vectorize(filepath.Join(t.TempDir(), "missing.jpg"))
	require.Len(t, vec, InputDim)
	for _, val := range vec {
		assert.Zero(t, val)
	}
}

package infer

import (
	"log/slog"
	"os"
)

// Vectorizer turns an image file into a fixed-length feature vector. Any
// read or decode failure yields the zero vector of the expected length
// rather than an error; downstream code must treat that as valid input.
type Vectorizer struct {
	logger *slog.Logger
}

// NewVectorizer creates a vectorizer.
func NewVectorizer(logger *slog.Logger) *Vectorizer {
	return &Vectorizer{
		logger: logger.With("component", "vectorizer"),
	}
}

// Vectorize reads the file at the given identifier and folds its bytes into
// an InputDim-length feature vector, normalized to [0, 1) per component.
func (v *Vectorizer) Vectorize(identifier string) []float32 {
	vec := make([]float32, InputDim)

	data, err := os.ReadFile(identifier)
	if err != nil {
		// Degraded input: substitute the zero vector and keep going
		v.logger.Warn("feature extraction failed, substituting zero vector",
			"image_id", identifier,
			"error", err)
		return vec
	}

	counts := make([]int, InputDim)
	for i, b := range data {
		idx := (int(b)*2 + i) % InputDim
		counts[idx]++
	}
	if len(data) > 0 {
		total := float32(len(data))
		for i, c := range counts {
			vec[i] = float32(c) / total
		}
	}
	return vec
}

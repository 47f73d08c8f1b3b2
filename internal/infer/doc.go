// Package infer provides the numeric inference collaborator: a fixed
// two-layer transform (linear, ReLU, linear, L2-normalize) over a feature
// vector, the weight loading that backs it, and the feature extraction that
// turns an image file into a fixed-length input vector.
package infer

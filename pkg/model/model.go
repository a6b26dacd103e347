// Package model defines the trainable model contract consumed by the
// tabflow pipelines, plus a logistic-regression reference implementation.
// The pipelines treat the model as opaque: it fits on batches of encoded
// vectors, predicts probabilities, and persists itself to a file.
package model

import "context"

// Batch is one mini-batch of encoded training rows with aligned labels.
type Batch struct {
	Vectors [][]float64
	Labels  []float64
}

// BatchProvider opens a fresh stream of training batches. Fit re-invokes it
// once per epoch, mirroring how the row source is re-opened per pass; the
// channel is closed when the underlying source is exhausted. Errors during
// batch construction are delivered through the provider's error channel and
// abort the fit.
type BatchProvider func(ctx context.Context) (<-chan Batch, <-chan error)

// Model is the trainable binary classifier contract.
type Model interface {
	// Fit trains on the provided batches for the given number of epochs
	Fit(ctx context.Context, provider BatchProvider, epochs int) error
	// Predict returns a probability in [0, 1] per input vector
	Predict(vectors [][]float64) []float64
	// InputDim returns the expected vector width
	InputDim() int
	// Save persists the trained parameters to path
	Save(path string) error
}

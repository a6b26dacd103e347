package model

import (
	"context"
	"math"
	"os"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/tabflow/tabflow/pkg/tferrors"
)

// LogisticRegression is a binary classifier trained by mini-batch gradient
// descent on binary cross-entropy loss. Weights initialize to zero, so
// training is fully deterministic for a fixed batch sequence.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	Dim     int       `json:"inputDim"`

	lr     float64
	logger *zap.Logger
}

// NewLogisticRegression creates an untrained model for vectors of width
// inputDim.
func NewLogisticRegression(inputDim int, learningRate float64, logger *zap.Logger) *LogisticRegression {
	if logger == nil {
		logger = zap.NewNop()
	}
	if learningRate <= 0 {
		learningRate = 0.1
	}
	return &LogisticRegression{
		Weights: make([]float64, inputDim),
		Dim:     inputDim,
		lr:      learningRate,
		logger:  logger,
	}
}

// InputDim returns the expected vector width
func (m *LogisticRegression) InputDim() int {
	return m.Dim
}

// Fit trains for the given number of epochs, re-invoking the provider once
// per epoch. Vectors wider than the model are read up to Dim; narrower
// vectors contribute their available slots (the pipeline logs and adjusts
// widths before fitting, this is only the last line of defense).
func (m *LogisticRegression) Fit(ctx context.Context, provider BatchProvider, epochs int) error {
	if epochs <= 0 {
		return tferrors.New(tferrors.ErrorTypeValidation, "epochs must be positive")
	}

	for epoch := 0; epoch < epochs; epoch++ {
		batches, errs := provider(ctx)

		var rows int64
		var lossSum float64
		for batch := range batches {
			if err := ctx.Err(); err != nil {
				return err
			}
			lossSum += m.step(batch)
			rows += int64(len(batch.Vectors))
		}
		if err := <-errs; err != nil {
			return tferrors.Wrap(err, tferrors.ErrorTypeData, "training batch stream failed")
		}
		if rows == 0 {
			return tferrors.New(tferrors.ErrorTypeData, "no training rows produced")
		}

		m.logger.Debug("epoch complete",
			zap.Int("epoch", epoch+1),
			zap.Int64("rows", rows),
			zap.Float64("mean_loss", lossSum/float64(rows)))
	}

	return nil
}

// step applies one gradient update from a batch and returns its summed
// binary cross-entropy loss.
func (m *LogisticRegression) step(batch Batch) float64 {
	n := len(batch.Vectors)
	if n == 0 {
		return 0
	}

	grad := make([]float64, m.Dim)
	var gradBias, loss float64

	for i, vec := range batch.Vectors {
		p := m.proba(vec)
		y := batch.Labels[i]

		// d(BCE)/d(logit) = p - y
		diff := p - y
		limit := m.Dim
		if len(vec) < limit {
			limit = len(vec)
		}
		for j := 0; j < limit; j++ {
			grad[j] += diff * vec[j]
		}
		gradBias += diff

		loss += bce(y, p)
	}

	scale := m.lr / float64(n)
	for j := range m.Weights {
		m.Weights[j] -= scale * grad[j]
	}
	m.Bias -= scale * gradBias

	return loss
}

// Predict returns a probability per input vector
func (m *LogisticRegression) Predict(vectors [][]float64) []float64 {
	out := make([]float64, len(vectors))
	for i, vec := range vectors {
		out[i] = m.proba(vec)
	}
	return out
}

func (m *LogisticRegression) proba(vec []float64) float64 {
	sum := m.Bias
	limit := m.Dim
	if len(vec) < limit {
		limit = len(vec)
	}
	for j := 0; j < limit; j++ {
		sum += m.Weights[j] * vec[j]
	}
	return sigmoid(sum)
}

// Save persists the trained parameters as JSON
func (m *LogisticRegression) Save(path string) error {
	data, err := gojson.Marshal(m)
	if err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeInternal, "failed to marshal model")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to write model file").
			WithDetail("path", path)
	}
	return nil
}

// LoadLogisticRegression reads a previously saved model from path
func LoadLogisticRegression(path string, logger *zap.Logger) (*LogisticRegression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactNotFound, "no model found; run training first").
				WithDetail("path", path)
		}
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to read model file").
			WithDetail("path", path)
	}

	var m LogisticRegression
	if err := gojson.Unmarshal(data, &m); err != nil {
		return nil, tferrors.Wrap(err, tferrors.ErrorTypeArtifactCorrupt, "model payload undecodable").
			WithDetail("path", path)
	}
	if m.Dim <= 0 || len(m.Weights) != m.Dim {
		return nil, tferrors.New(tferrors.ErrorTypeArtifactCorrupt, "model dimensions inconsistent").
			WithDetail("path", path).
			WithDetail("input_dim", m.Dim).
			WithDetail("weights", len(m.Weights))
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	m.logger = logger
	return &m, nil
}

// sigmoid maps a logit to (0, 1)
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// bce is the binary cross-entropy loss for one prediction, clamped away
// from log(0)
func bce(y, p float64) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

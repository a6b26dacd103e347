package model

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// staticProvider re-delivers the same batches every epoch.
func staticProvider(batches []Batch) BatchProvider {
	return func(ctx context.Context) (<-chan Batch, <-chan error) {
		out := make(chan Batch, len(batches))
		errs := make(chan error, 1)
		for _, b := range batches {
			out <- b
		}
		close(out)
		close(errs)
		return out, errs
	}
}

func separableBatches() []Batch {
	// positive class clusters around (2, 2), negative around (-2, -2)
	return []Batch{{
		Vectors: [][]float64{
			{2, 2}, {2.5, 1.5}, {1.5, 2.5}, {3, 2},
			{-2, -2}, {-2.5, -1.5}, {-1.5, -2.5}, {-3, -2},
		},
		Labels: []float64{1, 1, 1, 1, 0, 0, 0, 0},
	}}
}

func TestLogisticRegression_LearnsSeparableData(t *testing.T) {
	m := NewLogisticRegression(2, 0.5, zaptest.NewLogger(t))
	require.NoError(t, m.Fit(context.Background(), staticProvider(separableBatches()), 200))

	probs := m.Predict([][]float64{{2, 2}, {-2, -2}})
	assert.Greater(t, probs[0], 0.9)
	assert.Less(t, probs[1], 0.1)
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	fit := func() []float64 {
		m := NewLogisticRegression(2, 0.5, zaptest.NewLogger(t))
		require.NoError(t, m.Fit(context.Background(), staticProvider(separableBatches()), 50))
		return m.Weights
	}
	assert.Equal(t, fit(), fit())
}

func TestLogisticRegression_SaveLoad(t *testing.T) {
	m := NewLogisticRegression(2, 0.5, zaptest.NewLogger(t))
	require.NoError(t, m.Fit(context.Background(), staticProvider(separableBatches()), 50))

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, m.Save(path))

	loaded, err := LoadLogisticRegression(path, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, m.Weights, loaded.Weights)
	assert.Equal(t, m.Bias, loaded.Bias)
	assert.Equal(t, m.InputDim(), loaded.InputDim())

	in := [][]float64{{1, -1}}
	assert.Equal(t, m.Predict(in), loaded.Predict(in))
}

func TestLogisticRegression_LoadMissing(t *testing.T) {
	_, err := LoadLogisticRegression(filepath.Join(t.TempDir(), "nope.json"), zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestLogisticRegression_PredictToleratesNarrowVectors(t *testing.T) {
	m := NewLogisticRegression(3, 0.1, zaptest.NewLogger(t))
	m.Weights = []float64{1, 1, 1}

	// narrower vectors contribute only their available slots
	probs := m.Predict([][]float64{{1, 1}})
	require.Len(t, probs, 1)
	assert.InDelta(t, sigmoid(2), probs[0], 1e-12)
}

func TestLogisticRegression_FitValidatesEpochs(t *testing.T) {
	m := NewLogisticRegression(2, 0.1, zaptest.NewLogger(t))
	assert.Error(t, m.Fit(context.Background(), staticProvider(separableBatches()), 0))
}

func TestLogisticRegression_FitRequiresRows(t *testing.T) {
	m := NewLogisticRegression(2, 0.1, zaptest.NewLogger(t))
	assert.Error(t, m.Fit(context.Background(), staticProvider(nil), 1))
}

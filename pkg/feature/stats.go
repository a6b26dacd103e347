// Package feature implements the streaming feature encoder at the core of
// tabflow: imputation and normalization statistics computed in a single
// bounded-memory pass, deterministic categorical vocabularies, a contiguous
// numeric+one-hot layout plan, and a pure row encoder that reproduces
// training-time encodings exactly at inference.
package feature

import (
	"math"

	"github.com/tabflow/tabflow/pkg/source"
)

// NumericStats holds the per-feature imputation and normalization values,
// aligned with Names.
type NumericStats struct {
	Names []string
	Means []float64
	Stds  []float64
}

// StatsAccumulator computes numeric feature statistics in one streaming
// pass. It keeps three running sums per feature (Σx, Σx², count), so memory
// is O(numeric features) regardless of row count. It is not safe for
// concurrent use; each pass owns its own accumulator.
type StatsAccumulator struct {
	names []string
	sum   map[string]float64
	sumSq map[string]float64
	count map[string]int64
}

// NewStatsAccumulator creates an accumulator for the given numeric feature
// names.
func NewStatsAccumulator(numericNames []string) *StatsAccumulator {
	a := &StatsAccumulator{
		names: numericNames,
		sum:   make(map[string]float64, len(numericNames)),
		sumSq: make(map[string]float64, len(numericNames)),
		count: make(map[string]int64, len(numericNames)),
	}
	return a
}

// Observe folds one record into the running sums. Only finite numbers are
// counted; missing and non-finite values are skipped so they do not bias
// the mean.
func (a *StatsAccumulator) Observe(rec source.Record) {
	for _, name := range a.names {
		v, ok := rec[name].(float64)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		a.sum[name] += v
		a.sumSq[name] += v * v
		a.count[name]++
	}
}

// Finalize computes the per-feature mean and standard deviation from the
// running sums.
//
// The variance is population variance (Σx²/n − mean²), a fixed design
// choice, clamped at 1e-12 before the square root to guard against negative
// values from floating-point cancellation. A feature with zero observed
// values yields mean 0 and std exactly 1, making the downstream transform a
// no-op and keeping division safe.
func (a *StatsAccumulator) Finalize() NumericStats {
	stats := NumericStats{
		Names: a.names,
		Means: make([]float64, len(a.names)),
		Stds:  make([]float64, len(a.names)),
	}

	for i, name := range a.names {
		n := a.count[name]
		if n == 0 {
			stats.Means[i] = 0
			stats.Stds[i] = 1
			continue
		}

		mean := a.sum[name] / float64(n)
		variance := a.sumSq[name]/float64(n) - mean*mean
		if variance < 1e-12 {
			variance = 1e-12
		}

		stats.Means[i] = mean
		stats.Stds[i] = math.Sqrt(variance)
	}

	return stats
}

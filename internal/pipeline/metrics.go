package pipeline

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metrics for pipeline observability. Registration happens at
// package load through promauto; recording is cheap enough to run
// unconditionally. The config flag controls whether a run emits the
// end-of-run snapshot through LogSummary.
var (
	// RowsRead counts rows consumed from the source, labeled by pass
	RowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabflow_rows_read_total",
		Help: "Total rows read from the row source",
	}, []string{"pass"})

	// RowsEncoded counts rows encoded into feature vectors, labeled by stage
	RowsEncoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tabflow_rows_encoded_total",
		Help: "Total rows encoded into feature vectors",
	}, []string{"stage"})

	// BatchesBuilt counts training batches handed to the model
	BatchesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tabflow_batches_built_total",
		Help: "Total training batches built",
	})

	// EncodeLatency tracks per-batch encode latency in seconds
	EncodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tabflow_batch_encode_seconds",
		Help:    "Latency of encoding one batch of rows",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
	})
)

// LogSummary logs the current value of every tabflow metric. Pipeline runs
// are short-lived batch jobs with no scrape window, so runs with metrics
// enabled emit one snapshot at completion instead of serving an endpoint.
func LogSummary(logger *zap.Logger) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", zap.Error(err))
		return
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "tabflow_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			fields := []zap.Field{zap.String("metric", mf.GetName())}
			for _, label := range m.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				fields = append(fields,
					zap.Uint64("count", m.GetHistogram().GetSampleCount()),
					zap.Float64("sum", m.GetHistogram().GetSampleSum()))
			}
			logger.Info("metric snapshot", fields...)
		}
	}
}

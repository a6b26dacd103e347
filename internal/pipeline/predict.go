package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tabflow/tabflow/pkg/artifact"
	"github.com/tabflow/tabflow/pkg/config"
	"github.com/tabflow/tabflow/pkg/feature"
	"github.com/tabflow/tabflow/pkg/model"
	"github.com/tabflow/tabflow/pkg/pool"
	"github.com/tabflow/tabflow/pkg/source"
	"github.com/tabflow/tabflow/pkg/tferrors"
)

// PredictPipeline loads the persisted artifact and model, re-encodes unseen
// rows with the identical row encoder used at training, and writes a
// two-column id,predictedLabel CSV.
type PredictPipeline struct {
	cfg     *config.PipelineConfig
	factory source.Factory
	store   *artifact.Store
	logger  *zap.Logger
}

// NewPredictPipeline creates an inference pipeline
func NewPredictPipeline(cfg *config.PipelineConfig, factory source.Factory, logger *zap.Logger) *PredictPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PredictPipeline{
		cfg:     cfg,
		factory: factory,
		store:   artifact.NewStore(cfg.Training.ArtifactPath, logger),
		logger:  logger,
	}
}

// Run executes inference and writes predictions to outPath. It fails fast
// when no artifact or model exists; a width disagreement between the
// artifact and the model is adjusted by truncation or zero-padding with a
// logged warning, never silently.
func (p *PredictPipeline) Run(ctx context.Context, outPath string) error {
	start := time.Now()

	art, err := p.store.Load()
	if err != nil {
		return err
	}
	encoder, err := feature.NewEncoder(art)
	if err != nil {
		return err
	}

	clf, err := model.LoadLogisticRegression(p.cfg.Training.ModelPath, p.logger)
	if err != nil {
		return err
	}

	if clf.InputDim() <= 0 {
		return tferrors.New(tferrors.ErrorTypeDimension, "model input width is not positive").
			WithDetail("input_dim", clf.InputDim())
	}
	if encoder.Dim() != clf.InputDim() {
		p.logger.Warn("artifact width disagrees with model input; adjusting vectors",
			zap.Int("artifact_dim", encoder.Dim()),
			zap.Int("model_dim", clf.InputDim()),
			zap.String("adjustment", adjustmentKind(encoder.Dim(), clf.InputDim())))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", outPath)
	}
	defer func() { _ = out.Close() }()

	writer := csv.NewWriter(out)
	if err := writer.Write([]string{p.idHeader(), "predictedLabel"}); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to write output header")
	}

	src, err := p.factory()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	stream, err := src.Stream(ctx)
	if err != nil {
		return err
	}

	var (
		ids     []string
		vectors [][]float64
		rows    int64
	)
	batchSize := p.cfg.Training.BatchSize

	flush := func() error {
		if len(vectors) == 0 {
			return nil
		}
		probs := clf.Predict(vectors)
		for i, prob := range probs {
			label := feature.DecodeLabel(prob, p.cfg.Training.Threshold)
			if err := writer.Write([]string{ids[i], label}); err != nil {
				return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to write prediction row")
			}
		}
		for _, vec := range vectors {
			pool.PutVector(vec)
		}
		ids = ids[:0]
		vectors = vectors[:0]
		return nil
	}

	for rec := range stream.Records {
		RowsRead.WithLabelValues("predict").Inc()

		vec := encoder.EncodeInto(rec, pool.GetVector(encoder.Dim()))
		vec = adjustWidth(vec, clf.InputDim())
		RowsEncoded.WithLabelValues("predict").Inc()

		ids = append(ids, p.rowID(rec, rows))
		vectors = append(vectors, vec)
		rows++

		if len(vectors) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := <-stream.Errors; err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeData, "inference row stream failed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := flush(); err != nil {
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeFile, "failed to flush output")
	}

	p.logger.Info("inference pipeline completed",
		zap.Int64("rows", rows),
		zap.String("output_path", outPath),
		zap.Duration("duration", time.Since(start)))

	if p.cfg.Observability.EnableMetrics {
		LogSummary(p.logger)
	}

	return nil
}

// rowID extracts the output row identifier, falling back to the row number
// when the ID column is absent.
func (p *PredictPipeline) rowID(rec source.Record, rowNum int64) string {
	if p.cfg.Source.IDField != "" {
		if v, ok := rec[p.cfg.Source.IDField]; ok && v != nil {
			return feature.NormalizeToken(v, "")
		}
	}
	return strconv.FormatInt(rowNum, 10)
}

func (p *PredictPipeline) idHeader() string {
	if p.cfg.Source.IDField != "" {
		return p.cfg.Source.IDField
	}
	return "id"
}

// adjustWidth truncates or zero-pads a vector to the model's input width.
// The caller has already logged the adjustment.
func adjustWidth(vec []float64, dim int) []float64 {
	if len(vec) == dim {
		return vec
	}
	if len(vec) > dim {
		return vec[:dim]
	}
	out := make([]float64, dim)
	copy(out, vec)
	return out
}

func adjustmentKind(have, want int) string {
	if have > want {
		return "truncate"
	}
	return "zero_pad"
}

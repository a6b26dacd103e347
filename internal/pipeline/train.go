package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tabflow/tabflow/pkg/artifact"
	"github.com/tabflow/tabflow/pkg/config"
	"github.com/tabflow/tabflow/pkg/feature"
	"github.com/tabflow/tabflow/pkg/model"
	"github.com/tabflow/tabflow/pkg/schema"
	"github.com/tabflow/tabflow/pkg/source"
	"github.com/tabflow/tabflow/pkg/tferrors"
)

// TrainPipeline runs the full training flow: infer the feature schema from
// a sample, stream the rows through the statistics and vocabulary
// accumulators, plan the vector layout, persist the artifact, then fit and
// persist the model on batches encoded with the frozen artifact.
type TrainPipeline struct {
	cfg     *config.PipelineConfig
	factory source.Factory
	store   *artifact.Store
	logger  *zap.Logger
}

// NewTrainPipeline creates a training pipeline. The factory re-opens the
// row source for each streaming pass.
func NewTrainPipeline(cfg *config.PipelineConfig, factory source.Factory, logger *zap.Logger) *TrainPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainPipeline{
		cfg:     cfg,
		factory: factory,
		store:   artifact.NewStore(cfg.Training.ArtifactPath, logger),
		logger:  logger,
	}
}

// Run executes the pipeline and returns the persisted artifact.
func (p *TrainPipeline) Run(ctx context.Context) (*artifact.Artifact, error) {
	start := time.Now()

	featureSchema, err := p.inferSchema(ctx)
	if err != nil {
		return nil, err
	}

	// The two accumulator passes share no state, so they run concurrently
	// over independently opened sources.
	statsAcc := feature.NewStatsAccumulator(featureSchema.NumericNames())
	vocabBuilder := feature.NewVocabBuilder(featureSchema.CategoricalNames(), p.cfg.Encoding.MissingToken)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runPass(gctx, p.factory, "stats", statsAcc.Observe)
	})
	g.Go(func() error {
		return runPass(gctx, p.factory, "vocab", vocabBuilder.Observe)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := statsAcc.Finalize()
	vocabs := vocabBuilder.Finalize()
	layout := feature.PlanLayout(featureSchema, vocabs)

	art := feature.BuildArtifact(featureSchema, stats, vocabs, layout,
		p.cfg.Encoding.Normalize, p.cfg.Encoding.MissingToken)
	if err := p.store.Save(art); err != nil {
		return nil, err
	}

	encoder, err := feature.NewEncoder(art)
	if err != nil {
		return nil, err
	}

	p.logger.Info("feature encoder frozen",
		zap.Int("total_dim", layout.TotalDim),
		zap.Int("numeric_features", len(stats.Names)),
		zap.Int("categorical_features", len(vocabs)),
		zap.Bool("normalize", p.cfg.Encoding.Normalize))

	clf := model.NewLogisticRegression(layout.TotalDim, p.cfg.Training.LearningRate, p.logger)
	if err := clf.Fit(ctx, p.batchProvider(encoder), p.cfg.Training.Epochs); err != nil {
		return nil, err
	}
	if err := clf.Save(p.cfg.Training.ModelPath); err != nil {
		return nil, err
	}

	p.logger.Info("training pipeline completed",
		zap.Duration("duration", time.Since(start)),
		zap.String("artifact_path", p.cfg.Training.ArtifactPath),
		zap.String("model_path", p.cfg.Training.ModelPath))

	if p.cfg.Observability.EnableMetrics {
		LogSummary(p.logger)
	}

	return art, nil
}

// inferSchema peeks a sample from a fresh source and classifies the feature
// columns. The label and ID columns are excluded from the feature schema.
func (p *TrainPipeline) inferSchema(ctx context.Context) (*schema.Schema, error) {
	src, err := p.factory()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	sample, err := src.Peek(ctx, p.cfg.Encoding.SchemaSampleSize)
	if err != nil {
		return nil, err
	}
	if len(sample) == 0 {
		return nil, tferrors.New(tferrors.ErrorTypeSchema, "row source produced no rows").
			WithDetail("path", p.cfg.Source.Path)
	}

	inferer := schema.NewInferer(p.cfg.Encoding.SchemaSampleSize, p.logger)
	full, err := inferer.Infer(src.Fields(), sample)
	if err != nil {
		return nil, err
	}

	excluded := []string{p.cfg.Source.LabelField}
	if p.cfg.Source.IDField != "" {
		excluded = append(excluded, p.cfg.Source.IDField)
	}
	return full.Without(excluded...), nil
}

// batchProvider returns a BatchProvider that opens a fresh source per
// epoch, encodes rows with parallel workers over the frozen encoder, and
// assembles batches of the configured size. Row order within an epoch is
// not preserved across workers; gradient descent does not require it.
func (p *TrainPipeline) batchProvider(encoder *feature.Encoder) model.BatchProvider {
	labelField := p.cfg.Source.LabelField
	batchSize := p.cfg.Training.BatchSize
	workers := p.cfg.Performance.GetWorkers()

	return func(ctx context.Context) (<-chan model.Batch, <-chan error) {
		batches := make(chan model.Batch, 2)
		errOut := make(chan error, 1)

		go func() {
			defer close(batches)
			defer close(errOut)

			src, err := p.factory()
			if err != nil {
				errOut <- err
				return
			}
			defer func() { _ = src.Close() }()

			stream, err := src.Stream(ctx)
			if err != nil {
				errOut <- err
				return
			}

			type encoded struct {
				vector []float64
				label  float64
			}
			encodedCh := make(chan encoded, batchSize)

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < workers; i++ {
				g.Go(func() error {
					for rec := range stream.Records {
						vec := encoder.Encode(rec)
						label := feature.EncodeLabel(rec[labelField])
						RowsEncoded.WithLabelValues("train").Inc()

						select {
						case encodedCh <- encoded{vector: vec, label: label}:
						case <-gctx.Done():
							return gctx.Err()
						}
					}
					return nil
				})
			}
			go func() {
				_ = g.Wait()
				close(encodedCh)
			}()

			batch := model.Batch{
				Vectors: make([][]float64, 0, batchSize),
				Labels:  make([]float64, 0, batchSize),
			}
			batchStart := time.Now()
			flush := func() bool {
				if len(batch.Vectors) == 0 {
					return true
				}
				BatchesBuilt.Inc()
				EncodeLatency.Observe(time.Since(batchStart).Seconds())
				select {
				case batches <- batch:
				case <-ctx.Done():
					return false
				}
				batch = model.Batch{
					Vectors: make([][]float64, 0, batchSize),
					Labels:  make([]float64, 0, batchSize),
				}
				batchStart = time.Now()
				return true
			}

			for enc := range encodedCh {
				batch.Vectors = append(batch.Vectors, enc.vector)
				batch.Labels = append(batch.Labels, enc.label)
				if len(batch.Vectors) >= batchSize {
					if !flush() {
						return
					}
				}
			}
			if !flush() {
				return
			}

			if err := g.Wait(); err != nil {
				errOut <- err
				return
			}
			if err := <-stream.Errors; err != nil {
				errOut <- tferrors.Wrap(err, tferrors.ErrorTypeData, "training batch stream failed")
				return
			}
		}()

		return batches, errOut
	}
}

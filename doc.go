// Package tabflow provides a streaming tabular-data preprocessing pipeline
// for binary classification. It converts mixed-type CSV data (numeric and
// categorical columns, with missing values) into fixed-width numeric
// feature matrices, trains a classifier, persists the fitted preprocessing
// parameters, and reapplies them deterministically to unseen rows.
//
// # Architecture
//
// The pipeline is a short sequence of streaming passes over a re-creatable
// row source:
//
//  1. Schema inference: a peeked sample classifies each column as numeric
//     or categorical, once, for the lifetime of the run.
//
//  2. Statistics and vocabulary passes: running sums (Σx, Σx², count) per
//     numeric feature and distinct-token sets per categorical feature are
//     accumulated in bounded memory. The two passes share no state and run
//     concurrently over independently opened sources.
//
//  3. Layout planning: numeric scalars occupy the vector prefix in schema
//     order, followed by one fixed-width one-hot block per categorical
//     feature. Vocabularies are sorted lexicographically so the layout is
//     identical across retraining runs.
//
//  4. Encoding and training: a pure row encoder, a function of only
//     (record, artifact), builds training batches in parallel and feeds
//     the classifier.
//
//  5. Artifact persistence: schema, statistics, vocabularies, and layout
//     travel as one checksummed bundle. It is the sole channel between
//     training and inference, so loading it back reproduces training-time
//     encodings exactly.
//
// # Quick Start
//
//	cfg := config.NewPipelineConfig("churn")
//	cfg.Source.Path = "data/train.csv"
//	cfg.Source.LabelField = "churned"
//
//	factory := source.CSVFactory(source.CSVConfig{Path: cfg.Source.Path, HasHeader: true})
//	p := pipeline.NewTrainPipeline(cfg, factory, logger.Get())
//	artifact, err := p.Run(ctx)
//
// Or via the CLI:
//
//	tabflow train --input data/train.csv --label-field churned
//	tabflow predict --input data/test.csv --output predictions.csv
package tabflow

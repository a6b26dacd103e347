// Package config provides the unified configuration system for tabflow.
// It defines a single PipelineConfig structure that both the training and
// inference pipelines use, ensuring consistent configuration across the
// entire system.
//
// The configuration is organized into logical sections:
//   - Source: CSV input location and parsing
//   - Encoding: schema sampling, normalization, missing-value handling
//   - Training: epochs, learning rate, batching, output paths
//   - Performance: worker counts and buffer sizes
//   - Observability: metrics and logging
//
// Example usage:
//
//	cfg := config.NewPipelineConfig("churn")
//	cfg.Source.Path = "data/train.csv"
//	cfg.Training.Epochs = 20
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"runtime"
)

// PipelineConfig is the single unified configuration structure for a
// tabflow run. Both the train and predict commands consume it; fields that
// only apply to one direction are ignored by the other.
type PipelineConfig struct {
	// Name identifies the pipeline instance
	Name string `yaml:"name" json:"name"`
	// Version indicates the configuration version
	Version string `yaml:"version" json:"version"`

	// Source describes the CSV input
	Source SourceConfig `yaml:"source" json:"source"`

	// Encoding controls schema inference and feature encoding
	Encoding EncodingConfig `yaml:"encoding" json:"encoding"`

	// Training controls model fitting and persisted outputs
	Training TrainingConfig `yaml:"training" json:"training"`

	// Performance settings control concurrency and buffering
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// SourceConfig describes the CSV row source.
type SourceConfig struct {
	// Path to the CSV file
	Path string `yaml:"path" json:"path"`
	// HasHeader indicates whether the first row names the columns
	HasHeader bool `yaml:"has_header" json:"has_header"`
	// IDField names the column carried through to inference output
	IDField string `yaml:"id_field" json:"id_field"`
	// LabelField names the training label column
	LabelField string `yaml:"label_field" json:"label_field"`
}

// EncodingConfig controls schema inference and feature encoding.
type EncodingConfig struct {
	// SchemaSampleSize is the number of rows inspected to classify columns.
	// With 1 the first row decides; larger values require type consensus
	// and fail loudly on mixed-type columns.
	SchemaSampleSize int `yaml:"schema_sample_size" json:"schema_sample_size"`
	// Normalize enables (x-mean)/std scaling of numeric features. When
	// false numeric features are mean-imputed but left unscaled.
	Normalize bool `yaml:"normalize" json:"normalize"`
	// MissingToken is the reserved vocabulary entry for absent categorical
	// values
	MissingToken string `yaml:"missing_token" json:"missing_token"`
}

// TrainingConfig controls model fitting and output artifacts.
type TrainingConfig struct {
	// Epochs is the number of passes over the training batches
	Epochs int `yaml:"epochs" json:"epochs"`
	// LearningRate for the gradient updates
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate"`
	// BatchSize controls the number of encoded rows per training batch
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// Threshold converts predicted probabilities into labels
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// ArtifactPath is where the fitted preprocessing artifact is persisted
	ArtifactPath string `yaml:"artifact_path" json:"artifact_path"`
	// ModelPath is where the trained model is persisted
	ModelPath string `yaml:"model_path" json:"model_path"`
}

// PerformanceConfig contains concurrency and buffering settings.
type PerformanceConfig struct {
	// Workers defines the number of concurrent encode workers
	Workers int `yaml:"workers" json:"workers"`
	// BufferSize sets the size of internal record channels
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// ObservabilityConfig contains monitoring and logging settings.
type ObservabilityConfig struct {
	// EnableMetrics emits a Prometheus metrics snapshot through the logger
	// at the end of each run
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewPipelineConfig creates a new PipelineConfig with sensible defaults.
// Specific runs override fields as needed, typically via a YAML file.
func NewPipelineConfig(name string) *PipelineConfig {
	return &PipelineConfig{
		Name:    name,
		Version: "1.0.0",
		Source: SourceConfig{
			HasHeader:  true,
			IDField:    "id",
			LabelField: "label",
		},
		Encoding: EncodingConfig{
			SchemaSampleSize: 1,
			Normalize:        true,
			MissingToken:     "__MISSING__",
		},
		Training: TrainingConfig{
			Epochs:       10,
			LearningRate: 0.1,
			BatchSize:    256,
			Threshold:    0.5,
			ArtifactPath: "tabflow-artifact.bin",
			ModelPath:    "tabflow-model.json",
		},
		Performance: PerformanceConfig{
			Workers:    runtime.NumCPU(),
			BufferSize: 1024,
		},
		Observability: ObservabilityConfig{
			EnableMetrics: true,
			LogLevel:      "info",
		},
	}
}

// Validate validates the configuration for correctness. It checks required
// fields and ensures values are within acceptable ranges. Pipelines call
// this after loading configuration to catch errors early.
func (pc *PipelineConfig) Validate() error {
	if pc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if pc.Source.Path == "" {
		return fmt.Errorf("source.path is required")
	}
	if pc.Source.LabelField == "" {
		return fmt.Errorf("source.label_field is required")
	}
	if pc.Encoding.SchemaSampleSize <= 0 {
		return fmt.Errorf("encoding.schema_sample_size must be positive")
	}
	if pc.Encoding.MissingToken == "" {
		return fmt.Errorf("encoding.missing_token is required")
	}
	if pc.Training.Epochs <= 0 {
		return fmt.Errorf("training.epochs must be positive")
	}
	if pc.Training.BatchSize <= 0 {
		return fmt.Errorf("training.batch_size must be positive")
	}
	if pc.Training.LearningRate <= 0 {
		return fmt.Errorf("training.learning_rate must be positive")
	}
	if pc.Training.Threshold < 0 || pc.Training.Threshold > 1 {
		return fmt.Errorf("training.threshold must be in [0, 1]")
	}
	return nil
}

// GetWorkers returns the number of encode workers, ensuring it's at least 1
func (p *PerformanceConfig) GetWorkers() int {
	if p.Workers <= 0 {
		return runtime.NumCPU()
	}
	return p.Workers
}

// GetBufferSize returns the channel buffer size, ensuring it's at least 1
func (p *PerformanceConfig) GetBufferSize() int {
	if p.BufferSize <= 0 {
		return 1024
	}
	return p.BufferSize
}

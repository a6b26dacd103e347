package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func validConfig() *PipelineConfig {
	cfg := NewPipelineConfig("test")
	cfg.Source.Path = "train.csv"
	return cfg
}

func TestNewPipelineConfig_Defaults(t *testing.T) {
	cfg := NewPipelineConfig("churn")

	assert.Equal(t, "churn", cfg.Name)
	assert.True(t, cfg.Source.HasHeader)
	assert.Equal(t, "label", cfg.Source.LabelField)
	assert.Equal(t, 1, cfg.Encoding.SchemaSampleSize)
	assert.True(t, cfg.Encoding.Normalize)
	assert.Equal(t, "__MISSING__", cfg.Encoding.MissingToken)
	assert.Equal(t, 10, cfg.Training.Epochs)
	assert.Equal(t, 0.1, cfg.Training.LearningRate)
	assert.Equal(t, 256, cfg.Training.BatchSize)
	assert.Equal(t, 0.5, cfg.Training.Threshold)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PipelineConfig)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(*PipelineConfig) {},
		},
		{
			name:    "missing name",
			mutate:  func(c *PipelineConfig) { c.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "missing source path",
			mutate:  func(c *PipelineConfig) { c.Source.Path = "" },
			wantErr: "source.path is required",
		},
		{
			name:    "missing label field",
			mutate:  func(c *PipelineConfig) { c.Source.LabelField = "" },
			wantErr: "source.label_field is required",
		},
		{
			name:    "zero sample size",
			mutate:  func(c *PipelineConfig) { c.Encoding.SchemaSampleSize = 0 },
			wantErr: "schema_sample_size must be positive",
		},
		{
			name:    "empty missing token",
			mutate:  func(c *PipelineConfig) { c.Encoding.MissingToken = "" },
			wantErr: "missing_token is required",
		},
		{
			name:    "zero epochs",
			mutate:  func(c *PipelineConfig) { c.Training.Epochs = 0 },
			wantErr: "epochs must be positive",
		},
		{
			name:    "negative learning rate",
			mutate:  func(c *PipelineConfig) { c.Training.LearningRate = -0.1 },
			wantErr: "learning_rate must be positive",
		},
		{
			name:    "zero batch size",
			mutate:  func(c *PipelineConfig) { c.Training.BatchSize = 0 },
			wantErr: "batch_size must be positive",
		},
		{
			name:    "threshold above one",
			mutate:  func(c *PipelineConfig) { c.Training.Threshold = 1.5 },
			wantErr: "threshold must be in [0, 1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPerformanceConfig_Fallbacks(t *testing.T) {
	var p PerformanceConfig
	assert.GreaterOrEqual(t, p.GetWorkers(), 1)
	assert.Equal(t, 1024, p.GetBufferSize())

	p = PerformanceConfig{Workers: 3, BufferSize: 64}
	assert.Equal(t, 3, p.GetWorkers())
	assert.Equal(t, 64, p.GetBufferSize())
}

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")

	cfg := validConfig()
	cfg.Training.Epochs = 42
	require.NoError(t, Save(path, cfg))

	loaded := NewPipelineConfig("")
	require.NoError(t, Load(path, loaded))
	assert.Equal(t, cfg, loaded)
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("TABFLOW_TRAIN_PATH", "/data/train.csv")

	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	content := "name: test\nsource:\n  path: ${TABFLOW_TRAIN_PATH}\n"
	require.NoError(t, writeTestFile(path, content))

	var cfg PipelineConfig
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "/data/train.csv", cfg.Source.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg PipelineConfig
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, writeTestFile(path, "name: [unclosed"))

	var cfg PipelineConfig
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

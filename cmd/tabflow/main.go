package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	gojson "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tabflow/tabflow/internal/pipeline"
	"github.com/tabflow/tabflow/pkg/artifact"
	"github.com/tabflow/tabflow/pkg/config"
	"github.com/tabflow/tabflow/pkg/logger"
	"github.com/tabflow/tabflow/pkg/source"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tabflow",
		Short: "tabflow - streaming tabular feature pipeline",
		Long: `tabflow converts mixed-type CSV data into fixed-width numeric feature
matrices, trains a binary classifier, and replays the fitted preprocessing
deterministically on unseen rows.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tabflow v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newTrainCmd())
	root.AddCommand(newPredictCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig assembles the pipeline configuration from an optional YAML
// file plus command-line overrides.
func loadConfig(configFile, input, artifactPath, modelPath, logLevel string, normalize bool, normalizeSet bool) (*config.PipelineConfig, error) {
	cfg := config.NewPipelineConfig("tabflow")

	if configFile != "" {
		if err := config.Load(configFile, cfg); err != nil {
			return nil, err
		}
	}

	if input != "" {
		cfg.Source.Path = input
	}
	if artifactPath != "" {
		cfg.Training.ArtifactPath = artifactPath
	}
	if modelPath != "" {
		cfg.Training.ModelPath = modelPath
	}
	if logLevel != "" {
		cfg.Observability.LogLevel = logLevel
	}
	if normalizeSet {
		cfg.Encoding.Normalize = normalize
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: "json",
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

func csvFactory(cfg *config.PipelineConfig) source.Factory {
	// the ID column bypasses sniffing so output ids match the source text
	var raw []string
	if cfg.Source.IDField != "" {
		raw = append(raw, cfg.Source.IDField)
	}
	return source.CSVFactory(source.CSVConfig{
		Path:       cfg.Source.Path,
		HasHeader:  cfg.Source.HasHeader,
		BufferSize: cfg.Performance.GetBufferSize(),
		RawFields:  raw,
	})
}

func newTrainCmd() *cobra.Command {
	var configFile, input, artifactPath, modelPath, logLevel, idField, labelField string
	var epochs int
	var normalize bool

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a classifier and persist the preprocessing artifact",
		Long: `Train streams the CSV through the feature encoder, fits the classifier,
and persists both the preprocessing artifact and the trained model.

Example:
  tabflow train --input data/train.csv --label-field churned --artifact out/artifact.bin --model out/model.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, input, artifactPath, modelPath, logLevel,
				normalize, cmd.Flags().Changed("normalize"))
			if err != nil {
				return err
			}
			if idField != "" {
				cfg.Source.IDField = idField
			}
			if labelField != "" {
				cfg.Source.LabelField = labelField
			}
			if cmd.Flags().Changed("epochs") {
				cfg.Training.Epochs = epochs
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			log := logger.With(
				zap.String("component", "tabflow-cli"),
				zap.String("pipeline", cfg.Name))

			p := pipeline.NewTrainPipeline(cfg, csvFactory(cfg), log)
			art, err := p.Run(context.Background())
			if err != nil {
				return err
			}

			log.Info("training finished",
				zap.Int("total_dim", art.TotalDim),
				zap.String("artifact", cfg.Training.ArtifactPath))
			return logger.Sync()
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML pipeline configuration file")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the training CSV file")
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "Path for the persisted preprocessing artifact")
	cmd.Flags().StringVar(&modelPath, "model", "", "Path for the persisted model")
	cmd.Flags().StringVar(&idField, "id-field", "", "Column excluded from features and carried to output")
	cmd.Flags().StringVar(&labelField, "label-field", "", "Training label column")
	cmd.Flags().IntVar(&epochs, "epochs", 10, "Number of training epochs")
	cmd.Flags().BoolVar(&normalize, "normalize", true, "Scale numeric features to (x-mean)/std; disable for mean-only imputation")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

func newPredictCmd() *cobra.Command {
	var configFile, input, artifactPath, modelPath, logLevel, output, idField string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Encode unseen rows with a persisted artifact and predict labels",
		Long: `Predict loads the persisted artifact and model, encodes each input row
exactly as during training, and writes an id,predictedLabel CSV.

Example:
  tabflow predict --input data/test.csv --artifact out/artifact.bin --model out/model.json --output predictions.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile, input, artifactPath, modelPath, logLevel, false, false)
			if err != nil {
				return err
			}
			if idField != "" {
				cfg.Source.IDField = idField
			}
			if cfg.Source.Path == "" {
				return fmt.Errorf("input CSV is required")
			}

			log := logger.With(
				zap.String("component", "tabflow-cli"),
				zap.String("pipeline", cfg.Name))

			p := pipeline.NewPredictPipeline(cfg, csvFactory(cfg), log)
			if err := p.Run(context.Background(), output); err != nil {
				return err
			}
			return logger.Sync()
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML pipeline configuration file")
	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the inference CSV file")
	cmd.Flags().StringVar(&artifactPath, "artifact", "", "Path to the persisted preprocessing artifact")
	cmd.Flags().StringVar(&modelPath, "model", "", "Path to the persisted model")
	cmd.Flags().StringVar(&idField, "id-field", "", "Column carried to the output as row identifier")
	cmd.Flags().StringVarP(&output, "output", "o", "predictions.csv", "Path for the prediction CSV")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

func newInspectCmd() *cobra.Command {
	var artifactPath string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a persisted artifact as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := artifact.NewStore(artifactPath, logger.Get())
			art, err := store.Load()
			if err != nil {
				return err
			}

			data, err := gojson.MarshalIndent(art, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&artifactPath, "artifact", "tabflow-artifact.bin", "Path to the persisted preprocessing artifact")

	return cmd
}

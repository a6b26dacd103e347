package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tabflow/tabflow/pkg/tferrors"
)

// Load reads a YAML configuration file into config, substituting ${VAR}
// references with environment variable values first. Unknown variables
// substitute to the empty string.
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is caller-controlled
	if err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeConfig, "failed to read config file").
			WithDetail("path", filePath)
	}

	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeConfig, "failed to parse YAML").
			WithDetail("path", filePath)
	}

	return nil
}

// Save writes config to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return tferrors.Wrap(err, tferrors.ErrorTypeConfig, "failed to marshal YAML")
	}

	if err := os.WriteFile(filePath, data, 0o644); err != nil { //nolint:gosec
		return tferrors.Wrap(err, tferrors.ErrorTypeConfig, "failed to write config file").
			WithDetail("path", filePath)
	}

	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}

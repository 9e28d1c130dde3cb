package config

import (
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// WriteConfig serializes the given Config to YAML and writes it to path,
// creating parent directories as needed.
func WriteConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	content := "# Lemma configuration\n" + string(data)
	return os.WriteFile(path, []byte(content), 0644)
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), DefaultConfigFile+"."+DefaultConfigType)
}

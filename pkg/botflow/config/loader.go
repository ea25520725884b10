package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads the file at path, or returns an empty Config when path is "".
func Load(path string) (Config, error) {
	if path == "" {
		return New(nil), nil
	}
	return FromFile(path)
}

// FromFile loads configuration from a file, auto-detecting format by
// extension (.yaml, .yml, .json). ${VAR} references in string values are
// then replaced from the environment (see ExpandString), so secrets such
// as the NATS URL can stay out of the file.
func FromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = FromYAML(data)
	case ".json":
		cfg, err = FromJSON(data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return Config{}, err
	}

	cfg, err = cfg.Expand(os.LookupEnv)
	if err != nil {
		return Config{}, fmt.Errorf("expand config %s: %w", path, err)
	}
	return cfg, nil
}

// FromYAML parses a YAML document into a Config.
func FromYAML(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}
	return New(m), nil
}

// FromJSON parses a JSON document into a Config.
func FromJSON(data []byte) (Config, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return Config{}, fmt.Errorf("parse json config: %w", err)
	}
	return New(m), nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes the YAML file at path after expanding ${VAR} references.
// Unknown keys are rejected so a misspelt section does not silently fall
// back to defaults.
func Load(path string) (*StreamerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := decode([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte) (*StreamerConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg StreamerConfig
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads path and fills every unset field.
func LoadWithDefaults(path string) (*StreamerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads path, applies defaults and validates the result.
func LoadAndValidate(path string) (*StreamerConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault behaves like LoadAndValidate, except that a missing file
// yields the validated defaults. found reports whether path existed.
func LoadOrDefault(path string) (cfg *StreamerConfig, found bool, err error) {
	cfg, err = LoadAndValidate(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		if err := cfg.Validate(); err != nil {
			return nil, false, fmt.Errorf("validate defaults: %w", err)
		}
		return cfg, false, nil
	}
	if err != nil {
		return nil, true, err
	}
	return cfg, true, nil
}

// Default returns a config holding only default values.
func Default() *StreamerConfig {
	cfg := &StreamerConfig{}
	cfg.applyDefaults()
	return cfg
}

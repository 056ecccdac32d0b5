package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Realtime.CredentialURL == "" {
		errs = append(errs, errors.New("realtime.credential_url is required"))
	}

	if cfg.Turn.Mode != "" && !cfg.Turn.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("turn.mode %q is invalid; valid values: server_vad, push_to_talk", cfg.Turn.Mode))
	}

	if cfg.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout %s is negative", cfg.Backend.Timeout))
	}
	if cfg.Backend.BaseURL == "" && cfg.Agents.File == "" {
		errs = append(errs, errors.New("backend.base_url is required for the built-in agent set; set agents.file to use agents without it"))
	}

	if cfg.Archive.PostgresDSN == "" {
		slog.Warn("archive.postgres_dsn is empty; finalized transcript items will not be persisted")
	}
	if cfg.Server.ListenAddr == "" {
		slog.Warn("server.listen_addr is empty; health and metrics endpoints are disabled")
	}

	return errors.Join(errs...)
}

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jihwankim/pssakit/pkg/config"
	"github.com/jihwankim/pssakit/pkg/kinetics"
)

// secondsToDuration converts a config file's float-seconds timing field into
// a time.Duration.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// resolveGrid prefers the config file's explicit grid section; it falls
// back to the model file's own grid when the config leaves dims unset.
func resolveGrid(cfg *config.Config, modelGrid kinetics.GridConfig) (kinetics.GridConfig, error) {
	if len(cfg.Grid.Dims) == 0 {
		return modelGrid, nil
	}
	boundary, err := kinetics.ParseBoundary(cfg.Grid.Boundary)
	if err != nil {
		return kinetics.GridConfig{}, err
	}
	return kinetics.GridConfig{Dims: cfg.Grid.Dims, Boundary: boundary}, nil
}

// loadConfig loads the configuration from file, auto-generating a default
// one if none exists yet.
func loadConfig() (*config.Config, error) {
	configPath := cfgFile
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf("config file not found, creating default configuration at: %s\n", configPath)

		cfg := config.DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parseSetFlags parses --set key=value flags into a map.
func parseSetFlags(setFlags []string) map[string]string {
	overrides := make(map[string]string)
	for _, flag := range setFlags {
		parts := strings.SplitN(flag, "=", 2)
		if len(parts) == 2 {
			overrides[parts[0]] = parts[1]
		}
	}
	return overrides
}

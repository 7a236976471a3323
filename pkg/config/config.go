package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a pssakit run: which model to
// load, how to discretize it, which method to simulate it with, and where
// to send logs and reports.
type Config struct {
	Framework  FrameworkConfig  `yaml:"framework"`
	Model      ModelConfig      `yaml:"model"`
	Grid       GridConfig       `yaml:"grid"`
	Simulation SimulationConfig `yaml:"simulation"`
	Reporting  ReportingConfig  `yaml:"reporting"`
	Emergency  EmergencyConfig  `yaml:"emergency"`
}

// FrameworkConfig contains general framework settings.
type FrameworkConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// ModelConfig names the reaction network file to simulate.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// GridConfig describes the lattice the model is discretized onto.
type GridConfig struct {
	Dims     []int  `yaml:"dims"`
	Boundary string `yaml:"boundary"`
}

// SimulationConfig contains the method, time horizon, and trial count for
// a batch run.
type SimulationConfig struct {
	Method            string  `yaml:"method"`
	TimeStart         float64 `yaml:"time_start"`
	TimeStep          float64 `yaml:"time_step"`
	TimeEnd           float64 `yaml:"time_end"`
	SamplesTotal      int     `yaml:"samples_total"`
	Trials            int     `yaml:"trials"`
	InitialPopulation string  `yaml:"initial_population"`
	Seed              int64   `yaml:"seed"`
	Concurrency       int     `yaml:"concurrency"`
}

// ReportingConfig contains reporting and output settings.
type ReportingConfig struct {
	OutputDir string   `yaml:"output_dir"`
	KeepLastN int      `yaml:"keep_last_n"`
	Formats   []string `yaml:"formats"`
}

// EmergencyConfig contains emergency stop settings.
type EmergencyConfig struct {
	StopFile           string `yaml:"stop_file"`
	AutoCleanupTimeout string `yaml:"auto_cleanup_timeout"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Framework: FrameworkConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Model: ModelConfig{
			Path: "model.yaml",
		},
		Grid: GridConfig{
			Dims:     []int{1},
			Boundary: "periodic",
		},
		Simulation: SimulationConfig{
			Method:            "pssacr",
			TimeStart:         0,
			TimeStep:          0.1,
			TimeEnd:           10,
			SamplesTotal:      100,
			Trials:            1,
			InitialPopulation: "distribute",
			Seed:              1,
			Concurrency:       1,
		},
		Reporting: ReportingConfig{
			OutputDir: "./reports",
			KeepLastN: 50,
			Formats:   []string{"json"},
		},
		Emergency: EmergencyConfig{
			StopFile:           "/tmp/pssakit-emergency-stop",
			AutoCleanupTimeout: "5m",
		},
	}
}

// Load loads configuration from a YAML file (config.yaml when path is
// empty), falling back to defaults when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	if err := yaml.Unmarshal(expandedData, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}

	if len(c.Grid.Dims) == 0 {
		return fmt.Errorf("grid.dims must have at least one dimension")
	}
	for _, d := range c.Grid.Dims {
		if d < 1 {
			return fmt.Errorf("grid.dims entries must be at least 1")
		}
	}

	switch c.Simulation.Method {
	case "dm", "pdm", "pssacr":
	default:
		return fmt.Errorf("simulation.method must be one of dm, pdm, pssacr, got %q", c.Simulation.Method)
	}

	if c.Simulation.TimeEnd <= c.Simulation.TimeStart {
		return fmt.Errorf("simulation.time_end must be greater than time_start")
	}

	if c.Simulation.SamplesTotal < 1 {
		return fmt.Errorf("simulation.samples_total must be at least 1")
	}

	if c.Simulation.Trials < 1 {
		return fmt.Errorf("simulation.trials must be at least 1")
	}

	if c.Reporting.OutputDir == "" {
		return fmt.Errorf("reporting.output_dir is required")
	}

	return nil
}

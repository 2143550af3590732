// Package config loads the driver configuration for the abstract command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/TrevorS/abstraction"
	"github.com/TrevorS/abstraction/ehs"
	"gopkg.in/yaml.v3"
)

// Config is the top-level driver configuration.
type Config struct {
	Workers    int              `yaml:"workers"`
	Seed       uint64           `yaml:"seed"`
	Log        LogConfig        `yaml:"log"`
	Output     OutputConfig     `yaml:"output"`
	Stages     []StageConfig    `yaml:"stages"`
	Clustering ClusteringConfig `yaml:"clustering"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json or pterm
}

// OutputConfig names the files the command writes.
type OutputConfig struct {
	Table       string `yaml:"table"`
	Database    string `yaml:"database"`
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// StageConfig describes one street of the equity table.
type StageConfig struct {
	Name       string  `yaml:"name"`
	Cards      []int   `yaml:"cards"`
	Round      int     `yaml:"round"`
	Indexing   string  `yaml:"indexing,omitempty"` // isomorphic or combinatorial
	BatchSize  int     `yaml:"batch_size"`
	StdErr     float64 `yaml:"std_err"`
	MaxSamples int     `yaml:"max_samples"`
}

// ClusteringConfig controls histogram generation and k-means.
type ClusteringConfig struct {
	Clusters      int     `yaml:"clusters"`
	Restarts      int     `yaml:"restarts"`
	Epsilon       float64 `yaml:"epsilon"`
	MaxIterations int     `yaml:"max_iterations"`
	Metric        string  `yaml:"metric"`
	Init          string  `yaml:"init"` // random or plusplus
	Bins          int     `yaml:"bins"`
	Rollouts      int     `yaml:"rollouts"`

	// Limit caps the number of stage indices clustered, starting at
	// index 0. 0 clusters the whole stage.
	Limit uint64 `yaml:"limit,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	stages := ehs.DefaultStages()
	sc := make([]StageConfig, len(stages))
	for i, s := range stages {
		sc[i] = StageConfig{
			Name:       s.Name,
			Cards:      s.Groups,
			Round:      s.Round,
			Indexing:   s.Indexing,
			BatchSize:  s.BatchSize,
			StdErr:     s.MaxStdErr,
			MaxSamples: s.MaxSamples,
		}
	}
	km := abstraction.DefaultConfig()
	return Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Output: OutputConfig{Table: "ehs.dat", Database: "abstraction.db"},
		Stages: sc,
		Clustering: ClusteringConfig{
			Clusters:      km.Clusters,
			Restarts:      km.Restarts,
			Epsilon:       km.Epsilon,
			MaxIterations: km.MaxIterations,
			Metric:        "euclidean",
			Init:          "random",
			Bins:          50,
			Rollouts:      100,
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read the config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors the library would only
// report later.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Log.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
			errs = append(errs, fmt.Errorf("log.level: %w", err))
		}
	}
	switch c.Log.Format {
	case "", "text", "json", "pterm":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text, json or pterm, got %q", c.Log.Format))
	}
	if len(c.Stages) == 0 {
		errs = append(errs, errors.New("at least one stage is required"))
	}
	seen := make(map[string]bool)
	for _, sc := range c.Stages {
		if seen[sc.Name] {
			errs = append(errs, fmt.Errorf("duplicate stage %q", sc.Name))
		}
		seen[sc.Name] = true
		if _, err := sc.Stage().Indexer(); err != nil {
			errs = append(errs, err)
		}
	}

	cl := c.Clustering
	if _, err := abstraction.MetricByName(cl.Metric); err != nil {
		errs = append(errs, err)
	}
	switch cl.Init {
	case "", "random", "plusplus":
	default:
		errs = append(errs, fmt.Errorf("clustering.init must be random or plusplus, got %q", cl.Init))
	}
	if cl.Bins < 1 {
		errs = append(errs, fmt.Errorf("clustering.bins must be >= 1, got %d", cl.Bins))
	}
	if cl.Rollouts < 1 {
		errs = append(errs, fmt.Errorf("clustering.rollouts must be >= 1, got %d", cl.Rollouts))
	}
	if cl.Clusters < 1 {
		errs = append(errs, fmt.Errorf("clustering.clusters must be >= 1, got %d", cl.Clusters))
	}
	return errors.Join(errs...)
}

// Stage converts the stage config to an ehs.Stage.
func (sc StageConfig) Stage() ehs.Stage {
	return ehs.Stage{
		Name:       sc.Name,
		Groups:     sc.Cards,
		Round:      sc.Round,
		Indexing:   sc.Indexing,
		BatchSize:  sc.BatchSize,
		MaxStdErr:  sc.StdErr,
		MaxSamples: sc.MaxSamples,
	}
}

// EHSStages returns all configured stages.
func (c *Config) EHSStages() []ehs.Stage {
	out := make([]ehs.Stage, len(c.Stages))
	for i, sc := range c.Stages {
		out[i] = sc.Stage()
	}
	return out
}

// KMeans builds the clustering engine config. Logger and Metrics are left
// for the caller.
func (c *Config) KMeans() (abstraction.Config, error) {
	metric, err := abstraction.MetricByName(c.Clustering.Metric)
	if err != nil {
		return abstraction.Config{}, err
	}
	return abstraction.Config{
		Clusters:      c.Clustering.Clusters,
		Restarts:      c.Clustering.Restarts,
		Metric:        metric,
		Epsilon:       c.Clustering.Epsilon,
		MaxIterations: c.Clustering.MaxIterations,
		Workers:       c.Workers,
	}, nil
}

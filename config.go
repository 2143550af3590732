package abstraction

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
)

// DefaultEpsilon is the changed-fraction at or below which Fit stops.
const DefaultEpsilon = 0.005

// Config controls k-means initialization and fitting.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Clusters is k, the number of buckets. Must be >= 1 and no larger than
	// the dataset. Default: 8.
	Clusters int

	// Restarts is the number of random center sets InitRandom draws before
	// keeping the most spread out one. Must be >= 1. Default: 100.
	Restarts int

	// Metric measures histogram dissimilarity. Default: EuclideanMetric.
	Metric DistanceMetric

	// Epsilon is the convergence threshold on the fraction of points that
	// changed cluster in one iteration. Must be in [0, 1). Default: 0.005.
	Epsilon float64

	// MaxIterations bounds the number of fitting iterations. Fit returns
	// ErrNotConverged when it is reached. Must be >= 1. Default: 1000.
	MaxIterations int

	// Workers controls the number of goroutines used by the parallel
	// phases. 0 means runtime.NumCPU(). Results do not depend on it.
	Workers int

	// Logger receives progress messages. nil discards them.
	Logger *slog.Logger

	// Metrics, if set, records fitting progress.
	Metrics *Metrics
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Clusters:      8,
		Restarts:      100,
		Metric:        EuclideanMetric{},
		Epsilon:       DefaultEpsilon,
		MaxIterations: 1000,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Metric == nil {
		cfg.Metric = EuclideanMetric{}
	}
	if cfg.Restarts == 0 {
		cfg.Restarts = 100
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 1000
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.Clusters < 1 {
		return fmt.Errorf("abstraction: Clusters must be >= 1, got %d", cfg.Clusters)
	}
	if cfg.Restarts < 1 {
		return fmt.Errorf("abstraction: Restarts must be >= 1, got %d", cfg.Restarts)
	}
	if math.IsNaN(cfg.Epsilon) || cfg.Epsilon < 0 || cfg.Epsilon >= 1 {
		return fmt.Errorf("abstraction: Epsilon must be in [0, 1), got %f", cfg.Epsilon)
	}
	if cfg.MaxIterations < 1 {
		return fmt.Errorf("abstraction: MaxIterations must be >= 1, got %d", cfg.MaxIterations)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("abstraction: Workers must be >= 0, got %d", cfg.Workers)
	}
	return nil
}

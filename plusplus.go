package abstraction

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// UpdateMinDists lowers minDists[i] to the squared distance between data[i]
// and center whenever that is smaller. minDists must have one entry per
// histogram; callers initialize it to +Inf (or another large value) before
// the first center.
func UpdateMinDists(metric DistanceMetric, minDists []float64, data []Histogram, center Histogram) error {
	if len(minDists) != len(data) {
		return fmt.Errorf("%w: %d distances for %d histograms", ErrLengthMismatch, len(minDists), len(data))
	}
	for i, h := range data {
		d, err := checkedDistance(metric, h, center)
		if err != nil {
			return fmt.Errorf("histogram %d: %w", i, err)
		}
		if d *= d; d < minDists[i] {
			minDists[i] = d
		}
	}
	return nil
}

// InitPlusPlus creates an engine with k-means++ seeding: the first center is
// drawn uniformly, every further center with probability proportional to its
// squared distance from the nearest center already chosen. When every point
// coincides with a chosen center the draw falls back to uniform.
func InitPlusPlus(rng *rand.Rand, data []Histogram, cfg Config) (*Kmeans, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if _, err := validateDataset(data); err != nil {
		return nil, err
	}
	n := len(data)
	if cfg.Clusters > n {
		return nil, fmt.Errorf("%w: %d clusters for %d histograms", ErrTooManyClusters, cfg.Clusters, n)
	}

	start := time.Now()
	minDists := make([]float64, n)
	for i := range minDists {
		minDists[i] = math.Inf(1)
	}

	centers := make([]Histogram, 0, cfg.Clusters)
	next := rng.IntN(n)
	for {
		centers = append(centers, data[next].Clone())
		if len(centers) == cfg.Clusters {
			break
		}
		if err := UpdateMinDists(cfg.Metric, minDists, data, data[next]); err != nil {
			return nil, err
		}
		next = weightedIndex(rng, minDists)
	}

	cfg.Logger.Info("k-means++ initialized", "clusters", cfg.Clusters, "took", time.Since(start))
	return &Kmeans{centers: centers, cfg: cfg}, nil
}

// weightedIndex draws an index with probability proportional to weights.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	total := floats.Sum(weights)
	if total <= 0 {
		return rng.IntN(len(weights))
	}
	target := rng.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if target < acc {
			return i
		}
	}
	return len(weights) - 1
}

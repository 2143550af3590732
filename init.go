package abstraction

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// InitRandom creates an engine whose centers come from the best of
// cfg.Restarts random trials. Each trial draws cfg.Clusters histograms from
// data uniformly with replacement; the trial whose centers have the largest
// average pairwise distance wins. Sampling uses rng sequentially, so the
// result is reproducible for a given seed regardless of cfg.Workers.
//
// The chosen centers are deep copies and never alias data.
func InitRandom(rng *rand.Rand, data []Histogram, cfg Config) (*Kmeans, error) {
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
	cfg.Logger.Info("initializing k-means", "restarts", cfg.Restarts, "clusters", cfg.Clusters)

	trials := make([][]int, cfg.Restarts)
	for r := range trials {
		trials[r] = make([]int, cfg.Clusters)
		for c := range trials[r] {
			trials[r][c] = rng.IntN(n)
		}
	}

	spreads := make([]float64, cfg.Restarts)
	err := parallelRange(context.Background(), cfg.Restarts, cfg.Workers, func(_ context.Context, lo, hi int) error {
		for r := lo; r < hi; r++ {
			s, err := averagePairwiseDistance(cfg.Metric, data, trials[r])
			if err != nil {
				return fmt.Errorf("restart %d: %w", r, err)
			}
			spreads[r] = s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	cfg.Metrics.observeRestarts(cfg.Restarts)

	best := 0
	for r := 1; r < len(spreads); r++ {
		if spreads[r] > spreads[best] {
			best = r
		}
	}

	centers := make([]Histogram, cfg.Clusters)
	for c, idx := range trials[best] {
		centers[c] = data[idx].Clone()
	}

	cfg.Logger.Info("k-means initialized", "restart", best, "spread", spreads[best], "took", time.Since(start))
	return &Kmeans{centers: centers, cfg: cfg}, nil
}

// averagePairwiseDistance returns the mean distance over all ordered pairs
// of distinct positions in idx. A single center has no pairs and a spread
// of zero.
func averagePairwiseDistance(metric DistanceMetric, data []Histogram, idx []int) (float64, error) {
	if len(idx) < 2 {
		return 0, nil
	}
	var sum float64
	pairs := 0
	for i := range idx {
		for j := range idx {
			if i == j {
				continue
			}
			d, err := checkedDistance(metric, data[idx[i]], data[idx[j]])
			if err != nil {
				return 0, err
			}
			sum += d
			pairs++
		}
	}
	return sum / float64(pairs), nil
}

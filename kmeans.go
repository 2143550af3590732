package abstraction

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Kmeans holds the cluster centers of one k-means model. The engine owns its
// centers; datasets passed to it are only read.
type Kmeans struct {
	centers []Histogram
	cfg     Config
}

// Result is the outcome of Fit.
type Result struct {
	// Assignments maps each dataset index to its cluster in [0, K).
	Assignments []int

	// Iterations is the number of predict/update passes performed.
	Iterations int

	// Converged reports whether the changed fraction reached Config.Epsilon.
	Converged bool

	// LastChangedFraction is the fraction of points that switched cluster
	// in the final iteration.
	LastChangedFraction float64
}

// NewKmeans creates an engine from known centers, for example ones loaded
// from a previous run. The centers are copied. cfg.Clusters is ignored and
// replaced by len(centers).
func NewKmeans(centers []Histogram, cfg Config) (*Kmeans, error) {
	if _, err := validateDataset(centers); err != nil {
		return nil, fmt.Errorf("abstraction: invalid centers: %w", err)
	}
	cfg.Clusters = len(centers)
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	owned := make([]Histogram, len(centers))
	for i, c := range centers {
		owned[i] = c.Clone()
	}
	return &Kmeans{centers: owned, cfg: cfg}, nil
}

// K returns the number of clusters.
func (km *Kmeans) K() int { return len(km.centers) }

// Centers returns a deep copy of the current centers.
func (km *Kmeans) Centers() []Histogram {
	out := make([]Histogram, len(km.centers))
	for i, c := range km.centers {
		out[i] = c.Clone()
	}
	return out
}

// Predict assigns every histogram in data to its nearest center, writing the
// cluster index into assignments, and returns how many entries changed.
// Ties go to the lowest cluster index. assignments must have the same length
// as data.
func (km *Kmeans) Predict(ctx context.Context, data []Histogram, assignments []int) (int, error) {
	if len(assignments) != len(data) {
		return 0, fmt.Errorf("%w: %d assignments for %d histograms", ErrLengthMismatch, len(assignments), len(data))
	}
	bins, err := validateDataset(data)
	if err != nil {
		return 0, err
	}
	if bins != len(km.centers[0]) {
		return 0, fmt.Errorf("%w: data has %d bins, centers have %d", ErrDimensionMismatch, bins, len(km.centers[0]))
	}

	var changed atomic.Int64
	err = parallelRange(ctx, len(data), km.cfg.Workers, func(ctx context.Context, start, end int) error {
		local := 0
		for i := start; i < end; i++ {
			if (i-start)%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			best, err := km.nearest(data[i])
			if err != nil {
				return fmt.Errorf("histogram %d: %w", i, err)
			}
			if best != assignments[i] {
				local++
			}
			assignments[i] = best
		}
		changed.Add(int64(local))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(changed.Load()), nil
}

// nearest returns the index of the center closest to h.
func (km *Kmeans) nearest(h Histogram) (int, error) {
	best := 0
	bestDist := 0.0
	for k, c := range km.centers {
		d, err := checkedDistance(km.cfg.Metric, h, c)
		if err != nil {
			return 0, fmt.Errorf("center %d: %w", k, err)
		}
		if k == 0 || d < bestDist {
			best, bestDist = k, d
		}
	}
	return best, nil
}

// Fit runs k-means on data starting from the current centers. Every point
// starts in cluster 0; each iteration reassigns all points, then replaces
// every center with the mean of its members. Fitting stops once the
// fraction of changed points is at most Config.Epsilon.
//
// If Config.MaxIterations passes are made without converging, Fit returns
// the Result so far together with ErrNotConverged.
func (km *Kmeans) Fit(ctx context.Context, data []Histogram) (*Result, error) {
	bins, err := validateDataset(data)
	if err != nil {
		km.cfg.Metrics.observeFit("error")
		return nil, err
	}
	if bins != len(km.centers[0]) {
		km.cfg.Metrics.observeFit("error")
		return nil, fmt.Errorf("%w: data has %d bins, centers have %d", ErrDimensionMismatch, bins, len(km.centers[0]))
	}

	log := km.cfg.Logger
	start := time.Now()
	n := len(data)
	log.Info("fitting k-means", "clusters", km.K(), "points", n, "bins", bins)

	res := &Result{Assignments: make([]int, n)}
	for res.Iterations < km.cfg.MaxIterations {
		iterStart := time.Now()

		changed, err := km.Predict(ctx, data, res.Assignments)
		if err != nil {
			km.cfg.Metrics.observeFit("error")
			return nil, err
		}
		centers, err := km.updateCenters(ctx, data, res.Assignments, bins)
		if err != nil {
			km.cfg.Metrics.observeFit("error")
			return nil, err
		}
		km.centers = centers

		res.Iterations++
		res.LastChangedFraction = float64(changed) / float64(n)
		km.cfg.Metrics.observeIteration(res.LastChangedFraction, time.Since(iterStart))
		log.Debug("k-means iteration", "iteration", res.Iterations, "changed", res.LastChangedFraction)

		if res.LastChangedFraction <= km.cfg.Epsilon {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		km.cfg.Metrics.observeFit("not_converged")
		log.Warn("k-means stopped before converging",
			"iterations", res.Iterations, "changed", res.LastChangedFraction, "took", time.Since(start))
		return res, fmt.Errorf("%w after %d iterations (changed fraction %.4f)",
			ErrNotConverged, res.Iterations, res.LastChangedFraction)
	}

	km.cfg.Metrics.observeFit("converged")
	log.Info("k-means converged", "iterations", res.Iterations, "took", time.Since(start))
	return res, nil
}

// updateCenters computes the elementwise mean of the histograms assigned to
// each cluster. Bins with no accumulated mass stay at zero, so a cluster
// with no members gets an all-zero center.
//
// Work is split by cluster, not by point: each worker scans the whole
// dataset in index order but only sums points of its own clusters. The
// summation order per cluster is therefore fixed and the centers are
// bitwise identical for every worker count.
func (km *Kmeans) updateCenters(ctx context.Context, data []Histogram, assignments []int, bins int) ([]Histogram, error) {
	k := km.K()
	centers := make([]Histogram, k)
	for c := range centers {
		centers[c] = make(Histogram, bins)
	}
	counts := make([]int, k)

	err := parallelRange(ctx, k, km.cfg.Workers, func(ctx context.Context, lo, hi int) error {
		for i, h := range data {
			if i%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			c := assignments[i]
			if c < lo || c >= hi {
				continue
			}
			counts[c]++
			sum := centers[c]
			for j, v := range h {
				sum[j] += v
			}
		}
		for c := lo; c < hi; c++ {
			for j, v := range centers[c] {
				if v > 0 {
					centers[c][j] = v / float64(counts[c])
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return centers, nil
}

// IsNotConverged reports whether err is the non-convergence outcome of Fit.
func IsNotConverged(err error) bool {
	return errors.Is(err, ErrNotConverged)
}

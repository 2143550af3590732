package abstraction

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DistanceMetric measures the dissimilarity of two equal-length histograms.
// Implementations must be pure and safe for concurrent use: the engine calls
// them from many goroutines at once on shared, read-only data.
type DistanceMetric interface {
	Distance(a, b Histogram) float64
}

// DistanceFunc adapts a plain function into a DistanceMetric.
type DistanceFunc func(a, b Histogram) float64

func (f DistanceFunc) Distance(a, b Histogram) float64 { return f(a, b) }

// EuclideanMetric computes the Euclidean (L2) distance. It is the default.
type EuclideanMetric struct{}

func (EuclideanMetric) Distance(a, b Histogram) float64 {
	return floats.Distance(a, b, 2)
}

// SquaredEuclideanMetric computes the sum of squared bin differences.
type SquaredEuclideanMetric struct{}

func (SquaredEuclideanMetric) Distance(a, b Histogram) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// ManhattanMetric computes the Manhattan (L1) distance.
type ManhattanMetric struct{}

func (ManhattanMetric) Distance(a, b Histogram) float64 {
	return floats.Distance(a, b, 1)
}

// EMDMetric computes the one-dimensional earth mover's distance: the L1
// distance between the running sums of the two histograms. Bins are assumed
// to be equally spaced and ordered.
type EMDMetric struct{}

func (EMDMetric) Distance(a, b Histogram) float64 {
	var carry, sum float64
	for i := range a {
		carry += a[i] - b[i]
		sum += math.Abs(carry)
	}
	return sum
}

// MetricByName returns the built-in metric registered under name:
// "euclidean", "sqeuclidean", "manhattan" or "emd".
func MetricByName(name string) (DistanceMetric, error) {
	switch name {
	case "", "euclidean":
		return EuclideanMetric{}, nil
	case "sqeuclidean":
		return SquaredEuclideanMetric{}, nil
	case "manhattan":
		return ManhattanMetric{}, nil
	case "emd":
		return EMDMetric{}, nil
	default:
		return nil, fmt.Errorf("abstraction: unknown metric %q", name)
	}
}

// checkedDistance calls metric and rejects NaN and infinite results, which
// would otherwise make argmin and argmax comparisons meaningless.
func checkedDistance(metric DistanceMetric, a, b Histogram) (float64, error) {
	d := metric.Distance(a, b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrNonFiniteDistance, d)
	}
	return d, nil
}

package abstraction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatTol = 1e-10

// --- EuclideanMetric tests ---

func TestEuclideanDistance_IdenticalVectors(t *testing.T) {
	a := Histogram{1, 2, 3}
	assert.Zero(t, EuclideanMetric{}.Distance(a, a))
}

func TestEuclideanDistance_UnitVectors(t *testing.T) {
	a := Histogram{1, 0, 0}
	b := Histogram{0, 1, 0}
	// sqrt((1-0)^2 + (0-1)^2 + (0-0)^2) = sqrt(2)
	assert.InDelta(t, math.Sqrt(2), EuclideanMetric{}.Distance(a, b), floatTol)
}

func TestEuclideanDistance_HandComputed(t *testing.T) {
	a := Histogram{1, 2, 3}
	b := Histogram{4, 6, 3}
	// sqrt(9+16+0) = 5
	assert.InDelta(t, 5.0, EuclideanMetric{}.Distance(a, b), floatTol)
}

func TestSquaredEuclideanDistance_HandComputed(t *testing.T) {
	a := Histogram{1, 2, 3}
	b := Histogram{4, 6, 3}
	assert.InDelta(t, 25.0, SquaredEuclideanMetric{}.Distance(a, b), floatTol)
}

// --- ManhattanMetric tests ---

func TestManhattanDistance_HandComputed(t *testing.T) {
	a := Histogram{1, 2, 3}
	b := Histogram{4, 0, 3}
	// |3| + |-2| + 0 = 5
	assert.InDelta(t, 5.0, ManhattanMetric{}.Distance(a, b), floatTol)
}

// --- EMDMetric tests ---

func TestEMDDistance_AdjacentShift(t *testing.T) {
	// All mass moves one bin.
	assert.InDelta(t, 1.0, EMDMetric{}.Distance(Histogram{1, 0, 0}, Histogram{0, 1, 0}), floatTol)
}

func TestEMDDistance_FartherShiftCostsMore(t *testing.T) {
	m := EMDMetric{}
	a := Histogram{1, 0, 0}
	near := Histogram{0, 1, 0}
	far := Histogram{0, 0, 1}
	assert.Greater(t, m.Distance(a, far), m.Distance(a, near))

	// Euclidean cannot tell the two apart.
	e := EuclideanMetric{}
	assert.InDelta(t, e.Distance(a, near), e.Distance(a, far), floatTol)
}

func TestEMDDistance_Symmetric(t *testing.T) {
	m := EMDMetric{}
	a := Histogram{0.2, 0.5, 0.3}
	b := Histogram{0.6, 0.1, 0.3}
	assert.InDelta(t, m.Distance(a, b), m.Distance(b, a), floatTol)
}

// --- DistanceFunc tests ---

func TestDistanceFunc_Adapter(t *testing.T) {
	f := DistanceFunc(func(a, b Histogram) float64 { return 42 })
	assert.Equal(t, 42.0, f.Distance(Histogram{0}, Histogram{1}))
}

func TestMetricByName(t *testing.T) {
	for _, name := range []string{"", "euclidean", "sqeuclidean", "manhattan", "emd"} {
		_, err := MetricByName(name)
		require.NoError(t, err, name)
	}
	_, err := MetricByName("cosine")
	assert.Error(t, err)
}

func TestCheckedDistance_RejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		f := DistanceFunc(func(a, b Histogram) float64 { return v })
		_, err := checkedDistance(f, Histogram{0}, Histogram{0})
		assert.ErrorIs(t, err, ErrNonFiniteDistance, "value %v", v)
	}
}

package abstraction

import "fmt"

// Histogram is a discretised outcome distribution for one game situation.
// Every histogram in a dataset has the same number of bins.
type Histogram []float64

// Clone returns a copy of h that shares no memory with it.
func (h Histogram) Clone() Histogram {
	out := make(Histogram, len(h))
	copy(out, h)
	return out
}

// validateDataset checks that data is non-empty and that every histogram has
// the same number of bins. It returns that bin count.
func validateDataset(data []Histogram) (int, error) {
	if len(data) == 0 {
		return 0, ErrEmptyDataset
	}
	bins := len(data[0])
	for i, h := range data {
		if len(h) != bins {
			return 0, fmt.Errorf("%w: histogram %d has %d bins, expected %d", ErrDimensionMismatch, i, len(h), bins)
		}
	}
	return bins, nil
}

package abstraction

import "errors"

var (
	ErrEmptyDataset      = errors.New("abstraction: empty dataset")
	ErrTooManyClusters   = errors.New("abstraction: more clusters than data points")
	ErrLengthMismatch    = errors.New("abstraction: assignment buffer length does not match dataset")
	ErrDimensionMismatch = errors.New("abstraction: histogram dimension mismatch")
	ErrNonFiniteDistance = errors.New("abstraction: metric returned a non-finite distance")
	ErrNotConverged      = errors.New("abstraction: k-means did not converge")
)

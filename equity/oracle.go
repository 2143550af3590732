// Package equity estimates hold'em equities by Monte-Carlo simulation.
//
// The Oracle interface is what the table and histogram generators consume;
// MonteCarlo is the reference implementation, dealing random opponent hands
// and board runouts and ranking them with a seven-card evaluator.
package equity

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// Default sampling parameters.
const (
	DefaultBatchSize  = 1000
	DefaultMaxSamples = 2_000_000
)

// maxDealAttempts bounds rejection sampling for a single trial before the
// request is declared undealable.
const maxDealAttempts = 1000

// Request describes one equity query.
type Request struct {
	// Ranges holds one range descriptor per player. The first is usually
	// the hero's exact combo. At least two are required.
	Ranges []string

	// Board holds the known community cards (0 to 5 of them).
	Board CardMask

	// BatchSize is the number of trials between standard-error checks.
	// Default: DefaultBatchSize.
	BatchSize int

	// MaxStdErr stops sampling once the standard error of the first
	// player's estimate is at or below it. 0 runs MaxSamples trials.
	MaxStdErr float64

	// MaxSamples caps the number of trials. Default: DefaultMaxSamples.
	MaxSamples int

	// Seed makes the simulation reproducible.
	Seed uint64
}

// Oracle estimates the equity of each range in a request.
type Oracle interface {
	Equity(ctx context.Context, req Request) ([]float64, error)
}

// MonteCarlo is an Oracle that samples deals at random. It holds no state
// and is safe for concurrent use.
type MonteCarlo struct{}

// NewMonteCarlo returns a Monte-Carlo oracle.
func NewMonteCarlo() *MonteCarlo { return &MonteCarlo{} }

// Equity returns, for each range in req, the probability-weighted share of
// the pot it wins, ties split evenly. The results sum to 1.
func (MonteCarlo) Equity(ctx context.Context, req Request) ([]float64, error) {
	ranges, err := prepare(&req)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(req.Seed, req.Seed^0xda942042e4dd58b5))
	boardCards := req.Board.Cards()
	players := len(ranges)

	sums := make([]float64, players)
	var heroSum, heroSumSq float64
	trials := 0

	deal := dealer{rng: rng, ranges: ranges, board: req.Board}
	var board [5]Card
	copy(board[:], boardCards)
	holes := make([]Combo, players)
	scores := make([]int16, players)

	for trials < req.MaxSamples {
		if trials%req.BatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if trials > 0 && req.MaxStdErr > 0 && stdErr(heroSum, heroSumSq, trials) <= req.MaxStdErr {
				break
			}
		}

		if err := deal.next(holes, board[:], len(boardCards)); err != nil {
			return nil, err
		}

		best := int16(math.MinInt16)
		winners := 0
		for p := range holes {
			scores[p] = rank7(&board, holes[p])
			switch {
			case scores[p] > best:
				best, winners = scores[p], 1
			case scores[p] == best:
				winners++
			}
		}
		share := 1 / float64(winners)
		for p := range scores {
			if scores[p] == best {
				sums[p] += share
			}
		}
		hero := 0.0
		if scores[0] == best {
			hero = share
		}
		heroSum += hero
		heroSumSq += hero * hero
		trials++
	}

	for p := range sums {
		sums[p] /= float64(trials)
	}
	return sums, nil
}

// prepare applies defaults, validates req and parses its ranges.
func prepare(req *Request) ([]Range, error) {
	if req.BatchSize <= 0 {
		req.BatchSize = DefaultBatchSize
	}
	if req.MaxSamples <= 0 {
		req.MaxSamples = DefaultMaxSamples
	}
	if req.MaxStdErr < 0 {
		return nil, fmt.Errorf("equity: MaxStdErr must be >= 0, got %f", req.MaxStdErr)
	}
	if n := req.Board.Count(); n > 5 || req.Board>>NumCards != 0 {
		return nil, fmt.Errorf("%w: %d cards", ErrBadBoard, n)
	}
	if len(req.Ranges) < 2 {
		return nil, fmt.Errorf("%w: need at least two ranges, got %d", ErrBadRange, len(req.Ranges))
	}
	if 5+2*len(req.Ranges) > NumCards {
		return nil, fmt.Errorf("%w: %d players do not fit in one deck", ErrBadRange, len(req.Ranges))
	}

	ranges := make([]Range, len(req.Ranges))
	for i, s := range req.Ranges {
		r, err := ParseRange(s)
		if err != nil {
			return nil, err
		}
		if len(r.live(req.Board)) == 0 {
			return nil, fmt.Errorf("%w: range %q is blocked by the board", ErrCardConflict, s)
		}
		ranges[i] = r
	}
	return ranges, nil
}

func stdErr(sum, sumSq float64, n int) float64 {
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance / float64(n))
}

// dealer samples one hand per range and completes the board, all without
// repeating a card.
type dealer struct {
	rng    *rand.Rand
	ranges []Range
	board  CardMask
}

// next fills holes with one combo per range and board[known:] with random
// cards.
func (d *dealer) next(holes []Combo, board []Card, known int) error {
	for attempt := 0; attempt < maxDealAttempts; attempt++ {
		if d.tryDeal(holes, board, known) {
			return nil
		}
	}
	return fmt.Errorf("%w: no deal found in %d attempts", ErrCardConflict, maxDealAttempts)
}

func (d *dealer) tryDeal(holes []Combo, board []Card, known int) bool {
	dead := d.board
	for p, r := range d.ranges {
		combos := r.Combos()
		c := combos[d.rng.IntN(len(combos))]
		if c.Mask().Overlaps(dead) {
			return false
		}
		holes[p] = c
		dead |= c.Mask()
	}
	for i := known; i < len(board); i++ {
		for {
			c := Card(d.rng.IntN(NumCards))
			if !dead.Has(c) {
				board[i] = c
				dead = dead.With(c)
				break
			}
		}
	}
	return true
}

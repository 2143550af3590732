// Package handindex maps dealt cards to dense integer indices and back.
//
// An Indexer describes a deal as a sequence of rounds, each adding a fixed
// number of cards (for example two hole cards, then a three-card flop).
// Indices for a round run from 0 to Size(round)-1 with no gaps and no
// collisions, which lets callers split work into contiguous index ranges
// and store per-situation results in flat arrays.
package handindex

import (
	"errors"
	"fmt"
	"math/bits"
	"slices"

	"github.com/TrevorS/abstraction/equity"
)

var (
	ErrIndexOutOfRange = errors.New("handindex: index out of range")
	ErrBadRound        = errors.New("handindex: invalid round")
	ErrBadCards        = errors.New("handindex: invalid cards")
)

// Indexer assigns dense indices to deals.
type Indexer interface {
	// Rounds returns the number of rounds.
	Rounds() int
	// CardsDealt returns the total number of cards dealt through round.
	CardsDealt(round int) int
	// Size returns the number of distinct indices for round.
	Size(round int) uint64
	// Index returns the index of cards, the first CardsDealt(round) cards
	// of a deal in round order.
	Index(round int, cards []equity.Card) (uint64, error)
	// Unindex writes a deal with the given index into cards, round by
	// round. The order of cards within a round is up to the indexer.
	Unindex(round int, index uint64, cards []equity.Card) error
}

// binomial[n][k] is n choose k for n, k <= 52.
var binomial [equity.NumCards + 1][equity.NumCards + 1]uint64

func init() {
	for n := 0; n <= equity.NumCards; n++ {
		binomial[n][0] = 1
		for k := 1; k <= n; k++ {
			binomial[n][k] = binomial[n-1][k-1] + binomial[n-1][k]
		}
	}
}

// Combinatorial indexes every distinct deal. Each round's cards are ranked
// as a combination of the cards still in the deck, and the per-round ranks
// are combined as a mixed-radix number with round 0 most significant.
//
// It is dense and collision-free but does not merge suit-isomorphic deals,
// so its sizes are larger than Isomorphic's. Unindex writes each round's
// cards in increasing order.
type Combinatorial struct {
	groups []int
	sizes  []uint64 // cumulative Size per round
	radix  []uint64 // combinations available in each round alone
}

// NewCombinatorial creates an indexer dealing groups[r] cards in round r.
func NewCombinatorial(groups ...int) (*Combinatorial, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no rounds", ErrBadRound)
	}
	idx := &Combinatorial{groups: slices.Clone(groups)}
	dealt := 0
	size := uint64(1)
	for r, g := range groups {
		if g < 1 || dealt+g > equity.NumCards {
			return nil, fmt.Errorf("%w: round %d deals %d cards after %d", ErrBadRound, r, g, dealt)
		}
		radix := binomial[equity.NumCards-dealt][g]
		hi, lo := bits.Mul64(size, radix)
		if hi != 0 {
			return nil, fmt.Errorf("%w: round %d overflows uint64", ErrBadRound, r)
		}
		size = lo
		dealt += g
		idx.radix = append(idx.radix, radix)
		idx.sizes = append(idx.sizes, size)
	}
	return idx, nil
}

func (c *Combinatorial) Rounds() int { return len(c.groups) }

func (c *Combinatorial) CardsDealt(round int) int {
	n := 0
	for _, g := range c.groups[:round+1] {
		n += g
	}
	return n
}

func (c *Combinatorial) Size(round int) uint64 {
	if round < 0 || round >= len(c.groups) {
		return 0
	}
	return c.sizes[round]
}

func (c *Combinatorial) Index(round int, cards []equity.Card) (uint64, error) {
	if err := c.checkRound(round, len(cards)); err != nil {
		return 0, err
	}
	var dead equity.CardMask
	for _, card := range cards {
		if card >= equity.NumCards || dead.Has(card) {
			return 0, fmt.Errorf("%w: %s", ErrBadCards, equity.FormatCards(cards))
		}
		dead = dead.With(card)
	}

	var index uint64
	dead = 0
	offset := 0
	for r := 0; r <= round; r++ {
		group := cards[offset : offset+c.groups[r]]
		positions := make([]int, len(group))
		for i, card := range group {
			// Position of card among the cards not dealt in earlier rounds.
			positions[i] = int(card) - (dead & (1<<card - 1)).Count()
		}
		slices.Sort(positions)
		var rank uint64
		for i, p := range positions {
			rank += binomial[p][i+1]
		}
		index = index*c.radix[r] + rank
		dead |= equity.MaskOf(group...)
		offset += c.groups[r]
	}
	return index, nil
}

func (c *Combinatorial) Unindex(round int, index uint64, cards []equity.Card) error {
	if err := c.checkRound(round, len(cards)); err != nil {
		return err
	}
	if index >= c.sizes[round] {
		return fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, c.sizes[round])
	}

	ranks := make([]uint64, round+1)
	for r := round; r >= 0; r-- {
		ranks[r] = index % c.radix[r]
		index /= c.radix[r]
	}

	var dead equity.CardMask
	offset := 0
	for r := 0; r <= round; r++ {
		g := c.groups[r]
		positions := unrankCombination(ranks[r], g)
		live := liveCards(dead)
		for i, p := range positions {
			cards[offset+i] = live[p]
		}
		dead |= equity.MaskOf(cards[offset : offset+g]...)
		offset += g
	}
	return nil
}

func (c *Combinatorial) checkRound(round, n int) error {
	if round < 0 || round >= len(c.groups) {
		return fmt.Errorf("%w: %d of %d", ErrBadRound, round, len(c.groups))
	}
	if want := c.CardsDealt(round); n != want {
		return fmt.Errorf("%w: round %d needs %d cards, got %d", ErrBadCards, round, want, n)
	}
	return nil
}

// unrankCombination returns the k positions, increasing, whose colex rank
// is rank.
func unrankCombination(rank uint64, k int) []int {
	positions := make([]int, k)
	n := equity.NumCards
	for i := k; i >= 1; i-- {
		for n > 0 && binomial[n][i] > rank {
			n--
		}
		positions[i-1] = n
		rank -= binomial[n][i]
	}
	return positions
}

// liveCards lists the cards not in dead, increasing.
func liveCards(dead equity.CardMask) []equity.Card {
	live := make([]equity.Card, 0, equity.NumCards-dead.Count())
	for c := equity.Card(0); c < equity.NumCards; c++ {
		if !dead.Has(c) {
			live = append(live, c)
		}
	}
	return live
}

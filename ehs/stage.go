package ehs

import (
	"errors"
	"fmt"

	"github.com/TrevorS/abstraction/handindex"
)

// ErrBadStage reports a stage whose layout cannot be indexed.
var ErrBadStage = errors.New("ehs: invalid stage")

// Indexing schemes a stage can use.
const (
	// IndexIsomorphic merges deals that differ only by suit relabeling.
	IndexIsomorphic    = "isomorphic"
	// IndexCombinatorial gives every distinct deal its own entry.
	IndexCombinatorial = "combinatorial"
)

// Stage is one street of the table. Groups lists the cards dealt per indexer
// round, hole cards first; Round selects which round's index space the
// stage covers. The oracle settings control how precisely each entry is
// estimated. Indexing picks the hand indexer; empty means IndexIsomorphic.
type Stage struct {
	Name       string
	Groups     []int
	Round      int
	Indexing   string
	BatchSize  int
	MaxStdErr  float64
	MaxSamples int
}

// DefaultStages returns the four hold'em streets. Preflop is estimated more
// tightly than the postflop streets since it has far fewer entries.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "preflop", Groups: []int{2}, Round: 0, BatchSize: 1000, MaxStdErr: 0.001, MaxSamples: 2_000_000},
		{Name: "flop", Groups: []int{2, 3}, Round: 1, BatchSize: 1000, MaxStdErr: 0.01, MaxSamples: 2_000_000},
		{Name: "turn", Groups: []int{2, 4}, Round: 1, BatchSize: 1000, MaxStdErr: 0.01, MaxSamples: 2_000_000},
		{Name: "river", Groups: []int{2, 5}, Round: 1, BatchSize: 1000, MaxStdErr: 0.01, MaxSamples: 2_000_000},
	}
}

// StageByName returns the stage called name from stages.
func StageByName(stages []Stage, name string) (Stage, error) {
	for _, s := range stages {
		if s.Name == name {
			return s, nil
		}
	}
	return Stage{}, fmt.Errorf("%w: no stage named %q", ErrBadStage, name)
}

// Indexer returns the hand indexer for the stage.
func (s Stage) Indexer() (handindex.Indexer, error) {
	if len(s.Groups) == 0 || s.Groups[0] != 2 {
		return nil, fmt.Errorf("%w: %s must deal two hole cards first, got %v", ErrBadStage, s.Name, s.Groups)
	}
	if s.Round < 0 || s.Round >= len(s.Groups) {
		return nil, fmt.Errorf("%w: %s has no round %d", ErrBadStage, s.Name, s.Round)
	}
	var idx handindex.Indexer
	var err error
	switch s.Indexing {
	case "", IndexIsomorphic:
		idx, err = newIsomorphic(s.Groups)
	case IndexCombinatorial:
		idx, err = newCombinatorial(s.Groups)
	default:
		return nil, fmt.Errorf("%w: %s has unknown indexing %q", ErrBadStage, s.Name, s.Indexing)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadStage, s.Name, err)
	}
	if idx.CardsDealt(s.Round) > 7 {
		return nil, fmt.Errorf("%w: %s deals more than a hold'em hand", ErrBadStage, s.Name)
	}
	return idx, nil
}

// The constructors return concrete pointers; wrapping them keeps a failed
// construction from turning into a non-nil interface.
func newIsomorphic(groups []int) (handindex.Indexer, error) {
	idx, err := handindex.NewIsomorphic(groups...)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

func newCombinatorial(groups []int) (handindex.Indexer, error) {
	idx, err := handindex.NewCombinatorial(groups...)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Size returns the number of table entries for the stage.
func (s Stage) Size() (uint64, error) {
	idx, err := s.Indexer()
	if err != nil {
		return 0, err
	}
	return idx.Size(s.Round), nil
}

// BoardCards returns how many community cards the stage shows.
func (s Stage) BoardCards() int {
	n := 0
	for r := 1; r <= s.Round && r < len(s.Groups); r++ {
		n += s.Groups[r]
	}
	return n
}

// Sizes returns the entry count of every stage, in order.
func Sizes(stages []Stage) ([]uint64, error) {
	sizes := make([]uint64, len(stages))
	for i, s := range stages {
		n, err := s.Size()
		if err != nil {
			return nil, err
		}
		sizes[i] = n
	}
	return sizes, nil
}

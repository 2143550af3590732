package handindex

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"
	"sort"

	"github.com/TrevorS/abstraction/equity"
)

const (
	numSuits  = 4
	numRanks  = 13
	maxRounds = 8

	// A suit's card counts are packed one nibble per round, round 0 in
	// the most significant nibble, so comparing packed values compares
	// the counts round by round.
	roundShift = 4
	roundMask  = 0xf
)

// Isomorphic indexes deals up to a relabeling of suits. Two deals that
// differ only by a permutation of suits share an index, so preflop has 169
// indices rather than 1326.
//
// Each deal is reduced to a configuration: the per-suit card counts of every
// round, with suits ordered by those counts. Configurations own contiguous
// index ranges. Within one, every suit's ranks are ranked as combinations
// round by round, and suits with identical counts are combined as a
// multiset so their order does not matter.
type Isomorphic struct {
	groups     []int
	roundStart []int
	sizes      []uint64
	configs    [][]configuration
	lookup     []map[[numSuits]uint32]int
}

type configuration struct {
	suits    [numSuits]uint32 // packed counts, non-increasing
	suitSize [numSuits]uint64 // rank sets a suit with these counts can hold
	offset   uint64
}

// NewIsomorphic creates an indexer dealing groups[r] cards in round r.
func NewIsomorphic(groups ...int) (*Isomorphic, error) {
	if len(groups) == 0 || len(groups) > maxRounds {
		return nil, fmt.Errorf("%w: %d rounds, want 1 to %d", ErrBadRound, len(groups), maxRounds)
	}
	x := &Isomorphic{groups: slices.Clone(groups)}
	dealt := 0
	for r, g := range groups {
		if g < 1 || dealt+g > equity.NumCards {
			return nil, fmt.Errorf("%w: round %d deals %d cards after %d", ErrBadRound, r, g, dealt)
		}
		x.roundStart = append(x.roundStart, dealt)
		dealt += g
	}

	prev := [][numSuits]uint32{{}}
	for r, g := range groups {
		seen := make(map[[numSuits]uint32]bool)
		var next [][numSuits]uint32
		for _, base := range prev {
			compositions(g, func(split [numSuits]int) {
				suits := base
				for s, n := range split {
					if suitCards(base[s])+n > numRanks {
						return
					}
					suits[s] |= uint32(n) << x.shift(r)
				}
				slices.SortFunc(suits[:], func(a, b uint32) int { return cmp.Compare(b, a) })
				if !seen[suits] {
					seen[suits] = true
					next = append(next, suits)
				}
			})
		}
		slices.SortFunc(next, func(a, b [numSuits]uint32) int { return slices.Compare(a[:], b[:]) })

		configs := make([]configuration, len(next))
		lookup := make(map[[numSuits]uint32]int, len(next))
		var total uint64
		for id, suits := range next {
			c := configuration{suits: suits, offset: total}
			mult := uint64(1)
			for i := 0; i < numSuits; {
				size := uint64(1)
				used := 0
				for q := 0; q <= r; q++ {
					n := x.count(suits[i], q)
					size *= binomial[numRanks-used][n]
					used += n
				}
				j := i + 1
				for j < numSuits && suits[j] == suits[i] {
					j++
				}
				for k := i; k < j; k++ {
					c.suitSize[k] = size
				}
				groupSize, ok := choose(size+uint64(j-i-1), j-i)
				hi, lo := bits.Mul64(mult, groupSize)
				if !ok || hi != 0 {
					return nil, fmt.Errorf("%w: round %d overflows uint64", ErrBadRound, r)
				}
				mult = lo
				i = j
			}
			var carry uint64
			total, carry = bits.Add64(total, mult, 0)
			if carry != 0 {
				return nil, fmt.Errorf("%w: round %d overflows uint64", ErrBadRound, r)
			}
			configs[id] = c
			lookup[suits] = id
		}
		x.configs = append(x.configs, configs)
		x.lookup = append(x.lookup, lookup)
		x.sizes = append(x.sizes, total)
		prev = next
	}
	return x, nil
}

func (x *Isomorphic) Rounds() int { return len(x.groups) }

func (x *Isomorphic) CardsDealt(round int) int {
	return x.roundStart[round] + x.groups[round]
}

func (x *Isomorphic) Size(round int) uint64 {
	if round < 0 || round >= len(x.groups) {
		return 0
	}
	return x.sizes[round]
}

func (x *Isomorphic) Index(round int, cards []equity.Card) (uint64, error) {
	if err := x.checkRound(round, len(cards)); err != nil {
		return 0, err
	}
	var dead equity.CardMask
	for _, card := range cards {
		if card >= equity.NumCards || dead.Has(card) {
			return 0, fmt.Errorf("%w: %s", ErrBadCards, equity.FormatCards(cards))
		}
		dead = dead.With(card)
	}

	var used, key [numSuits]uint32
	var suitIndex [numSuits]uint64
	suitMult := [numSuits]uint64{1, 1, 1, 1}
	for r := 0; r <= round; r++ {
		var ranks, shifted [numSuits]uint32
		for _, card := range cards[x.roundStart[r] : x.roundStart[r]+x.groups[r]] {
			s, bit := card.Suit(), uint32(1)<<card.Rank()
			ranks[s] |= bit
			// Rank among the ranks this suit has not used yet.
			shifted[s] |= bit >> bits.OnesCount32(used[s]&(bit-1))
		}
		for s := range numSuits {
			n := bits.OnesCount32(ranks[s])
			suitIndex[s] += suitMult[s] * colexRank(shifted[s])
			suitMult[s] *= binomial[numRanks-bits.OnesCount32(used[s])][n]
			used[s] |= ranks[s]
			key[s] |= uint32(n) << x.shift(r)
		}
	}

	// Stable sort of suits by packed counts, largest first.
	pi := [numSuits]int{0, 1, 2, 3}
	for i := 1; i < numSuits; i++ {
		p, j := pi[i], i
		for ; j > 0 && key[p] > key[pi[j-1]]; j-- {
			pi[j] = pi[j-1]
		}
		pi[j] = p
	}
	var canon [numSuits]uint32
	for i, p := range pi {
		canon[i] = key[p]
	}
	id, ok := x.lookup[round][canon]
	if !ok {
		return 0, fmt.Errorf("%w: no configuration for %s", ErrBadCards, equity.FormatCards(cards))
	}
	c := &x.configs[round][id]

	index, mult := c.offset, uint64(1)
	for i := 0; i < numSuits; {
		j := i + 1
		for j < numSuits && c.suits[j] == c.suits[i] {
			j++
		}
		var group [numSuits]uint64
		for k := i; k < j; k++ {
			group[k-i] = suitIndex[pi[k]]
		}
		slices.Sort(group[:j-i])
		var part uint64
		for k, a := range group[:j-i] {
			v, _ := choose(a+uint64(k), k+1)
			part += v
		}
		size, _ := choose(c.suitSize[i]+uint64(j-i-1), j-i)
		index += mult * part
		mult *= size
		i = j
	}
	return index, nil
}

// Unindex writes a representative deal of index. Within each round cards are
// grouped by suit, clubs first, and increase in rank within a suit.
func (x *Isomorphic) Unindex(round int, index uint64, cards []equity.Card) error {
	if err := x.checkRound(round, len(cards)); err != nil {
		return err
	}
	if index >= x.sizes[round] {
		return fmt.Errorf("%w: %d >= %d", ErrIndexOutOfRange, index, x.sizes[round])
	}

	configs := x.configs[round]
	id := sort.Search(len(configs), func(i int) bool { return configs[i].offset > index }) - 1
	c := &configs[id]
	index -= c.offset

	var suitIndex [numSuits]uint64
	for i := 0; i < numSuits; {
		j := i + 1
		for j < numSuits && c.suits[j] == c.suits[i] {
			j++
		}
		size := c.suitSize[i]
		groupSize, _ := choose(size+uint64(j-i-1), j-i)
		rem := index % groupSize
		index /= groupSize

		// Peel off the largest member of the multiset first.
		for ; i < j-1; i++ {
			k := j - i
			n := sort.Search(int(size), func(a int) bool {
				v, ok := choose(uint64(a+k-1), k)
				return !ok || v > rem
			})
			suitIndex[i] = uint64(n - 1)
			v, _ := choose(suitIndex[i]+uint64(k-1), k)
			rem -= v
		}
		suitIndex[i] = rem
		i++
	}

	loc := slices.Clone(x.roundStart[:round+1])
	for s := range numSuits {
		var used uint32
		rest := suitIndex[s]
		for r := 0; r <= round; r++ {
			n := x.count(c.suits[s], r)
			combos := binomial[numRanks-bits.OnesCount32(used)][n]
			rank := rest % combos
			rest /= combos
			var set uint32
			for _, p := range unrankCombination(rank, n) {
				rk := nthUnset(used, p)
				set |= 1 << rk
				cards[loc[r]] = equity.Card(rk<<2 | s)
				loc[r]++
			}
			used |= set
		}
	}
	return nil
}

func (x *Isomorphic) checkRound(round, n int) error {
	if round < 0 || round >= len(x.groups) {
		return fmt.Errorf("%w: %d of %d", ErrBadRound, round, len(x.groups))
	}
	if want := x.CardsDealt(round); n != want {
		return fmt.Errorf("%w: round %d needs %d cards, got %d", ErrBadCards, round, want, n)
	}
	return nil
}

func (x *Isomorphic) shift(round int) int {
	return roundShift * (len(x.groups) - round - 1)
}

// count returns the cards a packed suit receives in round.
func (x *Isomorphic) count(packed uint32, round int) int {
	return int(packed >> x.shift(round) & roundMask)
}

// suitCards sums the per-round counts of a packed suit.
func suitCards(packed uint32) int {
	n := 0
	for ; packed != 0; packed >>= roundShift {
		n += int(packed & roundMask)
	}
	return n
}

// compositions calls fn with every way of splitting n cards among the suits.
func compositions(n int, fn func([numSuits]int)) {
	var split [numSuits]int
	var rec func(s, left int)
	rec = func(s, left int) {
		if s == numSuits-1 {
			split[s] = left
			fn(split)
			return
		}
		for k := 0; k <= left; k++ {
			split[s] = k
			rec(s+1, left-k)
		}
	}
	rec(0, n)
}

// colexRank returns the colex rank of a set of rank positions.
func colexRank(set uint32) uint64 {
	var r uint64
	for j := 1; set != 0; j++ {
		r += binomial[bits.TrailingZeros32(set)][j]
		set &= set - 1
	}
	return r
}

// nthUnset returns the p-th rank, counting from zero, not in used.
func nthUnset(used uint32, p int) int {
	for rk := range numRanks {
		if used&(1<<rk) != 0 {
			continue
		}
		if p == 0 {
			return rk
		}
		p--
	}
	return numRanks
}

// choose returns n choose k and whether it fits in a uint64.
func choose(n uint64, k int) (uint64, bool) {
	if uint64(k) > n {
		return 0, true
	}
	r := uint64(1)
	for i := uint64(1); i <= uint64(k); i++ {
		hi, lo := bits.Mul64(r, n-uint64(k)+i)
		if hi >= i {
			return 0, false
		}
		r, _ = bits.Div64(hi, lo, i)
	}
	return r, true
}

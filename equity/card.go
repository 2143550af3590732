package equity

import (
	"fmt"
	"math/bits"
	"strings"

	"github.com/paulhankin/poker"
)

const (
	// NumCards is the size of a standard deck.
	NumCards = 52

	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

// Card is a card encoded as rank<<2 | suit, with ranks 0 (deuce) to 12 (ace)
// and suits 0-3 (clubs, diamonds, hearts, spades).
type Card uint8

// NewCard builds a card from a rank in [0, 12] and a suit in [0, 3].
func NewCard(rank, suit uint8) (Card, error) {
	if rank > 12 || suit > 3 {
		return 0, fmt.Errorf("%w: rank %d suit %d", ErrBadCard, rank, suit)
	}
	return Card(rank<<2 | suit), nil
}

// ParseCard parses a two-character card such as "Ah" or "Tc".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrBadCard, s)
	}
	r := strings.IndexByte(rankChars, upper(s[0]))
	su := strings.IndexByte(suitChars, lower(s[1]))
	if r < 0 || su < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadCard, s)
	}
	return Card(r<<2 | su), nil
}

// ParseCards parses a run of concatenated cards such as "AhKd7c".
func ParseCards(s string) ([]Card, error) {
	s = strings.ReplaceAll(s, " ", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: %q", ErrBadCard, s)
	}
	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		c, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func (c Card) Rank() uint8 { return uint8(c) >> 2 }
func (c Card) Suit() uint8 { return uint8(c) & 3 }

func (c Card) String() string {
	if c >= NumCards {
		return "??"
	}
	return string([]byte{rankChars[c.Rank()], suitChars[c.Suit()]})
}

// FormatCards renders cards back to back, e.g. "AhKd7c".
func FormatCards(cards []Card) string {
	var b strings.Builder
	for _, c := range cards {
		b.WriteString(c.String())
	}
	return b.String()
}

// CardMask is a set of cards, bit i set for Card(i).
type CardMask uint64

// MaskOf returns the set holding cards.
func MaskOf(cards ...Card) CardMask {
	var m CardMask
	for _, c := range cards {
		m |= 1 << c
	}
	return m
}

func (m CardMask) Has(c Card) bool          { return m&(1<<c) != 0 }
func (m CardMask) With(c Card) CardMask     { return m | 1<<c }
func (m CardMask) Count() int               { return bits.OnesCount64(uint64(m)) }
func (m CardMask) Overlaps(o CardMask) bool { return m&o != 0 }

// Cards lists the cards in m in increasing order.
func (m CardMask) Cards() []Card {
	out := make([]Card, 0, m.Count())
	for v := uint64(m); v != 0; v &= v - 1 {
		out = append(out, Card(bits.TrailingZeros64(v)))
	}
	return out
}

// Combo is a pair of hole cards.
type Combo [2]Card

func (c Combo) Mask() CardMask { return MaskOf(c[0], c[1]) }
func (c Combo) String() string { return c[0].String() + c[1].String() }

// evalCards maps Card to the evaluator's card type.
var evalCards [NumCards]poker.Card

func init() {
	for i := range evalCards {
		c := Card(i)
		// The evaluator numbers ranks 1 (ace) to 13 (king).
		r := c.Rank() + 2
		if c.Rank() == 12 {
			r = 1
		}
		pc, err := poker.MakeCard(poker.Suit(c.Suit()), poker.Rank(r))
		if err != nil {
			panic(fmt.Sprintf("equity: cannot map card %s: %v", c, err))
		}
		evalCards[i] = pc
	}
}

// rank7 returns the strength of the best five-card hand out of seven.
// Higher is better.
func rank7(board *[5]Card, hole Combo) int16 {
	var hand [7]poker.Card
	for i, c := range board {
		hand[i] = evalCards[c]
	}
	hand[5] = evalCards[hole[0]]
	hand[6] = evalCards[hole[1]]
	return poker.Eval7(&hand)
}

// Describe names the best hand formed by five or seven cards, e.g.
// "pair of kings".
func Describe(cards []Card) (string, error) {
	if len(cards) != 5 && len(cards) != 7 {
		return "", fmt.Errorf("%w: cannot describe %d cards", ErrBadCard, len(cards))
	}
	hand := make([]poker.Card, len(cards))
	for i, c := range cards {
		if c >= NumCards {
			return "", fmt.Errorf("%w: %d", ErrBadCard, c)
		}
		hand[i] = evalCards[c]
	}
	return poker.Describe(hand)
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b - 'A' + 'a'
	}
	return b
}

package equity

import (
	"fmt"
	"strings"
)

// Range is a set of hole-card combos an opponent (or the hero) may hold.
type Range struct {
	text   string
	combos []Combo
}

// Random is the range of every possible combo.
const Random = "random"

// ParseRange parses a comma-separated range descriptor. Each term is one of:
//
//	random  every combo
//	QQ      a pocket pair (6 combos)
//	AKs     suited (4 combos)
//	AKo     offsuit (12 combos)
//	AK      suited and offsuit (16 combos)
//	AhKd    one exact combo
//
// Duplicate combos are kept once.
func ParseRange(s string) (Range, error) {
	seen := make(map[CardMask]bool)
	var combos []Combo
	add := func(a, b Card) {
		m := MaskOf(a, b)
		if !seen[m] {
			seen[m] = true
			combos = append(combos, Combo{a, b})
		}
	}

	terms := strings.Split(s, ",")
	for _, raw := range terms {
		term := strings.TrimSpace(raw)
		if err := parseTerm(term, add); err != nil {
			return Range{}, fmt.Errorf("%w: %q in %q: %v", ErrBadRange, term, s, err)
		}
	}
	return Range{text: s, combos: combos}, nil
}

func parseTerm(term string, add func(a, b Card)) error {
	if strings.EqualFold(term, Random) {
		for a := Card(0); a < NumCards; a++ {
			for b := a + 1; b < NumCards; b++ {
				add(a, b)
			}
		}
		return nil
	}

	switch len(term) {
	case 4:
		cards, err := ParseCards(term)
		if err != nil {
			return err
		}
		if cards[0] == cards[1] {
			return fmt.Errorf("card %s used twice", cards[0])
		}
		add(cards[0], cards[1])
		return nil
	case 2, 3:
		r1 := strings.IndexByte(rankChars, upper(term[0]))
		r2 := strings.IndexByte(rankChars, upper(term[1]))
		if r1 < 0 || r2 < 0 {
			return fmt.Errorf("unknown rank")
		}
		suited, offsuit := true, true
		if len(term) == 3 {
			switch lower(term[2]) {
			case 's':
				offsuit = false
			case 'o':
				suited = false
			default:
				return fmt.Errorf("unknown suffix %q", term[2])
			}
		}
		if r1 == r2 && !offsuit {
			return fmt.Errorf("a pair cannot be suited")
		}
		for s1 := 0; s1 < 4; s1++ {
			for s2 := 0; s2 < 4; s2++ {
				if r1 == r2 && s2 <= s1 {
					continue
				}
				if (s1 == s2 && !suited) || (s1 != s2 && !offsuit) {
					continue
				}
				add(Card(r1<<2|s1), Card(r2<<2|s2))
			}
		}
		return nil
	default:
		return fmt.Errorf("unrecognised term")
	}
}

// ComboRange returns the range holding exactly c.
func ComboRange(c Combo) Range {
	return Range{text: c.String(), combos: []Combo{c}}
}

// Combos returns the combos in the range. The slice must not be modified.
func (r Range) Combos() []Combo { return r.combos }

// Len returns the number of combos.
func (r Range) Len() int { return len(r.combos) }

func (r Range) String() string { return r.text }

// live returns the combos that share no card with dead.
func (r Range) live(dead CardMask) []Combo {
	var out []Combo
	for _, c := range r.combos {
		if !c.Mask().Overlaps(dead) {
			out = append(out, c)
		}
	}
	return out
}

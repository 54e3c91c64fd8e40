package domain

const (
	// BustThreshold is the highest total a hand may reach before busting.
	BustThreshold = 21
	// DealerStandTotal is the total at or above which the dealer stops drawing.
	DealerStandTotal = 17
)

// cardValue returns the initial counting value of a card: Ace counts 11,
// face cards and Ten count 10, everything else counts pip value.
func cardValue(c Card) int {
	switch r := c.Rank(); {
	case r == 0:
		return 11
	case r >= 9:
		return 10
	default:
		return r + 1
	}
}

// HandTotal computes the ace-adjusted total of a hand. Each Ace starts at 11
// and is demoted to 1 one at a time while the total exceeds 21.
func HandTotal(cards []Card) int {
	total := 0
	aces := 0
	for _, c := range cards {
		total += cardValue(c)
		if c.Rank() == 0 {
			aces++
		}
	}
	for total > BustThreshold && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBust reports whether a hand exceeds 21 after full ace adjustment.
func IsBust(cards []Card) bool {
	return HandTotal(cards) > BustThreshold
}

// DealerShouldDraw reports whether the dealer must draw another card.
// The dealer draws strictly below 17 and stands at 17 or above, including
// soft seventeens, using the same ace-adjusted scoring as players.
func DealerShouldDraw(cards []Card) bool {
	return HandTotal(cards) < DealerStandTotal
}

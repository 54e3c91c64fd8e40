package domain

import "math/rand"

// Card is a single playing card encoded as an ordinal 0..51.
// Rank is value mod 13 (0=Ace .. 12=King), suit is value div 13.
type Card byte

// DeckSize is the number of cards in a single shoe.
const DeckSize = 52

// Rank returns the card rank, 0=Ace through 12=King.
func (c Card) Rank() int {
	return int(c) % 13
}

// Suit returns the card suit, 0..3.
func (c Card) Suit() int {
	return int(c) / 13
}

// NewDeck returns an ordered 52-card deck.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for v := 0; v < DeckSize; v++ {
		deck = append(deck, Card(v))
	}
	return deck
}

// ShuffledDeck returns a freshly shuffled 52-card shoe using the given rng.
func ShuffledDeck(rng *rand.Rand) []Card {
	deck := NewDeck()
	rng.Shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

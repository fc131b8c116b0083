package games

import (
	"fmt"
	"strings"
)

// Suit is one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Rank is a card rank as printed on the card face.
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Suits in canonical deck order.
var Suits = [4]Suit{Hearts, Diamonds, Clubs, Spades}

// Ranks in canonical deck order: A, 2-10, J, Q, K
var Ranks = [13]Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}

var suitCodes = map[Suit]string{
	Hearts: "H", Diamonds: "D", Clubs: "C", Spades: "S",
}

// Card represents a playing card with rank and suit.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// String returns the short form used in records and golden files, e.g. "10C" or "AH".
func (c Card) String() string {
	return string(c.Rank) + suitCodes[c.Suit]
}

// Valid reports whether the card belongs to the canonical deck.
func (c Card) Valid() bool {
	_, okSuit := suitCodes[c.Suit]
	return okSuit && rankIndex(c.Rank) >= 0
}

// Value returns the blackjack point value of a card.
// 2-10: face value, J/Q/K: 10, A: 11 (soft)
func (c Card) Value() int {
	switch c.Rank {
	case Ace:
		return 11
	case Jack, Queen, King, Ten:
		return 10
	default:
		return rankIndex(c.Rank) + 1
	}
}

// SplitValue is the value compared when deciding whether two cards may be
// split: A=1, J/Q/K=10, otherwise face value.
func (c Card) SplitValue() int {
	if c.Rank == Ace {
		return 1
	}
	return c.Value()
}

func rankIndex(r Rank) int {
	for i, rank := range Ranks {
		if rank == r {
			return i
		}
	}
	return -1
}

// ParseCard parses the short form produced by Card.String.
func ParseCard(s string) (Card, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return Card{}, fmt.Errorf("%w: card %q too short", ErrValidation, s)
	}
	code := s[len(s)-1:]
	card := Card{Rank: Rank(s[:len(s)-1])}
	for suit, c := range suitCodes {
		if c == code {
			card.Suit = suit
		}
	}
	if !card.Valid() {
		return Card{}, fmt.Errorf("%w: unknown card %q", ErrValidation, s)
	}
	return card, nil
}

// MustParseCards parses a space separated card list and panics on error.
// Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	cards := make([]Card, len(fields))
	for i, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards[i] = c
	}
	return cards
}

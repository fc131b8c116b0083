package games

import (
	"fmt"
	"strings"

	"github.com/MJE43/pf-blackjack/internal/engine"
)

// DeckSize is the number of cards in a single deck.
const DeckSize = 52

// The full 52-card deck in canonical order: AH, 2H, ..., KH, AD, ...
var canonicalDeck [DeckSize]Card

func init() {
	i := 0
	for _, suit := range Suits {
		for _, rank := range Ranks {
			canonicalDeck[i] = Card{Suit: suit, Rank: rank}
			i++
		}
	}
}

// Deck is an ordered run of cards consumed strictly front to back.
type Deck []Card

// NewDeck returns a fresh copy of the canonical deck.
func NewDeck() Deck {
	d := make(Deck, DeckSize)
	copy(d, canonicalDeck[:])
	return d
}

// ShuffledDeck returns the provably fair deck for the given seeds and nonce.
func ShuffledDeck(seeds engine.Seeds, nonce uint64) Deck {
	return Deck(engine.Shuffle(seeds, nonce, canonicalDeck[:]))
}

// Draw returns the top card and the remaining suffix. The receiver is left
// untouched so callers can discard the result on a failed transition.
func (d Deck) Draw() (Card, Deck, error) {
	if len(d) == 0 {
		return Card{}, d, ErrDeckExhausted
	}
	return d[0], d[1:], nil
}

// Strings returns the short form of every card.
func (d Deck) Strings() []string {
	out := make([]string, len(d))
	for i, c := range d {
		out[i] = c.String()
	}
	return out
}

// String joins the short forms with spaces.
func (d Deck) String() string {
	return strings.Join(d.Strings(), " ")
}

// InitialDeal holds the four cards of the opening deal.
type InitialDeal struct {
	Player [2]Card `json:"player"`
	Dealer [2]Card `json:"dealer"`
}

// Cards returns the deal in deck order.
func (d InitialDeal) Cards() []Card {
	return []Card{d.Player[0], d.Player[1], d.Dealer[0], d.Dealer[1]}
}

// DealInitial maps deck positions {0,1} to the player and {2,3} to the
// dealer, with position 3 being the dealer's hidden card.
func DealInitial(d Deck) (InitialDeal, Deck, error) {
	if len(d) < 4 {
		return InitialDeal{}, d, fmt.Errorf("%w: need 4 cards, have %d", ErrDeckExhausted, len(d))
	}
	return InitialDeal{
		Player: [2]Card{d[0], d[1]},
		Dealer: [2]Card{d[2], d[3]},
	}, d[4:], nil
}

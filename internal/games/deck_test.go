package games

import (
	"errors"
	"strings"
	"testing"

	"github.com/MJE43/pf-blackjack/internal/engine"
)

// Golden order for server seed "s", client seed "c", nonce 1.
const referenceDeck = "4D JD AC 4S 9D 6C 8H 9C JH QH AS 4C JC 10C 5H KS 8D JS KH 6D KC 10D 7D 6H 8S 9S " +
	"3H 8C QC 2C 10S 5D 3S QS 4H 2H AD 5C 5S QD 7S 2S 3C AH 10H 2D KD 9H 3D 7C 6S 7H"

func TestNewDeckCanonicalOrder(t *testing.T) {
	d := NewDeck()
	if len(d) != DeckSize {
		t.Fatalf("expected %d cards, got %d", DeckSize, len(d))
	}
	if d[0].String() != "AH" || d[12].String() != "KH" || d[13].String() != "AD" || d[51].String() != "KS" {
		t.Errorf("unexpected canonical order: %v", d.Strings())
	}
}

func TestShuffledDeckGolden(t *testing.T) {
	d := ShuffledDeck(engine.Seeds{Server: "s", Client: "c"}, 1)
	got := strings.Join(d.Strings(), " ")
	if got != referenceDeck {
		t.Errorf("golden deck mismatch:\n got: %s\nwant: %s", got, referenceDeck)
	}
}

func TestShuffledDeckIsPermutation(t *testing.T) {
	for nonce := uint64(1); nonce <= 100; nonce++ {
		d := ShuffledDeck(engine.Seeds{Server: "server", Client: "client"}, nonce)
		seen := make(map[Card]bool, DeckSize)
		for _, c := range d {
			if !c.Valid() {
				t.Fatalf("nonce %d: invalid card %+v", nonce, c)
			}
			if seen[c] {
				t.Fatalf("nonce %d: duplicate card %s", nonce, c)
			}
			seen[c] = true
		}
		if len(seen) != DeckSize {
			t.Fatalf("nonce %d: %d distinct cards", nonce, len(seen))
		}
	}
}

func TestDealInitial(t *testing.T) {
	d := ShuffledDeck(engine.Seeds{Server: "s", Client: "c"}, 1)
	deal, rest, err := DealInitial(d)
	if err != nil {
		t.Fatalf("DealInitial: %v", err)
	}

	if deal.Player[0].String() != "4D" || deal.Player[1].String() != "JD" {
		t.Errorf("player cards = %v", deal.Player)
	}
	if deal.Dealer[0].String() != "AC" || deal.Dealer[1].String() != "4S" {
		t.Errorf("dealer cards = %v", deal.Dealer)
	}
	if len(rest) != DeckSize-4 || rest[0].String() != "9D" {
		t.Errorf("remaining deck starts wrong: %v", rest[:1])
	}
}

func TestDeckDraw(t *testing.T) {
	d := Deck(MustParseCards("KH 2C"))
	c, rest, err := d.Draw()
	if err != nil || c.String() != "KH" || len(rest) != 1 {
		t.Fatalf("Draw() = %v, %v, %v", c, rest, err)
	}
	if len(d) != 2 {
		t.Error("Draw mutated the receiver")
	}

	_, _, err = Deck{}.Draw()
	if !errors.Is(err, ErrDeckExhausted) {
		t.Errorf("expected ErrDeckExhausted, got %v", err)
	}
}

func TestParseCard(t *testing.T) {
	for _, s := range []string{"AH", "10C", "kd", " 7s "} {
		c, err := ParseCard(s)
		if err != nil {
			t.Errorf("ParseCard(%q): %v", s, err)
			continue
		}
		if !c.Valid() {
			t.Errorf("ParseCard(%q) produced invalid card", s)
		}
	}

	for _, s := range []string{"", "1H", "AX", "11S", "Z"} {
		if _, err := ParseCard(s); !errors.Is(err, ErrValidation) {
			t.Errorf("ParseCard(%q) expected validation error, got %v", s, err)
		}
	}
}

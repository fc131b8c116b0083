package games

// Evaluation is the derived value of a set of cards.
type Evaluation struct {
	Value    int  `json:"value"`
	IsSoft   bool `json:"is_soft"`
	IsBusted bool `json:"is_busted"`
}

// Evaluate computes the best blackjack total. Every ace starts at 11 and is
// reduced to 1, one at a time, while the total exceeds 21.
func Evaluate(cards []Card) Evaluation {
	total := 0
	softAces := 0
	for _, c := range cards {
		total += c.Value()
		if c.Rank == Ace {
			softAces++
		}
	}
	for total > 21 && softAces > 0 {
		total -= 10
		softAces--
	}
	return Evaluation{
		Value:    total,
		IsSoft:   softAces > 0 && total <= 21,
		IsBusted: total > 21,
	}
}

// Hand is an ordered run of cards plus values derived from it. Hands are
// rebuilt from their cards on every change, never patched in place.
type Hand struct {
	Cards       []Card `json:"cards"`
	Value       int    `json:"value"`
	IsSoft      bool   `json:"is_soft"`
	IsBusted    bool   `json:"is_busted"`
	IsBlackjack bool   `json:"is_blackjack"`
	FromSplit   bool   `json:"from_split,omitempty"`
}

// NewHand builds a hand from cards, copying the slice.
func NewHand(cards ...Card) Hand {
	return buildHand(cards, false)
}

// NewSplitHand builds a hand formed by a split. Such hands never count as
// blackjack even when they total 21 on two cards.
func NewSplitHand(cards ...Card) Hand {
	return buildHand(cards, true)
}

func buildHand(cards []Card, fromSplit bool) Hand {
	owned := make([]Card, len(cards))
	copy(owned, cards)
	ev := Evaluate(owned)
	return Hand{
		Cards:       owned,
		Value:       ev.Value,
		IsSoft:      ev.IsSoft,
		IsBusted:    ev.IsBusted,
		IsBlackjack: !fromSplit && len(owned) == 2 && ev.Value == 21,
		FromSplit:   fromSplit,
	}
}

// With returns a new hand with c appended.
func (h Hand) With(c Card) Hand {
	cards := make([]Card, 0, len(h.Cards)+1)
	cards = append(cards, h.Cards...)
	cards = append(cards, c)
	return buildHand(cards, h.FromSplit)
}

// CanSplit reports whether the hand is two cards of equal split value.
func (h Hand) CanSplit() bool {
	return len(h.Cards) == 2 && h.Cards[0].SplitValue() == h.Cards[1].SplitValue()
}

// DealerShouldHit applies the house rule: hit below 17, stand on any 17.
func DealerShouldHit(h Hand) bool {
	return h.Value < 17
}

// CanInsure reports whether the dealer up card offers insurance.
func CanInsure(up Card) bool {
	return up.Rank == Ace
}

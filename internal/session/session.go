// Package session runs live blackjack hands: it deals from a committed deck,
// applies player actions, automates the dealer and settles the result.
package session

import (
	"math/big"
	"time"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusPlaying    Status = "playing"
	StatusDealerTurn Status = "dealer-turn"
	StatusResolved   Status = "resolved"
	StatusCancelled  Status = "cancelled"
)

// Action is a player decision.
type Action string

const (
	ActionHit       Action = "hit"
	ActionStand     Action = "stand"
	ActionDouble    Action = "double"
	ActionSplit     Action = "split"
	ActionInsurance Action = "insurance"
)

// ParseAction validates an action name.
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionHit, ActionStand, ActionDouble, ActionSplit, ActionInsurance:
		return a, true
	}
	return "", false
}

// PlayerHand is one played hand with its own stake. A split produces two.
type PlayerHand struct {
	games.Hand
	Bet     *big.Int
	Doubled bool
	Done    bool
	Outcome games.Outcome
	Payout  *big.Int
}

// Session is an immutable snapshot of one hand in progress. Every transition
// produces a new snapshot; callers must treat returned sessions as read-only.
type Session struct {
	ID            string
	PlayerAddress string

	Hands            []PlayerHand
	CurrentHandIndex int
	Dealer           games.Hand // Cards[1] is the hidden card until resolution

	Status  Status
	Outcome games.Outcome
	Payout  *big.Int

	InsuranceBet    *big.Int
	InsurancePayout *big.Int

	Deck      games.Deck // full shuffled deck
	Remaining games.Deck // undealt suffix of Deck

	ServerSeed     string
	ServerSeedHash string
	ClientSeed     string
	Nonce          uint64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Terminal reports whether the session is resolved or cancelled.
func (s *Session) Terminal() bool {
	return s.Status == StatusResolved || s.Status == StatusCancelled
}

// Active returns the hand that actions currently apply to.
func (s *Session) Active() PlayerHand {
	return s.Hands[s.CurrentHandIndex]
}

// HiddenCard returns the dealer's face-down card.
func (s *Session) HiddenCard() games.Card {
	return s.Dealer.Cards[1]
}

// UpCard returns the dealer's exposed card.
func (s *Session) UpCard() games.Card {
	return s.Dealer.Cards[0]
}

// CanDouble reports whether the active hand may double: two cards, still open.
func (s *Session) CanDouble() bool {
	if s.Status != StatusPlaying {
		return false
	}
	h := s.Active()
	return !h.Done && len(h.Cards) == 2
}

// CanSplit reports whether the opening hand may split. Only one split is allowed.
func (s *Session) CanSplit() bool {
	return s.Status == StatusPlaying && len(s.Hands) == 1 && s.Hands[0].CanSplit()
}

// CanInsure reports whether insurance is still on offer: dealer shows an
// ace, the player has not acted on the opening hand and has not insured yet.
func (s *Session) CanInsure() bool {
	return s.Status == StatusPlaying &&
		s.InsuranceBet == nil &&
		len(s.Hands) == 1 &&
		len(s.Hands[0].Cards) == 2 &&
		!s.Hands[0].Done &&
		games.CanInsure(s.UpCard())
}

// Actions lists the actions currently accepted.
func (s *Session) Actions() []Action {
	if s.Status != StatusPlaying {
		return []Action{}
	}
	actions := []Action{ActionHit, ActionStand}
	if s.CanDouble() {
		actions = append(actions, ActionDouble)
	}
	if s.CanSplit() {
		actions = append(actions, ActionSplit)
	}
	if s.CanInsure() {
		actions = append(actions, ActionInsurance)
	}
	return actions
}

// TotalBet sums the stakes of every main hand.
func (s *Session) TotalBet() *big.Int {
	total := new(big.Int)
	for _, h := range s.Hands {
		total.Add(total, h.Bet)
	}
	return total
}

// Consumed returns the cards dealt so far, in deal order.
func (s *Session) Consumed() []games.Card {
	n := len(s.Deck) - len(s.Remaining)
	out := make([]games.Card, n)
	copy(out, s.Deck[:n])
	return out
}

// Record assembles the provably fair record of a terminal session,
// revealing the server seed.
func (s *Session) Record(resolvedAt time.Time) games.HandRecord {
	results := make([]games.HandResult, len(s.Hands))
	for i, h := range s.Hands {
		results[i] = games.HandResult{
			Hand:    h.Hand,
			Bet:     h.Bet,
			Outcome: h.Outcome,
			Payout:  h.Payout,
			Doubled: h.Doubled,
		}
	}
	return games.HandRecord{
		ID:              s.ID,
		PlayerAddress:   s.PlayerAddress,
		BetAmount:       s.TotalBet(),
		Payout:          s.Payout,
		Outcome:         s.Outcome,
		InsuranceBet:    s.InsuranceBet,
		InsurancePayout: s.InsurancePayout,
		DealerHand:      s.Dealer,
		Hands:           results,
		ProvablyFair: games.ProvablyFair{
			ServerSeedHash: s.ServerSeedHash,
			ServerSeed:     s.ServerSeed,
			ClientSeed:     s.ClientSeed,
			Nonce:          s.Nonce,
			Cards:          s.Consumed(),
			Verified:       engine.VerifyServerSeed(s.ServerSeed, s.ServerSeedHash),
		},
		CreatedAt:  s.CreatedAt,
		ResolvedAt: resolvedAt,
	}
}

func (s *Session) clone() *Session {
	next := *s
	next.Hands = make([]PlayerHand, len(s.Hands))
	copy(next.Hands, s.Hands)
	return &next
}

package session

import (
	"fmt"
	"math/big"

	"github.com/MJE43/pf-blackjack/internal/games"
)

// step is the result of a pure transition: the next snapshot plus the
// balance movements needed to commit it. Nothing is applied until the
// manager settles the step.
type step struct {
	next   *Session
	debit  *big.Int
	credit *big.Int
}

// transition applies one player action to s without mutating it.
func transition(s *Session, action Action, stake *big.Int, insuranceCapDivisor int64) (step, error) {
	if s.Status != StatusPlaying {
		return step{}, fmt.Errorf("%w: game is %s", games.ErrIllegalAction, s.Status)
	}

	var (
		st  step
		err error
	)
	switch action {
	case ActionHit:
		st, err = hit(s)
	case ActionStand:
		st, err = stand(s)
	case ActionDouble:
		st, err = double(s)
	case ActionSplit:
		st, err = split(s)
	case ActionInsurance:
		st, err = insure(s, stake, insuranceCapDivisor)
	default:
		return step{}, fmt.Errorf("%w: unknown action %q", games.ErrValidation, action)
	}
	if err != nil {
		return step{}, err
	}

	if st.next.Terminal() && st.next.Payout.Sign() > 0 {
		st.credit = add(st.credit, st.next.Payout)
	}
	return st, nil
}

func hit(s *Session) (step, error) {
	next := s.clone()
	i := next.CurrentHandIndex
	card, err := next.draw()
	if err != nil {
		return step{}, err
	}
	h := next.Hands[i]
	h.Hand = h.With(card)
	next.Hands[i] = h

	if h.IsBusted {
		if err := next.finishHand(); err != nil {
			return step{}, err
		}
	}
	return step{next: next}, nil
}

func stand(s *Session) (step, error) {
	next := s.clone()
	if err := next.finishHand(); err != nil {
		return step{}, err
	}
	return step{next: next}, nil
}

func double(s *Session) (step, error) {
	if !s.CanDouble() {
		return step{}, fmt.Errorf("%w: double not available", games.ErrIllegalAction)
	}
	next := s.clone()
	i := next.CurrentHandIndex
	h := next.Hands[i]
	extra := new(big.Int).Set(h.Bet)

	card, err := next.draw()
	if err != nil {
		return step{}, err
	}
	h.Hand = h.With(card)
	h.Bet = new(big.Int).Add(h.Bet, extra)
	h.Doubled = true
	next.Hands[i] = h

	if err := next.finishHand(); err != nil {
		return step{}, err
	}
	return step{next: next, debit: extra}, nil
}

func split(s *Session) (step, error) {
	if !s.CanSplit() {
		return step{}, fmt.Errorf("%w: split needs two cards of equal value", games.ErrIllegalAction)
	}
	next := s.clone()
	orig := next.Hands[0]

	first, err := next.draw()
	if err != nil {
		return step{}, err
	}
	second, err := next.draw()
	if err != nil {
		return step{}, err
	}
	next.Hands = []PlayerHand{
		{Hand: games.NewSplitHand(orig.Cards[0], first), Bet: new(big.Int).Set(orig.Bet)},
		{Hand: games.NewSplitHand(orig.Cards[1], second), Bet: new(big.Int).Set(orig.Bet)},
	}
	next.CurrentHandIndex = 0
	return step{next: next, debit: new(big.Int).Set(orig.Bet)}, nil
}

func insure(s *Session, stake *big.Int, capDivisor int64) (step, error) {
	if !s.CanInsure() {
		return step{}, fmt.Errorf("%w: insurance not available", games.ErrIllegalAction)
	}
	if stake == nil || stake.Sign() <= 0 {
		return step{}, fmt.Errorf("%w: insurance stake must be positive", games.ErrValidation)
	}
	if capDivisor > 0 {
		limit := new(big.Int).Quo(s.Hands[0].Bet, big.NewInt(capDivisor))
		if stake.Cmp(limit) > 0 {
			return step{}, fmt.Errorf("%w: insurance stake exceeds %s", games.ErrValidation, limit)
		}
	}

	next := s.clone()
	next.InsuranceBet = new(big.Int).Set(stake)
	st := step{next: next, debit: next.InsuranceBet}
	if next.Dealer.IsBlackjack {
		next.InsurancePayout = games.InsurancePayout(stake)
		st.credit = next.InsurancePayout
	} else {
		next.InsurancePayout = new(big.Int)
	}
	return st, nil
}

// cancel refunds every main stake and closes the session.
func cancel(s *Session) step {
	next := s.clone()
	for i := range next.Hands {
		h := next.Hands[i]
		h.Done = true
		h.Outcome = games.OutcomeCancelled
		h.Payout = games.Payout(h.Bet, games.OutcomeCancelled, false)
		next.Hands[i] = h
	}
	next.Status = StatusCancelled
	next.Outcome = games.OutcomeCancelled
	next.Payout = next.TotalBet()
	return step{next: next, credit: next.Payout}
}

func (s *Session) draw() (games.Card, error) {
	card, rest, err := s.Remaining.Draw()
	if err != nil {
		return games.Card{}, err
	}
	s.Remaining = rest
	return card, nil
}

// finishHand closes the active hand and moves on: to the next split hand,
// straight to resolution when every hand busted, or to dealer play.
func (s *Session) finishHand() error {
	s.Hands[s.CurrentHandIndex].Done = true
	if s.CurrentHandIndex < len(s.Hands)-1 {
		s.CurrentHandIndex++
		return nil
	}

	allBusted := true
	for _, h := range s.Hands {
		allBusted = allBusted && h.IsBusted
	}
	if !allBusted {
		s.Status = StatusDealerTurn
		if err := s.playDealer(); err != nil {
			return err
		}
	}
	s.resolve()
	return nil
}

// playDealer reveals the hidden card and draws until the dealer reaches 17.
func (s *Session) playDealer() error {
	for games.DealerShouldHit(s.Dealer) {
		card, err := s.draw()
		if err != nil {
			return err
		}
		s.Dealer = s.Dealer.With(card)
	}
	return nil
}

func (s *Session) resolve() {
	staked := new(big.Int)
	paid := new(big.Int)
	for i := range s.Hands {
		h := s.Hands[i]
		h.Outcome = games.DetermineOutcome(h.Hand, s.Dealer)
		h.Payout = games.Payout(h.Bet, h.Outcome, h.IsBlackjack)
		s.Hands[i] = h
		staked.Add(staked, h.Bet)
		paid.Add(paid, h.Payout)
	}

	s.Status = StatusResolved
	s.Payout = paid
	if len(s.Hands) == 1 {
		s.Outcome = s.Hands[0].Outcome
		return
	}
	switch paid.Cmp(staked) {
	case 1:
		s.Outcome = games.OutcomePlayerWin
	case 0:
		s.Outcome = games.OutcomePush
	default:
		s.Outcome = games.OutcomeDealerWin
	}
}

func add(a, b *big.Int) *big.Int {
	if a == nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int).Add(a, b)
}

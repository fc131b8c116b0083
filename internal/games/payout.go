package games

import "math/big"

// Outcome is the terminal result of a hand.
type Outcome string

const (
	OutcomePlayerWin Outcome = "player-win"
	OutcomeDealerWin Outcome = "dealer-win"
	OutcomePush      Outcome = "push"
	OutcomeBlackjack Outcome = "blackjack"
	OutcomeCancelled Outcome = "cancelled"
)

// DetermineOutcome compares a finished player hand with the dealer's.
// A player blackjack is checked first and wins outright against any
// dealer hand that is not itself a blackjack.
func DetermineOutcome(player, dealer Hand) Outcome {
	switch {
	case player.IsBlackjack && !dealer.IsBlackjack:
		return OutcomeBlackjack
	case dealer.IsBlackjack && !player.IsBlackjack:
		return OutcomeDealerWin
	case player.IsBusted:
		return OutcomeDealerWin
	case dealer.IsBusted:
		return OutcomePlayerWin
	case player.Value > dealer.Value:
		return OutcomePlayerWin
	case player.Value < dealer.Value:
		return OutcomeDealerWin
	default:
		return OutcomePush
	}
}

// Payout returns the amount credited back to the player for a resolved bet.
//   - push: the bet is returned
//   - dealer-win: nothing
//   - blackjack: bet * 3 / 2, truncating (odd bets lose the fractional unit)
//   - player-win: bet * 2
//   - cancelled: the bet is refunded
func Payout(bet *big.Int, outcome Outcome, isBlackjack bool) *big.Int {
	switch {
	case outcome == OutcomePush, outcome == OutcomeCancelled:
		return new(big.Int).Set(bet)
	case outcome == OutcomeDealerWin:
		return new(big.Int)
	case outcome == OutcomeBlackjack && isBlackjack:
		p := new(big.Int).Mul(bet, big.NewInt(3))
		return p.Quo(p, big.NewInt(2))
	case outcome == OutcomePlayerWin:
		return new(big.Int).Mul(bet, big.NewInt(2))
	default:
		return new(big.Int)
	}
}

// InsurancePayout returns stake * 3: the stake plus a 2:1 win.
func InsurancePayout(stake *big.Int) *big.Int {
	return new(big.Int).Mul(stake, big.NewInt(3))
}

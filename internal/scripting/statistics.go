package scripting

import (
	"math/big"

	"github.com/MJE43/pf-blackjack/internal/games"
)

// Statistics tracks simulation results across hands.
type Statistics struct {
	Hands      int `json:"hands"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
	Pushes     int `json:"pushes"`
	Blackjacks int `json:"blackjacks"`
	Cancelled  int `json:"cancelled"`

	Doubles        int `json:"doubles"`
	Splits         int `json:"splits"`
	InsuranceTaken int `json:"insuranceTaken"`
	InsuranceWon   int `json:"insuranceWon"`

	Wagered  *big.Int `json:"wagered"`  // main stakes plus insurance
	Returned *big.Int `json:"returned"` // payouts plus insurance payouts

	WinStreak  int `json:"winStreak"`
	LoseStreak int `json:"loseStreak"`
	// Positive = win streak, negative = lose streak.
	CurrentStreak int `json:"currentStreak"`
	HighestStreak int `json:"highestStreak"`
	LowestStreak  int `json:"lowestStreak"`

	Verified       int `json:"verified"`
	VerifyFailures int `json:"verifyFailures"`
}

// NewStatistics returns empty statistics.
func NewStatistics() *Statistics {
	return &Statistics{Wagered: new(big.Int), Returned: new(big.Int)}
}

// Profit is returned minus wagered.
func (s *Statistics) Profit() *big.Int {
	return new(big.Int).Sub(s.Returned, s.Wagered)
}

// RecordHand processes a settled hand and updates all statistics.
func (s *Statistics) RecordHand(rec games.HandRecord) {
	s.Hands++
	s.Wagered.Add(s.Wagered, rec.BetAmount)
	s.Returned.Add(s.Returned, rec.Payout)
	if rec.InsuranceBet != nil {
		s.InsuranceTaken++
		s.Wagered.Add(s.Wagered, rec.InsuranceBet)
		if rec.InsurancePayout != nil && rec.InsurancePayout.Sign() > 0 {
			s.InsuranceWon++
			s.Returned.Add(s.Returned, rec.InsurancePayout)
		}
	}
	if len(rec.Hands) > 1 {
		s.Splits++
	}
	for _, h := range rec.Hands {
		if h.Doubled {
			s.Doubles++
		}
	}

	switch rec.Outcome {
	case games.OutcomeBlackjack:
		s.Blackjacks++
		s.win()
	case games.OutcomePlayerWin:
		s.win()
	case games.OutcomeDealerWin:
		s.lose()
	case games.OutcomePush:
		s.Pushes++
	case games.OutcomeCancelled:
		s.Cancelled++
	}
}

func (s *Statistics) win() {
	s.Wins++
	s.WinStreak++
	s.LoseStreak = 0
	s.CurrentStreak = s.WinStreak
	if s.CurrentStreak > s.HighestStreak {
		s.HighestStreak = s.CurrentStreak
	}
}

func (s *Statistics) lose() {
	s.Losses++
	s.LoseStreak++
	s.WinStreak = 0
	s.CurrentStreak = -s.LoseStreak
	if s.CurrentStreak < s.LowestStreak {
		s.LowestStreak = s.CurrentStreak
	}
}

// Merge folds another worker's totals into s. Streaks keep the extremes.
func (s *Statistics) Merge(o *Statistics) {
	s.Hands += o.Hands
	s.Wins += o.Wins
	s.Losses += o.Losses
	s.Pushes += o.Pushes
	s.Blackjacks += o.Blackjacks
	s.Cancelled += o.Cancelled
	s.Doubles += o.Doubles
	s.Splits += o.Splits
	s.InsuranceTaken += o.InsuranceTaken
	s.InsuranceWon += o.InsuranceWon
	s.Wagered.Add(s.Wagered, o.Wagered)
	s.Returned.Add(s.Returned, o.Returned)
	s.Verified += o.Verified
	s.VerifyFailures += o.VerifyFailures
	if o.HighestStreak > s.HighestStreak {
		s.HighestStreak = o.HighestStreak
	}
	if o.LowestStreak < s.LowestStreak {
		s.LowestStreak = o.LowestStreak
	}
}

// vars exposes the statistics to nextbet().
func (s *Statistics) vars() map[string]any {
	return map[string]any{
		"hands":         s.Hands,
		"wins":          s.Wins,
		"losses":        s.Losses,
		"pushes":        s.Pushes,
		"winstreak":     s.WinStreak,
		"losestreak":    s.LoseStreak,
		"currentstreak": s.CurrentStreak,
		"wagered":       s.Wagered.String(),
		"profit":        s.Profit().String(),
	}
}

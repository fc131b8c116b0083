package session

import (
	"math/big"

	"github.com/MJE43/pf-blackjack/internal/games"
)

// HandView is the client-visible form of a player hand.
type HandView struct {
	Cards       []games.Card  `json:"cards"`
	Value       int           `json:"value"`
	IsSoft      bool          `json:"is_soft"`
	IsBusted    bool          `json:"is_busted"`
	IsBlackjack bool          `json:"is_blackjack"`
	Bet         string        `json:"bet"`
	Doubled     bool          `json:"doubled,omitempty"`
	Outcome     games.Outcome `json:"outcome,omitempty"`
	Payout      string        `json:"payout,omitempty"`
}

// DealerView shows only the up card while the hand is in play.
type DealerView struct {
	Cards       []games.Card `json:"cards"`
	Value       int          `json:"value"`
	HiddenCard  bool         `json:"hidden_card"`
	IsBlackjack bool         `json:"is_blackjack,omitempty"`
}

// View is the client-visible state of a session. The hidden dealer card and
// the server seed are withheld until the session is terminal.
type View struct {
	GameID           string        `json:"game_id"`
	Status           Status        `json:"status"`
	PlayerHands      []HandView    `json:"player_hands"`
	CurrentHandIndex int           `json:"current_hand_index"`
	DealerHand       DealerView    `json:"dealer_hand"`
	Actions          []Action      `json:"actions"`
	BetAmount        string        `json:"bet_amount"`
	InsuranceBet     string        `json:"insurance_bet,omitempty"`
	InsurancePayout  string        `json:"insurance_payout,omitempty"`
	Outcome          games.Outcome `json:"outcome,omitempty"`
	Payout           string        `json:"payout,omitempty"`
	ServerSeedHash   string        `json:"server_seed_hash"`
	ServerSeed       string        `json:"server_seed,omitempty"`
	ClientSeed       string        `json:"client_seed"`
	Nonce            uint64        `json:"nonce"`
}

// View renders the session for a client.
func (s *Session) View() View {
	v := View{
		GameID:           s.ID,
		Status:           s.Status,
		PlayerHands:      make([]HandView, len(s.Hands)),
		CurrentHandIndex: s.CurrentHandIndex,
		Actions:          s.Actions(),
		BetAmount:        s.TotalBet().String(),
		InsuranceBet:     amount(s.InsuranceBet),
		InsurancePayout:  amount(s.InsurancePayout),
		Outcome:          s.Outcome,
		Payout:           amount(s.Payout),
		ServerSeedHash:   s.ServerSeedHash,
		ClientSeed:       s.ClientSeed,
		Nonce:            s.Nonce,
	}
	for i, h := range s.Hands {
		v.PlayerHands[i] = HandView{
			Cards:       h.Cards,
			Value:       h.Value,
			IsSoft:      h.IsSoft,
			IsBusted:    h.IsBusted,
			IsBlackjack: h.IsBlackjack,
			Bet:         h.Bet.String(),
			Doubled:     h.Doubled,
			Outcome:     h.Outcome,
			Payout:      amount(h.Payout),
		}
	}

	if s.Terminal() {
		v.ServerSeed = s.ServerSeed
		v.DealerHand = DealerView{
			Cards:       s.Dealer.Cards,
			Value:       s.Dealer.Value,
			IsBlackjack: s.Dealer.IsBlackjack,
		}
	} else {
		up := s.UpCard()
		v.DealerHand = DealerView{
			Cards:      []games.Card{up},
			Value:      games.Evaluate([]games.Card{up}).Value,
			HiddenCard: true,
		}
	}
	return v
}

func amount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

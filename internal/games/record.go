package games

import (
	"math/big"
	"time"
)

// ProvablyFair is the commitment data for one hand. ServerSeed stays empty
// until the hand has resolved.
type ProvablyFair struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ServerSeed     string `json:"server_seed,omitempty"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
	Cards          []Card `json:"cards"` // consumed deck prefix, in deal order
	Verified       bool   `json:"verified"`
}

// HandResult is the settled result of one player hand. A split produces two.
type HandResult struct {
	Hand    Hand     `json:"hand"`
	Bet     *big.Int `json:"-"`
	Outcome Outcome  `json:"outcome"`
	Payout  *big.Int `json:"-"`
	Doubled bool     `json:"doubled,omitempty"`
}

// HandRecord is the durable, append-only artifact emitted when a session
// resolves or is cancelled.
type HandRecord struct {
	ID              string
	PlayerAddress   string
	BetAmount       *big.Int // total staked on main hands
	Payout          *big.Int // total credited for main hands
	Outcome         Outcome
	InsuranceBet    *big.Int // nil when not taken
	InsurancePayout *big.Int // nil when not taken
	DealerHand      Hand
	Hands           []HandResult
	ProvablyFair    ProvablyFair
	CreatedAt       time.Time
	ResolvedAt      time.Time
}

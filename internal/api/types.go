package api

import (
	"github.com/MJE43/pf-blackjack/internal/games"
	"github.com/MJE43/pf-blackjack/internal/scan"
	"github.com/MJE43/pf-blackjack/internal/session"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation   = "validation_error"
	ErrTypeUnauthorized = "missing_player"

	// Game-related errors
	ErrTypeGameNotFound      = "game_not_found"
	ErrTypeIllegalAction     = "illegal_action"
	ErrTypeInsufficientFunds = "insufficient_funds"
	ErrTypeIntegrity         = "integrity_failure"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryGame       ErrorCategory = "game"
	CategoryIntegrity  ErrorCategory = "integrity"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeUnauthorized:
		return CategoryValidation
	case ErrTypeGameNotFound, ErrTypeIllegalAction, ErrTypeInsufficientFunds:
		return CategoryGame
	case ErrTypeIntegrity:
		return CategoryIntegrity
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// NewHandRequest opens a hand. BetAmount is a decimal wei string.
type NewHandRequest struct {
	BetAmount  string `json:"bet_amount"`
	ClientSeed string `json:"client_seed"`
}

// NewHandResponse carries the commitment alongside the opening state.
type NewHandResponse struct {
	GameID         string       `json:"game_id"`
	ServerSeedHash string       `json:"server_seed_hash"`
	Nonce          uint64       `json:"nonce"`
	State          session.View `json:"state"`
}

// ActionRequest applies one player action. InsuranceBet is only read for
// the insurance action.
type ActionRequest struct {
	GameID       string `json:"game_id"`
	Action       string `json:"action"`
	InsuranceBet string `json:"insurance_bet,omitempty"`
}

// GameResponse wraps a session view.
type GameResponse struct {
	State session.View `json:"state"`
}

// BalanceResponse reports the caller's balance in wei and ether.
type BalanceResponse struct {
	Address    string `json:"address"`
	Balance    string `json:"balance"`
	BalanceETH string `json:"balance_eth"`
}

// RecordView is the client form of a stored hand record.
type RecordView struct {
	GameID          string             `json:"game_id"`
	PlayerAddress   string             `json:"player_address"`
	BetAmount       string             `json:"bet_amount"`
	Payout          string             `json:"payout"`
	Outcome         games.Outcome      `json:"outcome"`
	InsuranceBet    string             `json:"insurance_bet,omitempty"`
	InsurancePayout string             `json:"insurance_payout,omitempty"`
	DealerHand      games.Hand         `json:"dealer_hand"`
	PlayerHands     []HandResultView   `json:"player_hands"`
	ProvablyFair    games.ProvablyFair `json:"provably_fair"`
	CreatedAt       string             `json:"created_at"`
	ResolvedAt      string             `json:"resolved_at"`
}

// HandResultView is one settled player hand inside a RecordView.
type HandResultView struct {
	games.Hand
	Bet     string        `json:"bet"`
	Outcome games.Outcome `json:"outcome"`
	Payout  string        `json:"payout"`
	Doubled bool          `json:"doubled,omitempty"`
}

// HistoryResponse lists the caller's resolved hands, newest first.
type HistoryResponse struct {
	Hands []RecordView `json:"hands"`
	Count int          `json:"count"`
}

// VerifyRequest re-derives a deck from revealed seeds.
type VerifyRequest struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          uint64 `json:"nonce"`
}

// VerifyResponse reports the recomputed deck.
type VerifyResponse struct {
	Valid         bool              `json:"valid"`
	Cards         games.InitialDeal `json:"cards"`
	FullDeck      []string          `json:"full_deck"`
	EngineVersion string            `json:"engine_version"`
}

// VerifyHandResponse is the re-verification of a stored record.
type VerifyHandResponse struct {
	GameID        string            `json:"game_id"`
	Valid         bool              `json:"valid"`
	Cards         games.InitialDeal `json:"cards"`
	DealtCards    []string          `json:"dealt_cards"`
	EngineVersion string            `json:"engine_version"`
}

// ScanRequest searches revealed seeds for opening deals matching a target.
type ScanRequest struct {
	ServerSeed string `json:"server_seed"`
	ClientSeed string `json:"client_seed"`
	NonceStart uint64 `json:"nonce_start"`
	NonceEnd   uint64 `json:"nonce_end"`
	Metric     string `json:"metric"`
	TargetOp   string `json:"target_op"`
	TargetVal  int    `json:"target_val"`
	TargetVal2 int    `json:"target_val2,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	TimeoutMs  int    `json:"timeout_ms,omitempty"`
}

// ScanResponse represents the scan response
type ScanResponse struct {
	Hits          []scan.Hit   `json:"hits"`
	Summary       scan.Summary `json:"summary"`
	EngineVersion string       `json:"engine_version"`
}

// SeedHashRequest represents a seed hashing request
type SeedHashRequest struct {
	ServerSeed string `json:"server_seed"`
}

// SeedHashResponse represents a seed hashing response
type SeedHashResponse struct {
	Hash          string `json:"hash"`
	EngineVersion string `json:"engine_version"`
}

// Event is pushed to websocket subscribers.
type Event struct {
	Type string     `json:"type"`
	Hand RecordView `json:"hand"`
}

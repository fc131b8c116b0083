package store

import (
	"context"
	"errors"
	"math/big"

	"github.com/MJE43/pf-blackjack/internal/games"
)

var (
	// ErrNotFound is returned when a hand record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a hand record id or commitment is reused.
	ErrDuplicate = errors.New("record already exists")
)

// DB represents the database interface
type DB interface {
	Close() error
	Migrate(ctx context.Context) error

	GetBalance(ctx context.Context, player string) (*big.Int, error)
	SetBalance(ctx context.Context, player string, amount *big.Int) error
	Debit(ctx context.Context, player string, amount *big.Int) error
	Credit(ctx context.Context, player string, amount *big.Int) error
	NextNonce(ctx context.Context, player string) (uint64, error)

	SaveHandRecord(ctx context.Context, rec games.HandRecord) error
	GetHandRecord(ctx context.Context, id string) (games.HandRecord, error)
	ListHandRecords(ctx context.Context, player string, limit int) ([]games.HandRecord, error)
	Ping(ctx context.Context) error
}

// storedHand is the persisted form of one player hand inside hands_json.
type storedHand struct {
	Cards     string        `json:"cards"`
	FromSplit bool          `json:"from_split,omitempty"`
	Bet       string        `json:"bet"`
	Outcome   games.Outcome `json:"outcome"`
	Payout    string        `json:"payout"`
	Doubled   bool          `json:"doubled,omitempty"`
}

package session

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/MJE43/pf-blackjack/internal/games"
)

// Ledger is the external balance store. It must be strongly consistent per
// player.
type Ledger interface {
	GetBalance(ctx context.Context, player string) (*big.Int, error)
	SetBalance(ctx context.Context, player string, amount *big.Int) error
}

// AtomicLedger is implemented by ledgers that can debit and credit in a
// single operation. Debit must fail with games.ErrInsufficientFunds when
// the balance is short.
type AtomicLedger interface {
	Ledger
	Debit(ctx context.Context, player string, amount *big.Int) error
	Credit(ctx context.Context, player string, amount *big.Int) error
}

// RecordSink durably stores resolved hands. It must not return until the
// record is written.
type RecordSink interface {
	SaveHandRecord(ctx context.Context, rec games.HandRecord) error
}

// NonceSource hands out strictly increasing nonces per player.
type NonceSource interface {
	NextNonce(ctx context.Context, player string) (uint64, error)
}

// Notifier is told about every hand that leaves the live set.
type Notifier interface {
	HandResolved(rec games.HandRecord)
}

// Wallet serializes balance changes per player on top of a Ledger.
type Wallet struct {
	ledger Ledger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWallet wraps ledger.
func NewWallet(ledger Ledger) *Wallet {
	return &Wallet{ledger: ledger, locks: make(map[string]*sync.Mutex)}
}

func (w *Wallet) lock(player string) func() {
	w.mu.Lock()
	l, ok := w.locks[player]
	if !ok {
		l = &sync.Mutex{}
		w.locks[player] = l
	}
	w.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Balance returns the player's current balance.
func (w *Wallet) Balance(ctx context.Context, player string) (*big.Int, error) {
	unlock := w.lock(player)
	defer unlock()
	return w.ledger.GetBalance(ctx, player)
}

// Debit removes amount after re-reading the balance.
func (w *Wallet) Debit(ctx context.Context, player string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative debit", games.ErrValidation)
	}
	unlock := w.lock(player)
	defer unlock()

	if al, ok := w.ledger.(AtomicLedger); ok {
		return al.Debit(ctx, player, amount)
	}
	balance, err := w.ledger.GetBalance(ctx, player)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s, need %s", games.ErrInsufficientFunds, balance, amount)
	}
	return w.ledger.SetBalance(ctx, player, new(big.Int).Sub(balance, amount))
}

// Credit adds amount to the player's balance.
func (w *Wallet) Credit(ctx context.Context, player string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative credit", games.ErrValidation)
	}
	unlock := w.lock(player)
	defer unlock()

	if al, ok := w.ledger.(AtomicLedger); ok {
		return al.Credit(ctx, player, amount)
	}
	balance, err := w.ledger.GetBalance(ctx, player)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	return w.ledger.SetBalance(ctx, player, new(big.Int).Add(balance, amount))
}

// memoryNonces is the fallback NonceSource. Counters start at 1 and do not
// survive a restart; fresh server seeds per hand keep shuffles unique anyway.
type memoryNonces struct {
	mu   sync.Mutex
	next map[string]uint64
}

func (n *memoryNonces) NextNonce(_ context.Context, player string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next[player]++
	return n.next[player], nil
}

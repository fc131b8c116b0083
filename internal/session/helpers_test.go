package session

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

const testPlayer = "0x00000000000000000000000000000000000000aa"

// memLedger only implements the plain Ledger contract so the wallet's
// read-check-write path is exercised.
type memLedger struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[string]*big.Int)}
}

func (l *memLedger) GetBalance(_ context.Context, player string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[player]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (l *memLedger) SetBalance(_ context.Context, player string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[player] = new(big.Int).Set(amount)
	return nil
}

func (l *memLedger) balance(player string) int64 {
	b, _ := l.GetBalance(context.Background(), player)
	return b.Int64()
}

type memRecords struct {
	mu      sync.Mutex
	records []games.HandRecord
	fail    bool
}

func (r *memRecords) SaveHandRecord(_ context.Context, rec games.HandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("disk full")
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memRecords) all() []games.HandRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]games.HandRecord(nil), r.records...)
}

type fixture struct {
	m       *Manager
	ledger  *memLedger
	records *memRecords
	clock   *quartz.Mock
}

// newFixture builds a manager whose player starts with 1000 units. A
// non-empty deck replaces the shuffle with a stacked deck; the server seed
// is always "s" so records stay verifiable.
func newFixture(t *testing.T, deck string) *fixture {
	t.Helper()

	f := &fixture{
		ledger:  newMemLedger(),
		records: &memRecords{},
		clock:   quartz.NewMock(t),
	}
	require.NoError(t, f.ledger.SetBalance(context.Background(), testPlayer, big.NewInt(1000)))

	cfg := DefaultConfig()
	cfg.SessionTTL = 10 * time.Minute
	f.m = NewManager(cfg, f.ledger, f.records, nil, f.clock, zerolog.Nop())
	f.m.newSeed = func() (string, string, error) {
		return "s", engine.HashServerSeed("s"), nil
	}
	if deck != "" {
		stacked := games.Deck(games.MustParseCards(deck))
		f.m.shuffle = func(engine.Seeds, uint64) games.Deck { return stacked }
	}
	return f
}

func (f *fixture) start(t *testing.T, bet int64) *Session {
	t.Helper()
	s, err := f.m.Start(context.Background(), testPlayer, big.NewInt(bet), "c")
	require.NoError(t, err)
	return s
}

func (f *fixture) act(t *testing.T, id string, a Action) *Session {
	t.Helper()
	s, err := f.m.Act(context.Background(), testPlayer, id, a, nil)
	require.NoError(t, err)
	return s
}

func cardStrings(cards []games.Card) string {
	return games.Deck(cards).String()
}

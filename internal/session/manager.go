package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

// Config holds table limits and session housekeeping settings.
type Config struct {
	MinBet              *big.Int
	MaxBet              *big.Int // nil means no limit
	SessionTTL          time.Duration
	SweepInterval       time.Duration
	InsuranceCapDivisor int64 // insurance stake <= bet / divisor; 0 disables the cap
}

// DefaultConfig returns the house defaults.
func DefaultConfig() Config {
	return Config{
		MinBet:              big.NewInt(1),
		SessionTTL:          30 * time.Minute,
		SweepInterval:       time.Minute,
		InsuranceCapDivisor: 2,
	}
}

type entry struct {
	mu sync.Mutex
	s  *Session // nil once the session has left the live set
}

// Manager owns the live session set. Different sessions proceed in
// parallel; actions on one session are serialized.
type Manager struct {
	cfg      Config
	wallet   *Wallet
	records  RecordSink
	nonces   NonceSource
	notifier Notifier
	clock    quartz.Clock
	log      zerolog.Logger

	newSeed func() (string, string, error)
	shuffle func(engine.Seeds, uint64) games.Deck

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewManager creates a manager. A nil nonces falls back to in-memory
// counters.
func NewManager(cfg Config, ledger Ledger, records RecordSink, nonces NonceSource, clock quartz.Clock, logger zerolog.Logger) *Manager {
	if nonces == nil {
		nonces = &memoryNonces{next: make(map[string]uint64)}
	}
	return &Manager{
		cfg:      cfg,
		wallet:   NewWallet(ledger),
		records:  records,
		nonces:   nonces,
		clock:    clock,
		log:      logger.With().Str("component", "session").Logger(),
		newSeed:  engine.NewServerSeed,
		shuffle:  games.ShuffledDeck,
		sessions: make(map[string]*entry),
	}
}

// SetNotifier registers a listener for resolved hands.
func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

// Wallet exposes the serialized balance view used by the manager.
func (m *Manager) Wallet() *Wallet {
	return m.wallet
}

// Start opens a new hand: validates the bet and client seed, commits to a
// fresh server seed, debits the bet and deals the opening cards.
func (m *Manager) Start(ctx context.Context, player string, bet *big.Int, clientSeed string) (*Session, error) {
	if player == "" {
		return nil, fmt.Errorf("%w: missing player address", games.ErrValidation)
	}
	if err := m.validateBet(bet); err != nil {
		return nil, err
	}
	if err := ValidateClientSeed(clientSeed); err != nil {
		return nil, err
	}

	nonce, err := m.nonces.NextNonce(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("next nonce: %w", err)
	}
	seed, hash, err := m.newSeed()
	if err != nil {
		return nil, fmt.Errorf("server seed: %w", err)
	}

	deck := m.shuffle(engine.Seeds{Server: seed, Client: clientSeed}, nonce)
	deal, rest, err := games.DealInitial(deck)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	s := &Session{
		ID:             uuid.NewString(),
		PlayerAddress:  player,
		Hands:          []PlayerHand{{Hand: games.NewHand(deal.Player[:]...), Bet: new(big.Int).Set(bet)}},
		Dealer:         games.NewHand(deal.Dealer[:]...),
		Status:         StatusPlaying,
		Deck:           deck,
		Remaining:      rest,
		ServerSeed:     seed,
		ServerSeedHash: hash,
		ClientSeed:     clientSeed,
		Nonce:          nonce,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := m.wallet.Debit(ctx, player, bet); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID] = &entry{s: s}
	m.mu.Unlock()

	m.log.Info().
		Str("game_id", s.ID).
		Str("player", player).
		Str("bet", bet.String()).
		Str("server_seed_hash", hash).
		Uint64("nonce", nonce).
		Msg("hand_started")
	return s, nil
}

// Act applies one action to the caller's session. On any error the session
// and balances are left exactly as they were.
func (m *Manager) Act(ctx context.Context, player, id string, action Action, insuranceStake *big.Int) (*Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.s
	if s == nil {
		return nil, games.ErrSessionNotFound
	}
	if s.PlayerAddress != player {
		return nil, games.ErrNotOwner
	}

	st, err := transition(s, action, insuranceStake, m.cfg.InsuranceCapDivisor)
	if err != nil {
		return nil, err
	}
	st.next.UpdatedAt = m.clock.Now()
	if err := m.settle(ctx, st); err != nil {
		return nil, err
	}

	m.log.Debug().
		Str("game_id", id).
		Str("action", string(action)).
		Str("status", string(st.next.Status)).
		Msg("action_applied")

	if st.next.Terminal() {
		m.retire(id, e)
	} else {
		e.s = st.next
	}
	return st.next, nil
}

// Get returns the caller's live session.
func (m *Manager) Get(player, id string) (*Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s == nil {
		return nil, games.ErrSessionNotFound
	}
	if e.s.PlayerAddress != player {
		return nil, games.ErrNotOwner
	}
	return e.s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ExpireIdle cancels every session idle for at least the configured TTL,
// refunding its stakes. It returns the number of sessions cancelled.
func (m *Manager) ExpireIdle(ctx context.Context) int {
	if m.cfg.SessionTTL <= 0 {
		return 0
	}

	m.mu.RLock()
	entries := make(map[string]*entry, len(m.sessions))
	for id, e := range m.sessions {
		entries[id] = e
	}
	m.mu.RUnlock()

	now := m.clock.Now()
	expired := 0
	for id, e := range entries {
		e.mu.Lock()
		s := e.s
		if s == nil || now.Sub(s.UpdatedAt) < m.cfg.SessionTTL {
			e.mu.Unlock()
			continue
		}

		st := cancel(s)
		st.next.UpdatedAt = now
		if err := m.settle(ctx, st); err != nil {
			m.log.Error().Err(err).Str("game_id", id).Msg("session_expiry_failed")
			e.mu.Unlock()
			continue
		}
		m.retire(id, e)
		e.mu.Unlock()

		expired++
		m.log.Info().
			Str("game_id", id).
			Str("player", s.PlayerAddress).
			Str("refund", st.next.Payout.String()).
			Msg("session_expired")
	}
	return expired
}

// Run sweeps idle sessions every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.SweepInterval <= 0 || m.cfg.SessionTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	w := m.clock.TickerFunc(ctx, m.cfg.SweepInterval, func() error {
		m.ExpireIdle(ctx)
		return nil
	}, "session", "sweep")

	err := w.Wait()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, games.ErrSessionNotFound
	}
	return e, nil
}

// retire removes a terminal session. Caller holds e.mu.
func (m *Manager) retire(id string, e *entry) {
	e.s = nil
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// settle commits a step: debit, credit, then the durable record for terminal
// sessions. Any failure rolls back the balance movements already applied.
func (m *Manager) settle(ctx context.Context, st step) error {
	player := st.next.PlayerAddress

	if positive(st.debit) {
		if err := m.wallet.Debit(ctx, player, st.debit); err != nil {
			return err
		}
	}
	if positive(st.credit) {
		if err := m.wallet.Credit(ctx, player, st.credit); err != nil {
			m.compensate(ctx, player, st.debit, nil)
			return fmt.Errorf("credit payout: %w", err)
		}
	}

	if !st.next.Terminal() {
		return nil
	}
	rec := st.next.Record(st.next.UpdatedAt)
	if err := m.records.SaveHandRecord(ctx, rec); err != nil {
		m.compensate(ctx, player, st.debit, st.credit)
		return fmt.Errorf("save hand record: %w", err)
	}

	m.log.Info().
		Str("game_id", rec.ID).
		Str("player", player).
		Str("outcome", string(rec.Outcome)).
		Str("bet", rec.BetAmount.String()).
		Str("payout", rec.Payout.String()).
		Msg("hand_resolved")
	if m.notifier != nil {
		m.notifier.HandResolved(rec)
	}
	return nil
}

func (m *Manager) compensate(ctx context.Context, player string, debited, credited *big.Int) {
	if positive(credited) {
		if err := m.wallet.Debit(ctx, player, credited); err != nil {
			m.log.Error().Err(err).Str("player", player).Str("amount", credited.String()).Msg("compensation_failed")
		}
	}
	if positive(debited) {
		if err := m.wallet.Credit(ctx, player, debited); err != nil {
			m.log.Error().Err(err).Str("player", player).Str("amount", debited.String()).Msg("compensation_failed")
		}
	}
}

func (m *Manager) validateBet(bet *big.Int) error {
	if bet == nil || bet.Sign() <= 0 {
		return fmt.Errorf("%w: bet must be a positive integer", games.ErrValidation)
	}
	if m.cfg.MinBet != nil && bet.Cmp(m.cfg.MinBet) < 0 {
		return fmt.Errorf("%w: bet below minimum %s", games.ErrValidation, m.cfg.MinBet)
	}
	if m.cfg.MaxBet != nil && bet.Cmp(m.cfg.MaxBet) > 0 {
		return fmt.Errorf("%w: bet above maximum %s", games.ErrValidation, m.cfg.MaxBet)
	}
	return nil
}

// ValidateClientSeed rejects empty, oversized or non-printable client seeds.
func ValidateClientSeed(seed string) error {
	if strings.TrimSpace(seed) == "" {
		return fmt.Errorf("%w: client seed is required", games.ErrValidation)
	}
	if len(seed) > engine.MaxClientSeedLen {
		return fmt.Errorf("%w: client seed longer than %d bytes", games.ErrValidation, engine.MaxClientSeedLen)
	}
	for _, r := range seed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: client seed contains control characters", games.ErrValidation)
		}
	}
	return nil
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}

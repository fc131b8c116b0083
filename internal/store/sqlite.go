package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/MJE43/pf-blackjack/internal/games"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

var _ DB = (*SQLiteDB)(nil)

// NewSQLiteDB opens or creates the database at path and runs migrations.
// ":memory:" gives a private in-memory database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := "file::memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes

	s := &SQLiteDB{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies pending migrations. It is safe to call repeatedly.
func (s *SQLiteDB) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// --------- Balances ---------

// GetBalance returns the player's balance; unknown players have zero.
func (s *SQLiteDB) GetBalance(ctx context.Context, player string) (*big.Int, error) {
	return getBalance(ctx, s.db, player)
}

// SetBalance overwrites the player's balance.
func (s *SQLiteDB) SetBalance(ctx context.Context, player string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative balance", games.ErrValidation)
	}
	return setBalance(ctx, s.db, player, amount)
}

// Debit subtracts amount in one transaction, failing with
// games.ErrInsufficientFunds when the balance is short.
func (s *SQLiteDB) Debit(ctx context.Context, player string, amount *big.Int) error {
	return s.adjust(ctx, player, func(balance *big.Int) (*big.Int, error) {
		if balance.Cmp(amount) < 0 {
			return nil, fmt.Errorf("%w: balance %s, need %s", games.ErrInsufficientFunds, balance, amount)
		}
		return new(big.Int).Sub(balance, amount), nil
	})
}

// Credit adds amount in one transaction.
func (s *SQLiteDB) Credit(ctx context.Context, player string, amount *big.Int) error {
	return s.adjust(ctx, player, func(balance *big.Int) (*big.Int, error) {
		return new(big.Int).Add(balance, amount), nil
	})
}

func (s *SQLiteDB) adjust(ctx context.Context, player string, fn func(*big.Int) (*big.Int, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	balance, err := getBalance(ctx, tx, player)
	if err != nil {
		return err
	}
	next, err := fn(balance)
	if err != nil {
		return err
	}
	if err := setBalance(ctx, tx, player, next); err != nil {
		return err
	}
	return tx.Commit()
}

// NextNonce increments and returns the player's hand counter. The first
// hand of a new player gets nonce 1.
func (s *SQLiteDB) NextNonce(ctx context.Context, player string) (uint64, error) {
	now := time.Now().UTC()
	var nonce int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players(address, balance, nonce, created_at, last_active_at)
		VALUES(?, '0', 1, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			nonce = players.nonce + 1,
			last_active_at = excluded.last_active_at
		RETURNING nonce`, player, now, now).Scan(&nonce)
	if err != nil {
		return 0, fmt.Errorf("next nonce: %w", err)
	}
	return uint64(nonce), nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getBalance(ctx context.Context, q querier, player string) (*big.Int, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT balance FROM players WHERE address=?`, player).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return parseAmount(raw)
}

func setBalance(ctx context.Context, q querier, player string, amount *big.Int) error {
	now := time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO players(address, balance, nonce, created_at, last_active_at)
		VALUES(?, ?, 0, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			balance = excluded.balance,
			last_active_at = excluded.last_active_at`,
		player, amount.String(), now, now)
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// --------- Hand records ---------

// SaveHandRecord appends a resolved hand. Records are never updated; a
// second save with the same id fails with ErrDuplicate.
func (s *SQLiteDB) SaveHandRecord(ctx context.Context, rec games.HandRecord) error {
	hands := make([]storedHand, len(rec.Hands))
	for i, h := range rec.Hands {
		hands[i] = storedHand{
			Cards:     games.Deck(h.Hand.Cards).String(),
			FromSplit: h.Hand.FromSplit,
			Bet:       h.Bet.String(),
			Outcome:   h.Outcome,
			Payout:    h.Payout.String(),
			Doubled:   h.Doubled,
		}
	}
	handsJSON, err := json.Marshal(hands)
	if err != nil {
		return err
	}

	pf := rec.ProvablyFair
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hand_records(
			id, player_address, bet_amount, payout, outcome, insurance_bet, insurance_payout,
			dealer_cards, hands_json, server_seed_hash, server_seed, client_seed, nonce, cards,
			verified, created_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PlayerAddress, rec.BetAmount.String(), rec.Payout.String(), string(rec.Outcome),
		nullAmount(rec.InsuranceBet), nullAmount(rec.InsurancePayout),
		games.Deck(rec.DealerHand.Cards).String(), string(handsJSON),
		pf.ServerSeedHash, pf.ServerSeed, pf.ClientSeed, int64(pf.Nonce), games.Deck(pf.Cards).String(),
		pf.Verified, rec.CreatedAt.UTC(), rec.ResolvedAt.UTC())
	if err != nil {
		if isConstraintErr(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.ID)
		}
		return fmt.Errorf("save hand record: %w", err)
	}
	return nil
}

const recordColumns = `id, player_address, bet_amount, payout, outcome, insurance_bet, insurance_payout,
	dealer_cards, hands_json, server_seed_hash, server_seed, client_seed, nonce, cards,
	verified, created_at, resolved_at`

// GetHandRecord loads one record by id.
func (s *SQLiteDB) GetHandRecord(ctx context.Context, id string) (games.HandRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM hand_records WHERE id=?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return games.HandRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// ListHandRecords returns the player's records, newest first.
func (s *SQLiteDB) ListHandRecords(ctx context.Context, player string, limit int) ([]games.HandRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM hand_records
		WHERE player_address=?
		ORDER BY resolved_at DESC, rowid DESC
		LIMIT ?`, player, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []games.HandRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (games.HandRecord, error) {
	var (
		rec                          games.HandRecord
		bet, payout, outcome         string
		insBet, insPayout            sql.NullString
		dealerCards, handsJSON, deck string
		nonce                        int64
	)
	err := row.Scan(&rec.ID, &rec.PlayerAddress, &bet, &payout, &outcome, &insBet, &insPayout,
		&dealerCards, &handsJSON, &rec.ProvablyFair.ServerSeedHash, &rec.ProvablyFair.ServerSeed,
		&rec.ProvablyFair.ClientSeed, &nonce, &deck, &rec.ProvablyFair.Verified,
		&rec.CreatedAt, &rec.ResolvedAt)
	if err != nil {
		return games.HandRecord{}, err
	}

	rec.Outcome = games.Outcome(outcome)
	rec.ProvablyFair.Nonce = uint64(nonce)
	if rec.BetAmount, err = parseAmount(bet); err != nil {
		return games.HandRecord{}, err
	}
	if rec.Payout, err = parseAmount(payout); err != nil {
		return games.HandRecord{}, err
	}
	if insBet.Valid {
		if rec.InsuranceBet, err = parseAmount(insBet.String); err != nil {
			return games.HandRecord{}, err
		}
	}
	if insPayout.Valid {
		if rec.InsurancePayout, err = parseAmount(insPayout.String); err != nil {
			return games.HandRecord{}, err
		}
	}
	if rec.ProvablyFair.Cards, err = parseCards(deck); err != nil {
		return games.HandRecord{}, err
	}
	dealer, err := parseCards(dealerCards)
	if err != nil {
		return games.HandRecord{}, err
	}
	rec.DealerHand = games.NewHand(dealer...)

	var hands []storedHand
	if err := json.Unmarshal([]byte(handsJSON), &hands); err != nil {
		return games.HandRecord{}, fmt.Errorf("decode hands: %w", err)
	}
	rec.Hands = make([]games.HandResult, len(hands))
	for i, h := range hands {
		cards, err := parseCards(h.Cards)
		if err != nil {
			return games.HandRecord{}, err
		}
		hand := games.NewHand(cards...)
		if h.FromSplit {
			hand = games.NewSplitHand(cards...)
		}
		res := games.HandResult{Hand: hand, Outcome: h.Outcome, Doubled: h.Doubled}
		if res.Bet, err = parseAmount(h.Bet); err != nil {
			return games.HandRecord{}, err
		}
		if res.Payout, err = parseAmount(h.Payout); err != nil {
			return games.HandRecord{}, err
		}
		rec.Hands[i] = res
	}
	return rec, nil
}

// --------- helpers ---------

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt amount %q", s)
	}
	return v, nil
}

func nullAmount(v *big.Int) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: v.String(), Valid: true}
}

func parseCards(s string) ([]games.Card, error) {
	fields := strings.Fields(s)
	cards := make([]games.Card, len(fields))
	for i, f := range fields {
		c, err := games.ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}

func isConstraintErr(err error) bool {
	// modernc sqlite reports "constraint failed" / "UNIQUE constraint failed"
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "constraint failed") || strings.Contains(msg, "unique constraint")
}

package store

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleRecord(id, player string, nonce uint64, resolved time.Time) games.HandRecord {
	seed := "s"
	return games.HandRecord{
		ID:            id,
		PlayerAddress: player,
		BetAmount:     big.NewInt(200),
		Payout:        big.NewInt(200),
		Outcome:       games.OutcomePush,
		DealerHand:    games.NewHand(games.MustParseCards("KD 7C")...),
		Hands: []games.HandResult{
			{
				Hand:    games.NewSplitHand(games.MustParseCards("AS KC")...),
				Bet:     big.NewInt(100),
				Outcome: games.OutcomePlayerWin,
				Payout:  big.NewInt(200),
			},
			{
				Hand:    games.NewSplitHand(games.MustParseCards("AH 5D")...),
				Bet:     big.NewInt(100),
				Outcome: games.OutcomeDealerWin,
				Payout:  big.NewInt(0),
			},
		},
		ProvablyFair: games.ProvablyFair{
			ServerSeedHash: engine.HashServerSeed(seed),
			ServerSeed:     seed,
			ClientSeed:     "c",
			Nonce:          nonce,
			Cards:          games.MustParseCards("AS AH KD 7C KC 5D"),
			Verified:       true,
		},
		CreatedAt:  resolved.Add(-time.Minute),
		ResolvedAt: resolved,
	}
}

func TestMigrationIdempotency(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := db.Migrate(ctx); err != nil {
			t.Fatalf("Failed to migrate on pass %d: %v", i+1, err)
		}
	}
	if err := db.SetBalance(ctx, "p", big.NewInt(5)); err != nil {
		t.Fatalf("Failed to use database after migrations: %v", err)
	}
}

func TestInMemoryDatabasesAreIsolated(t *testing.T) {
	ctx := context.Background()
	a, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if err := a.SetBalance(ctx, "p", big.NewInt(7)); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetBalance(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if got.Sign() != 0 {
		t.Errorf("expected separate databases, got balance %s", got)
	}
}

func TestBalances(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	got, err := db.GetBalance(ctx, "p")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if got.Sign() != 0 {
		t.Errorf("unknown player should have zero balance, got %s", got)
	}

	wei, _ := new(big.Int).SetString("5000000000000000000000", 10)
	if err := db.SetBalance(ctx, "p", wei); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := db.Credit(ctx, "p", big.NewInt(1)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := db.Debit(ctx, "p", big.NewInt(2)); err != nil {
		t.Fatalf("Debit: %v", err)
	}

	got, _ = db.GetBalance(ctx, "p")
	if got.String() != "4999999999999999999999" {
		t.Errorf("balance = %s", got)
	}

	err = db.Debit(ctx, "p", wei)
	if !errors.Is(err, games.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	got, _ = db.GetBalance(ctx, "p")
	if got.String() != "4999999999999999999999" {
		t.Errorf("failed debit changed balance to %s", got)
	}

	if err := db.SetBalance(ctx, "p", big.NewInt(-1)); !errors.Is(err, games.ErrValidation) {
		t.Errorf("expected ErrValidation for negative balance, got %v", err)
	}
}

func TestConcurrentDebits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if err := db.SetBalance(ctx, "p", big.NewInt(100)); err != nil {
		t.Fatal(err)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if db.Debit(ctx, "p", big.NewInt(10)) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Errorf("expected 10 successful debits, got %d", ok)
	}
	got, _ := db.GetBalance(ctx, "p")
	if got.Sign() != 0 {
		t.Errorf("expected empty balance, got %s", got)
	}
}

func TestNextNonce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetBalance(ctx, "b", big.NewInt(50)); err != nil {
		t.Fatal(err)
	}
	for want := uint64(1); want <= 3; want++ {
		got, err := db.NextNonce(ctx, "a")
		if err != nil {
			t.Fatalf("NextNonce: %v", err)
		}
		if got != want {
			t.Errorf("nonce for a = %d, want %d", got, want)
		}
	}
	got, err := db.NextNonce(ctx, "b")
	if err != nil || got != 1 {
		t.Errorf("nonce for b = %d, %v; want 1", got, err)
	}

	balance, _ := db.GetBalance(ctx, "b")
	if balance.Int64() != 50 {
		t.Errorf("NextNonce changed balance to %s", balance)
	}
}

func TestHandRecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	resolved := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := sampleRecord("g1", "p", 1, resolved)
	rec.InsuranceBet = big.NewInt(50)
	rec.InsurancePayout = big.NewInt(0)
	if err := db.SaveHandRecord(ctx, rec); err != nil {
		t.Fatalf("SaveHandRecord: %v", err)
	}

	got, err := db.GetHandRecord(ctx, "g1")
	if err != nil {
		t.Fatalf("GetHandRecord: %v", err)
	}

	if got.PlayerAddress != "p" || got.Outcome != games.OutcomePush {
		t.Errorf("unexpected record header: %+v", got)
	}
	if got.BetAmount.Int64() != 200 || got.Payout.Int64() != 200 {
		t.Errorf("amounts = %s / %s", got.BetAmount, got.Payout)
	}
	if got.InsuranceBet.Int64() != 50 || got.InsurancePayout.Sign() != 0 {
		t.Errorf("insurance = %v / %v", got.InsuranceBet, got.InsurancePayout)
	}
	if games.Deck(got.ProvablyFair.Cards).String() != "AS AH KD 7C KC 5D" {
		t.Errorf("cards = %v", got.ProvablyFair.Cards)
	}
	if got.ProvablyFair.Nonce != 1 || !got.ProvablyFair.Verified || got.ProvablyFair.ServerSeed != "s" {
		t.Errorf("provably fair = %+v", got.ProvablyFair)
	}
	if len(got.Hands) != 2 {
		t.Fatalf("expected 2 hands, got %d", len(got.Hands))
	}
	if got.Hands[0].Hand.IsBlackjack || !got.Hands[0].Hand.FromSplit || got.Hands[0].Hand.Value != 21 {
		t.Errorf("split hand not restored: %+v", got.Hands[0].Hand)
	}
	if got.Hands[1].Outcome != games.OutcomeDealerWin || got.Hands[1].Payout.Sign() != 0 {
		t.Errorf("second hand = %+v", got.Hands[1])
	}
	if got.DealerHand.Value != 17 {
		t.Errorf("dealer value = %d", got.DealerHand.Value)
	}
	if !got.ResolvedAt.Equal(resolved) {
		t.Errorf("resolved_at = %v, want %v", got.ResolvedAt, resolved)
	}
}

func TestHandRecordWithoutInsurance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SaveHandRecord(ctx, sampleRecord("g1", "p", 1, time.Now())); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetHandRecord(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if got.InsuranceBet != nil || got.InsurancePayout != nil {
		t.Errorf("expected nil insurance, got %v / %v", got.InsuranceBet, got.InsurancePayout)
	}
}

func TestHandRecordsAreAppendOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	rec := sampleRecord("g1", "p", 1, time.Now())

	if err := db.SaveHandRecord(ctx, rec); err != nil {
		t.Fatal(err)
	}
	rec.Payout = big.NewInt(1_000_000)
	if err := db.SaveHandRecord(ctx, rec); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	got, _ := db.GetHandRecord(ctx, "g1")
	if got.Payout.Int64() != 200 {
		t.Errorf("record was overwritten: payout %s", got.Payout)
	}

	if _, err := db.GetHandRecord(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListHandRecords(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		rec := sampleRecord("p-"+string(rune('a'+i)), "p", uint64(i+1), base.Add(time.Duration(i)*time.Minute))
		if err := db.SaveHandRecord(ctx, rec); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	if err := db.SaveHandRecord(ctx, sampleRecord("q-a", "q", 1, base)); err == nil {
		// same seed, client seed and nonce as p-a
		t.Fatal("expected commitment reuse to be rejected")
	}
	other := sampleRecord("q-a", "q", 99, base)
	if err := db.SaveHandRecord(ctx, other); err != nil {
		t.Fatal(err)
	}

	recs, err := db.ListHandRecords(ctx, "p", 3)
	if err != nil {
		t.Fatalf("ListHandRecords: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	for i, want := range []string{"p-e", "p-d", "p-c"} {
		if recs[i].ID != want {
			t.Errorf("record %d = %s, want %s", i, recs[i].ID, want)
		}
	}

	recs, _ = db.ListHandRecords(ctx, "nobody", 0)
	if recs == nil || len(recs) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", recs)
	}
}

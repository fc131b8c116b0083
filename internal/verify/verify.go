// Package verify independently reproduces a hand from its revealed seeds.
package verify

import (
	"fmt"
	"strings"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
)

// Result is the outcome of a verification run.
type Result struct {
	Valid        bool              `json:"valid"`
	InitialCards games.InitialDeal `json:"initial_cards"`
	Deck         games.Deck        `json:"full_deck"`
}

// Verify checks the server seed against its commitment and recomputes the
// deck. A commitment mismatch is reported as games.ErrHashMismatch.
func Verify(serverSeed, serverSeedHash, clientSeed string, nonce uint64) (Result, error) {
	if serverSeed == "" || serverSeedHash == "" {
		return Result{}, fmt.Errorf("%w: server seed and hash are required", games.ErrValidation)
	}
	if !engine.VerifyServerSeed(serverSeed, serverSeedHash) {
		return Result{}, fmt.Errorf("%w: expected %s, got %s",
			games.ErrHashMismatch, strings.ToLower(strings.TrimSpace(serverSeedHash)), engine.HashServerSeed(serverSeed))
	}

	deck := games.ShuffledDeck(engine.Seeds{Server: serverSeed, Client: clientSeed}, nonce)
	deal, _, err := games.DealInitial(deck)
	if err != nil {
		return Result{}, err
	}
	return Result{Valid: true, InitialCards: deal, Deck: deck}, nil
}

// VerifyRecord verifies a stored hand: the commitment must hold and every
// recorded card must match the recomputed deck position by position.
func VerifyRecord(rec games.HandRecord) (Result, error) {
	pf := rec.ProvablyFair
	if pf.ServerSeed == "" {
		return Result{}, fmt.Errorf("%w: server seed not revealed yet", games.ErrValidation)
	}
	res, err := Verify(pf.ServerSeed, pf.ServerSeedHash, pf.ClientSeed, pf.Nonce)
	if err != nil {
		return Result{}, err
	}
	if err := MatchCards(res.Deck, pf.Cards); err != nil {
		return Result{}, err
	}
	return res, nil
}

// MatchCards checks that dealt is a prefix of deck and covers at least the
// opening deal.
func MatchCards(deck games.Deck, dealt []games.Card) error {
	if len(dealt) < 4 {
		return fmt.Errorf("%w: record holds %d cards, opening deal needs 4", games.ErrCardMismatch, len(dealt))
	}
	if len(dealt) > len(deck) {
		return fmt.Errorf("%w: record holds %d cards, deck has %d", games.ErrCardMismatch, len(dealt), len(deck))
	}
	for i, c := range dealt {
		if deck[i] != c {
			return fmt.Errorf("%w: position %d recorded %s, recomputed %s", games.ErrCardMismatch, i, c, deck[i])
		}
	}
	return nil
}

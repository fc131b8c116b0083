package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"

	"github.com/MJE43/pf-blackjack/internal/config"
	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
	"github.com/MJE43/pf-blackjack/internal/store"
	"github.com/MJE43/pf-blackjack/internal/verify"
)

// VerifyCmd recomputes a deck either from explicit seeds or from a hand
// stored in the database.
type VerifyCmd struct {
	ServerSeed string `kong:"name='server-seed',help='Revealed server seed'"`
	Hash       string `kong:"help='Committed server seed hash (defaults to the hash of --server-seed)'"`
	ClientSeed string `kong:"name='client-seed',help='Client seed'"`
	Nonce      uint64 `kong:"help='Hand nonce'"`
	Game       string `kong:"help='Verify a stored hand by game id instead'"`
	DB         string `kong:"name='db',help='SQLite database path for --game (overrides storage.path)'"`
}

func (c *VerifyCmd) Run(g *Globals) error {
	if c.Game != "" {
		return c.verifyStored(g)
	}
	if c.ServerSeed == "" || c.ClientSeed == "" {
		return errors.New("--server-seed and --client-seed are required unless --game is given")
	}
	hash := c.Hash
	if hash == "" {
		hash = engine.HashServerSeed(c.ServerSeed)
	}

	res, err := verify.Verify(c.ServerSeed, hash, c.ClientSeed, c.Nonce)
	if err != nil {
		pterm.Error.Println(err)
		return err
	}
	pterm.Success.Printfln("server seed matches commitment %s", hash)
	return renderDeck(res, nil)
}

func (c *VerifyCmd) verifyStored(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	if c.DB != "" {
		cfg.Storage.Path = c.DB
	}
	db, err := store.NewSQLiteDB(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	rec, err := db.GetHandRecord(ctx, c.Game)
	if err != nil {
		return fmt.Errorf("load hand %s: %w", c.Game, err)
	}

	res, err := verify.VerifyRecord(rec)
	if err != nil {
		pterm.Error.Printfln("hand %s failed verification: %v", rec.ID, err)
		return err
	}
	pterm.Success.Printfln("hand %s verified (%s, nonce %d)", rec.ID, rec.Outcome, rec.ProvablyFair.Nonce)
	return renderDeck(res, rec.ProvablyFair.Cards)
}

// renderDeck prints the opening deal and the deck in rows of 13. Cards
// consumed by the hand are highlighted.
func renderDeck(res verify.Result, dealt []games.Card) error {
	deal := pterm.TableData{
		{"Seat", "Card 1", "Card 2"},
		{"Player", res.InitialCards.Player[0].String(), res.InitialCards.Player[1].String()},
		{"Dealer", res.InitialCards.Dealer[0].String(), res.InitialCards.Dealer[1].String()},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(deal).Render(); err != nil {
		return err
	}

	cards := res.Deck.Strings()
	rows := pterm.TableData{}
	for start := 0; start < len(cards); start += 13 {
		row := []string{fmt.Sprintf("%2d-%2d", start, start+12)}
		for i, c := range cards[start : start+13] {
			if start+i < len(dealt) {
				c = pterm.LightGreen(c)
			}
			row = append(row, c)
		}
		rows = append(rows, row)
	}
	pterm.DefaultSection.Println("Shuffled deck")
	return pterm.DefaultTable.WithData(rows).Render()
}

// HashCmd prints the commitment for a seed.
type HashCmd struct {
	Seed string `kong:"arg,optional,help='Server seed to hash'"`
	New  bool   `kong:"help='Generate a fresh server seed and print it with its hash'"`
}

func (c *HashCmd) Run() error {
	if c.New {
		seed, hash, err := engine.NewServerSeed()
		if err != nil {
			return err
		}
		fmt.Printf("seed %s\nhash %s\n", seed, hash)
		return nil
	}
	if strings.TrimSpace(c.Seed) == "" {
		return errors.New("a seed argument or --new is required")
	}
	fmt.Println(engine.HashServerSeed(c.Seed))
	return nil
}

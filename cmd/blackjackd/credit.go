package main

import (
	"context"
	"fmt"

	"github.com/MJE43/pf-blackjack/internal/api"
	"github.com/MJE43/pf-blackjack/internal/config"
	"github.com/MJE43/pf-blackjack/internal/store"
)

// CreditCmd adds funds to a player balance, standing in for the deposit
// watcher that would normally do this.
type CreditCmd struct {
	Address string `kong:"arg,help='Player address (0x-prefixed hex)'"`
	Amount  string `kong:"arg,help='Amount in ether, e.g. 0.25'"`
	DB      string `kong:"name='db',help='SQLite database path (overrides storage.path)'"`
}

func (c *CreditCmd) Run(g *Globals) error {
	addr, ok := api.NormalizeAddress(c.Address)
	if !ok {
		return fmt.Errorf("invalid address %q", c.Address)
	}
	wei, err := api.ParseEther(c.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", c.Amount, err)
	}
	if wei.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	if c.DB != "" {
		cfg.Storage.Path = c.DB
	}
	logger := setupLogger(cfg.Server, g.Debug)

	db, err := store.NewSQLiteDB(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	if err := db.Credit(ctx, addr, wei); err != nil {
		return err
	}
	bal, err := db.GetBalance(ctx, addr)
	if err != nil {
		return err
	}

	logger.Info().
		Str("player", addr).
		Str("credited_wei", wei.String()).
		Str("balance_wei", bal.String()).
		Msg("balance_credited")
	fmt.Printf("%s balance %s ETH\n", addr, api.FormatEther(bal))
	return nil
}

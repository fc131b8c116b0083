package main

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/pterm/pterm"

	"github.com/MJE43/pf-blackjack/internal/api"
	"github.com/MJE43/pf-blackjack/internal/config"
	"github.com/MJE43/pf-blackjack/internal/scripting"
	"github.com/MJE43/pf-blackjack/internal/session"
	"github.com/MJE43/pf-blackjack/internal/store"
)

// SimulateCmd plays scripted hands against a throwaway in-memory table.
type SimulateCmd struct {
	Hands      int    `kong:"default='1000',help='Total hands to play'"`
	Script     string `kong:"required,type='existingfile',help='JavaScript strategy defining decide(state)'"`
	Bet        string `kong:"default='1000000000000000',help='Base bet in wei'"`
	Players    int    `kong:"default='1',help='Concurrent simulated players'"`
	Bankroll   string `kong:"default='10',help='Starting balance per player in ether'"`
	ClientSeed string `kong:"name='client-seed',default='simulate',help='Client seed for every hand'"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	tableCfg, err := cfg.SessionConfig()
	if err != nil {
		return err
	}
	// Hand events log at info and would drown the summary table.
	if !g.Debug {
		cfg.Server.LogLevel = "warn"
	}
	logger := setupLogger(cfg.Server, g.Debug)

	bet, ok := new(big.Int).SetString(c.Bet, 10)
	if !ok {
		return fmt.Errorf("invalid bet %q", c.Bet)
	}
	bankroll, err := api.ParseEther(c.Bankroll)
	if err != nil {
		return fmt.Errorf("invalid bankroll %q: %w", c.Bankroll, err)
	}
	if c.Players < 1 {
		return fmt.Errorf("players must be at least 1")
	}
	script, err := os.ReadFile(c.Script)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := store.NewSQLiteDB(":memory:")
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	players := make([]string, c.Players)
	for i := range players {
		players[i] = fmt.Sprintf("0x%040x", i+1)
		if err := db.SetBalance(ctx, players[i], bankroll); err != nil {
			return err
		}
	}

	manager := session.NewManager(tableCfg, db, db, db, quartz.NewReal(), logger)
	runner := scripting.NewRunner(manager, string(script), logger)

	spinner, _ := pterm.DefaultSpinner.Start(fmt.Sprintf("Playing %d hands", c.Hands))
	start := time.Now()
	stats, runErr := runner.Run(ctx, scripting.RunConfig{
		Hands:      c.Hands,
		Players:    players,
		BaseBet:    bet,
		ClientSeed: c.ClientSeed,
	})
	elapsed := time.Since(start)
	if spinner != nil {
		if runErr != nil {
			spinner.Fail(runErr.Error())
		} else {
			spinner.Success(fmt.Sprintf("Played %d hands in %s", stats.Hands, elapsed.Round(time.Millisecond)))
		}
	}
	if stats == nil {
		return runErr
	}

	if err := renderStats(stats); err != nil {
		return err
	}
	if stats.VerifyFailures > 0 {
		return fmt.Errorf("%d hands failed verification", stats.VerifyFailures)
	}
	return runErr
}

func renderStats(s *scripting.Statistics) error {
	pct := func(n int) string {
		if s.Hands == 0 {
			return "-"
		}
		return strconv.FormatFloat(100*float64(n)/float64(s.Hands), 'f', 2, 64) + "%"
	}

	data := pterm.TableData{
		{"Metric", "Value", "Share"},
		{"Hands", strconv.Itoa(s.Hands), ""},
		{"Wins", strconv.Itoa(s.Wins), pct(s.Wins)},
		{"Blackjacks", strconv.Itoa(s.Blackjacks), pct(s.Blackjacks)},
		{"Pushes", strconv.Itoa(s.Pushes), pct(s.Pushes)},
		{"Losses", strconv.Itoa(s.Losses), pct(s.Losses)},
		{"Doubles", strconv.Itoa(s.Doubles), pct(s.Doubles)},
		{"Splits", strconv.Itoa(s.Splits), pct(s.Splits)},
		{"Insurance taken / won", fmt.Sprintf("%d / %d", s.InsuranceTaken, s.InsuranceWon), ""},
		{"Wagered (ETH)", api.FormatEther(s.Wagered), ""},
		{"Returned (ETH)", api.FormatEther(s.Returned), ""},
		{"Profit (ETH)", api.FormatEther(s.Profit()), ""},
		{"Longest win / lose streak", fmt.Sprintf("%d / %d", s.HighestStreak, -s.LowestStreak), ""},
		{"Verified", strconv.Itoa(s.Verified), pct(s.Verified)},
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

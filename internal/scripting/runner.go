// Package scripting plays simulated hands driven by JavaScript strategies.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/pf-blackjack/internal/games"
	"github.com/MJE43/pf-blackjack/internal/session"
	"github.com/MJE43/pf-blackjack/internal/verify"
)

// Table is the part of the session manager the runner drives.
type Table interface {
	Start(ctx context.Context, player string, bet *big.Int, clientSeed string) (*session.Session, error)
	Act(ctx context.Context, player, id string, action session.Action, insuranceStake *big.Int) (*session.Session, error)
}

// RunConfig controls a simulation.
type RunConfig struct {
	Hands      int      // total hands across all players
	Players    []string // one worker per player address
	BaseBet    *big.Int
	ClientSeed string
}

// maxActionsPerHand bounds a hand whose strategy never stands.
const maxActionsPerHand = 64

// Runner plays hands against a Table using a strategy script.
type Runner struct {
	table  Table
	script string
	log    zerolog.Logger
}

// NewRunner creates a runner for script.
func NewRunner(table Table, script string, logger zerolog.Logger) *Runner {
	return &Runner{table: table, script: script, log: logger}
}

// Run splits cfg.Hands across one worker per player and returns the merged
// statistics. Every finished hand is re-verified from its revealed seed.
// A worker stops early when its player runs out of funds or the script
// calls stop().
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Statistics, error) {
	if cfg.Hands <= 0 {
		return nil, fmt.Errorf("%w: hands must be positive", games.ErrValidation)
	}
	if len(cfg.Players) == 0 {
		return nil, fmt.Errorf("%w: at least one player is required", games.ErrValidation)
	}
	if cfg.BaseBet == nil || cfg.BaseBet.Sign() <= 0 {
		return nil, fmt.Errorf("%w: base bet must be positive", games.ErrValidation)
	}
	if cfg.ClientSeed == "" {
		cfg.ClientSeed = "simulate"
	}

	total := NewStatistics()
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i, player := range cfg.Players {
		hands := cfg.Hands / len(cfg.Players)
		if i < cfg.Hands%len(cfg.Players) {
			hands++
		}
		if hands == 0 {
			continue
		}
		g.Go(func() error {
			stats, err := r.work(ctx, player, hands, cfg)
			mu.Lock()
			total.Merge(stats)
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}

func (r *Runner) work(ctx context.Context, player string, hands int, cfg RunConfig) (*Statistics, error) {
	stats := NewStatistics()
	vm := NewVM(r.log.With().Str("player", player).Logger())
	if err := vm.Execute(r.script); err != nil {
		return stats, err
	}
	sizeBets := vm.HasNextBet()

	for n := 0; n < hands; n++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if vm.Stopped() {
			r.log.Info().Str("player", player).Int("hands", n).Msg("script_stopped")
			return stats, nil
		}

		bet := cfg.BaseBet
		if sizeBets {
			v, err := vm.CallNextBet(stats.vars())
			if err != nil {
				return stats, err
			}
			if bet, err = toWei(v.Export()); err != nil {
				return stats, fmt.Errorf("nextbet(): %w", err)
			}
			if vm.Stopped() {
				r.log.Info().Str("player", player).Int("hands", n).Msg("script_stopped")
				return stats, nil
			}
		}

		s, err := r.table.Start(ctx, player, bet, cfg.ClientSeed)
		if errors.Is(err, games.ErrInsufficientFunds) {
			r.log.Info().Str("player", player).Int("hands", n).Msg("bankroll_exhausted")
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("hand %d: %w", n+1, err)
		}

		if s, err = r.play(ctx, vm, player, s); err != nil {
			return stats, fmt.Errorf("hand %d: %w", n+1, err)
		}

		rec := s.Record(s.UpdatedAt)
		stats.RecordHand(rec)
		if _, err := verify.VerifyRecord(rec); err != nil {
			stats.VerifyFailures++
			r.log.Error().Err(err).Str("game_id", rec.ID).Msg("verification_failed")
		} else {
			stats.Verified++
		}
	}
	return stats, nil
}

func (r *Runner) play(ctx context.Context, vm *VM, player string, s *session.Session) (*session.Session, error) {
	for i := 0; s.Status == session.StatusPlaying; i++ {
		if i >= maxActionsPerHand {
			return nil, fmt.Errorf("strategy did not finish the hand after %d actions", i)
		}
		d, err := vm.CallDecide(handState(s))
		if err != nil {
			return nil, err
		}
		next, err := r.table.Act(ctx, player, s.ID, d.Action, d.Stake)
		if err != nil {
			return nil, fmt.Errorf("strategy chose %s: %w", d.Action, err)
		}
		s = next
	}
	return s, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/MJE43/pf-blackjack/internal/api"
	"github.com/MJE43/pf-blackjack/internal/config"
	"github.com/MJE43/pf-blackjack/internal/session"
	"github.com/MJE43/pf-blackjack/internal/store"
)

const shutdownTimeout = 5 * time.Second

// ServeCmd runs the HTTP API and the idle-session sweeper.
type ServeCmd struct {
	Addr string `kong:"help='Listen address (overrides server.address)'"`
	DB   string `kong:"name='db',help='SQLite database path (overrides storage.path)'"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.DB != "" {
		cfg.Storage.Path = c.DB
	}
	tableCfg, err := cfg.SessionConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Server, g.Debug)
	ctx, cancel := signalContext(logger)
	defer cancel()

	db, err := store.NewSQLiteDB(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	manager := session.NewManager(tableCfg, db, db, db, quartz.NewReal(), logger)
	srv := api.NewServer(db, manager, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info().
		Str("address", cfg.Server.Address).
		Str("db", cfg.Storage.Path).
		Str("min_bet", tableCfg.MinBet.String()).
		Dur("session_ttl", tableCfg.SessionTTL).
		Str("engine_version", api.EngineVersion).
		Msg("server_starting")

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		return manager.Run(ctx)
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info().Int("live_sessions", manager.Len()).Msg("server_stopping")
		srv.Events().Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

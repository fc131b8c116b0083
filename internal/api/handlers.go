package api

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MJE43/pf-blackjack/internal/engine"
	"github.com/MJE43/pf-blackjack/internal/games"
	"github.com/MJE43/pf-blackjack/internal/scan"
	"github.com/MJE43/pf-blackjack/internal/session"
	"github.com/MJE43/pf-blackjack/internal/verify"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	weiDecimals         = 18
	maxScanTimeoutMs    = 20_000
)

func (s *Server) handleNewHand(w http.ResponseWriter, r *http.Request) {
	var req NewHandRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}
	bet, ok := parseWei(req.BetAmount)
	if !ok {
		s.errorHandler.HandleValidationError(w, r, "bet_amount", "bet_amount must be a decimal wei amount")
		return
	}

	player := playerFrom(r.Context())
	sess, err := s.manager.Start(r.Context(), player, bet, req.ClientSeed)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Info().
		Str("player", player).
		Str("game_id", sess.ID).
		Str("client_seed_hash", hashSeed(req.ClientSeed)).
		Uint64("nonce", sess.Nonce).
		Msg("new_hand")

	s.writeJSON(w, http.StatusCreated, NewHandResponse{
		GameID:         sess.ID,
		ServerSeedHash: sess.ServerSeedHash,
		Nonce:          sess.Nonce,
		State:          sess.View(),
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}
	if req.GameID == "" {
		s.errorHandler.HandleValidationError(w, r, "game_id", "game_id is required")
		return
	}
	action, ok := session.ParseAction(req.Action)
	if !ok {
		s.errorHandler.HandleValidationError(w, r, "action", "unknown action")
		return
	}

	var stake *big.Int
	if action == session.ActionInsurance {
		if stake, ok = parseWei(req.InsuranceBet); !ok {
			s.errorHandler.HandleValidationError(w, r, "insurance_bet", "insurance_bet must be a decimal wei amount")
			return
		}
	}

	sess, err := s.manager.Act(r.Context(), playerFrom(r.Context()), req.GameID, action, stake)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GameResponse{State: sess.View()})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.manager.Get(playerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, GameResponse{State: sess.View()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			s.errorHandler.HandleValidationError(w, r, "limit", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	recs, err := s.db.ListHandRecords(r.Context(), playerFrom(r.Context()), limit)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	resp := HistoryResponse{Hands: make([]RecordView, 0, len(recs)), Count: len(recs)}
	for _, rec := range recs {
		resp.Hands = append(resp.Hands, recordView(rec))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	player := playerFrom(r.Context())
	bal, err := s.manager.Wallet().Balance(r.Context(), player)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BalanceResponse{
		Address:    player,
		Balance:    bal.String(),
		BalanceETH: FormatEther(bal),
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}

	res, err := verify.Verify(req.ServerSeed, req.ServerSeedHash, req.ClientSeed, req.Nonce)
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Debug().
		Str("server_seed_hash", req.ServerSeedHash).
		Str("client_seed_hash", hashSeed(req.ClientSeed)).
		Uint64("nonce", req.Nonce).
		Msg("verify_request")

	s.writeJSON(w, http.StatusOK, VerifyResponse{
		Valid:         res.Valid,
		Cards:         res.InitialCards,
		FullDeck:      res.Deck.Strings(),
		EngineVersion: EngineVersion,
	})
}

// handleVerifyHand re-runs verification over a stored record. A record that
// no longer matches its commitment answers 422.
func (s *Server) handleVerifyHand(w http.ResponseWriter, r *http.Request) {
	rec, err := s.db.GetHandRecord(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	res, err := verify.VerifyRecord(rec)
	if err != nil {
		if errors.Is(err, games.ErrIntegrity) {
			s.logger.Error().Err(err).Str("game_id", rec.ID).Msg("record_verification_failed")
		}
		s.errorHandler.HandleError(w, r, err)
		return
	}

	dealt := make([]string, len(rec.ProvablyFair.Cards))
	for i, c := range rec.ProvablyFair.Cards {
		dealt[i] = c.String()
	}
	s.writeJSON(w, http.StatusOK, VerifyHandResponse{
		GameID:        rec.ID,
		Valid:         res.Valid,
		Cards:         res.InitialCards,
		DealtCards:    dealt,
		EngineVersion: EngineVersion,
	})
}

func (s *Server) handleSeedHash(w http.ResponseWriter, r *http.Request) {
	var req SeedHashRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}
	if req.ServerSeed == "" {
		s.errorHandler.HandleValidationError(w, r, "server_seed", "server_seed is required")
		return
	}
	s.writeJSON(w, http.StatusOK, SeedHashResponse{
		Hash:          engine.HashServerSeed(req.ServerSeed),
		EngineVersion: EngineVersion,
	})
}

// handleScan answers with the hits found so far when the scan times out.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON format")
		return
	}
	if req.TimeoutMs <= 0 || req.TimeoutMs > maxScanTimeoutMs {
		req.TimeoutMs = maxScanTimeoutMs
	}

	res, err := s.scanner.Scan(r.Context(), scan.Request{
		Seeds:      engine.Seeds{Server: req.ServerSeed, Client: req.ClientSeed},
		NonceStart: req.NonceStart,
		NonceEnd:   req.NonceEnd,
		Metric:     scan.Metric(req.Metric),
		TargetOp:   scan.TargetOp(req.TargetOp),
		TargetVal:  req.TargetVal,
		TargetVal2: req.TargetVal2,
		Limit:      req.Limit,
		TimeoutMs:  req.TimeoutMs,
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err)
		return
	}

	s.logger.Info().
		Str("client_seed_hash", hashSeed(req.ClientSeed)).
		Uint64("nonce_start", req.NonceStart).
		Uint64("nonce_end", req.NonceEnd).
		Str("metric", req.Metric).
		Uint64("evaluated", res.Summary.TotalEvaluated).
		Int("hits", res.Summary.HitsFound).
		Bool("timed_out", res.Summary.TimedOut).
		Msg("scan_completed")

	s.writeJSON(w, http.StatusOK, ScanResponse{
		Hits:          res.Hits,
		Summary:       res.Summary,
		EngineVersion: EngineVersion,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.events.serve(w, r, playerFrom(r.Context()))
}

// parseWei accepts a non-empty base-10 integer string.
func parseWei(raw string) (*big.Int, bool) {
	if raw == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(raw, 10)
	return v, ok
}

// FormatEther renders a wei amount in ether without trailing zeros.
func FormatEther(wei *big.Int) string {
	return decimal.NewFromBigInt(wei, -weiDecimals).String()
}

// ParseEther converts an ether amount such as "0.5" to wei. Fractions below
// one wei are rejected.
func ParseEther(raw string) (*big.Int, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	wei := d.Shift(weiDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, errors.New("amount has more than 18 decimal places")
	}
	return wei.BigInt(), nil
}

func recordView(rec games.HandRecord) RecordView {
	v := RecordView{
		GameID:          rec.ID,
		PlayerAddress:   rec.PlayerAddress,
		BetAmount:       amountString(rec.BetAmount),
		Payout:          amountString(rec.Payout),
		Outcome:         rec.Outcome,
		InsuranceBet:    optionalAmount(rec.InsuranceBet),
		InsurancePayout: optionalAmount(rec.InsurancePayout),
		DealerHand:      rec.DealerHand,
		PlayerHands:     make([]HandResultView, len(rec.Hands)),
		ProvablyFair:    rec.ProvablyFair,
		CreatedAt:       rec.CreatedAt.UTC().Format(time.RFC3339),
		ResolvedAt:      rec.ResolvedAt.UTC().Format(time.RFC3339),
	}
	for i, h := range rec.Hands {
		v.PlayerHands[i] = HandResultView{
			Hand:    h.Hand,
			Bet:     amountString(h.Bet),
			Outcome: h.Outcome,
			Payout:  amountString(h.Payout),
			Doubled: h.Doubled,
		}
	}
	return v
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optionalAmount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5/middleware"
)

// PlayerHeader carries the caller's wallet address, set by the
// authenticating gateway in front of this service.
const PlayerHeader = "X-Player-Address"

type ctxKey int

const playerKey ctxKey = iota

// RequestLogging logs request start and completion. Bodies are never
// logged; seeds only ever appear hashed.
func (s *Server) RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", requestID).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("request_start")

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", requestID).
			Int("bytes_written", ww.BytesWritten()).
			Msg("request_completed")
	})
}

// CORSMiddleware handles CORS headers for browser clients
func (s *Server) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+PlayerHeader)
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePlayer rejects requests without a well-formed player address and
// stores the lowercased address on the request context.
func (s *Server) RequirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, ok := NormalizeAddress(r.Header.Get(PlayerHeader))
		if !ok {
			engineErr := NewError(ErrTypeUnauthorized, "missing or malformed "+PlayerHeader).
				WithRequestID(middleware.GetReqID(r.Context())).
				Build()
			s.errorHandler.HandleError(w, r, engineErr)
			return
		}
		ctx := context.WithValue(r.Context(), playerKey, addr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NormalizeAddress accepts a 0x-prefixed hex address in any case and
// returns it lowercased.
func NormalizeAddress(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return "", false
	}
	if !common.IsHexAddress(raw) {
		return "", false
	}
	return strings.ToLower(common.HexToAddress(raw).Hex()), true
}

func playerFrom(ctx context.Context) string {
	addr, _ := ctx.Value(playerKey).(string)
	return addr
}

// hashSeed shortens a seed to a log-safe fingerprint.
func hashSeed(seed string) string {
	if seed == "" {
		return "empty"
	}
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}

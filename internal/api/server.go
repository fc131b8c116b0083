package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/MJE43/pf-blackjack/internal/scan"
	"github.com/MJE43/pf-blackjack/internal/session"
	"github.com/MJE43/pf-blackjack/internal/store"
)

const requestTimeout = 30 * time.Second

// Server is the HTTP transport over the session manager and hand store.
type Server struct {
	db           store.DB
	manager      *session.Manager
	scanner      *scan.Scanner
	events       *EventHub
	errorHandler *ErrorHandler
	logger       zerolog.Logger
	startTime    time.Time
}

// NewServer creates the transport and registers its event hub as the
// manager's notifier.
func NewServer(db store.DB, manager *session.Manager, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()
	events := NewEventHub(logger)
	manager.SetNotifier(events)

	return &Server{
		db:           db,
		manager:      manager,
		scanner:      scan.NewScanner(),
		events:       events,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		startTime:    time.Now(),
	}
}

// Events returns the websocket hub.
func (s *Server) Events() *EventHub {
	return s.events
}

// Routes sets up the HTTP routes
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.RequestLogging)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(s.CORSMiddleware)

	r.Get("/health", s.handleHealthCheck)
	r.Get("/health/ready", s.handleReadiness)
	r.Get("/health/live", s.handleLiveness)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/version", s.handleVersion)

		// Long-lived; kept outside the request timeout.
		r.With(s.RequirePlayer).Get("/events", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))

			r.Post("/verify", s.handleVerify)
			r.Get("/verify/hand/{id}", s.handleVerifyHand)
			r.Post("/seed/hash", s.handleSeedHash)
			r.Post("/scan", s.handleScan)

			r.Group(func(r chi.Router) {
				r.Use(s.RequirePlayer)

				r.Post("/game/new-hand", s.handleNewHand)
				r.Post("/game/action", s.handleAction)
				r.Get("/game/history", s.handleHistory)
				r.Get("/game/{id}", s.handleGetGame)
				r.Get("/balance", s.handleBalance)
			})
		})
	})

	return r
}

// writeJSON writes a JSON response with the engine version header.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(versionHeader, EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("response_encode_failed")
	}
}

// decodeJSON reads a bounded JSON body, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

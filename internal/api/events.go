package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/MJE43/pf-blackjack/internal/games"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// EventHub fans resolved hands out to websocket subscribers. Each
// subscriber only receives its own hands.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu          sync.RWMutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	player string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// NewEventHub creates an empty hub.
func NewEventHub(logger zerolog.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:      logger.With().Str("component", "events").Logger(),
		subscribers: make(map[*subscriber]struct{}),
	}
}

// HandResolved queues a hand_resolved event for the hand's owner. Slow
// subscribers miss events rather than block settlement.
func (h *EventHub) HandResolved(rec games.HandRecord) {
	data, err := json.Marshal(Event{Type: "hand_resolved", Hand: recordView(rec)})
	if err != nil {
		h.logger.Error().Err(err).Str("game_id", rec.ID).Msg("event_encode_failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		if sub.player != rec.PlayerAddress {
			continue
		}
		select {
		case sub.send <- data:
		default:
			h.logger.Warn().Str("player", sub.player).Str("game_id", rec.ID).Msg("event_dropped")
		}
	}
}

// Subscribers returns the number of open connections.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *EventHub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		sub.close()
	}
}

// serve upgrades the request and pumps events until the client goes away.
func (h *EventHub) serve(w http.ResponseWriter, r *http.Request, player string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket_upgrade_failed")
		return
	}

	sub := &subscriber{
		player: player,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug().Str("player", player).Msg("subscriber_connected")

	go sub.writePump()
	sub.readPump()

	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
	h.logger.Debug().Str("player", player).Msg("subscriber_disconnected")
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// readPump discards client frames; it exists to process control frames
// and notice disconnects.
func (s *subscriber) readPump() {
	defer s.close()

	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

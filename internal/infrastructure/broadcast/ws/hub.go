// Package ws fans notifications out to WebSocket subscribers, projecting
// game state per viewer.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/services"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Subscribers only send control frames.
	maxMessageSize = 512
	// Messages queued per subscriber before it is dropped as too slow.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// No authentication model; any origin may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// viewMessage carries a state_changed notification projected for one viewer.
type viewMessage struct {
	Kind   entities.NotificationKind  `json:"type"`
	GameID string                     `json:"game_id"`
	View   entities.ViewKind          `json:"view"`
	State  services.FilteredGameState `json:"state"`
}

type subscriber struct {
	gameID      string
	view        entities.ViewKind
	characterID string
	conn        *websocket.Conn
	send        chan []byte
}

// Hub implements ports.Broadcaster over WebSocket connections.
type Hub struct {
	mu     sync.RWMutex
	games  map[string]map[*subscriber]struct{}
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		games:  make(map[string]map[*subscriber]struct{}),
		logger: logger.Named("ws"),
	}
}

// Subscribers returns the number of connections watching a game.
func (h *Hub) Subscribers(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.games[s.gameID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.games[s.gameID] = subs
	}
	subs[s] = struct{}{}
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.games[s.gameID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.send)
	if len(subs) == 0 {
		delete(h.games, s.gameID)
	}
}

// Broadcast queues a notification for every subscriber of the game.
// Generation and editor notifications reach DM subscribers only; state
// snapshots are projected through the view filter for each subscriber.
// Each subscriber's queue is FIFO, so per-game order is preserved.
func (h *Hub) Broadcast(_ context.Context, gameID string, n entities.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	var slow []*subscriber
	projected := make(map[string][]byte)

	h.mu.RLock()
	for s := range h.games[gameID] {
		payload := raw
		if s.view != entities.ViewDM {
			if n.DMOnly() || n.State == nil {
				continue
			}
			key := string(s.view) + "/" + s.characterID
			cached, ok := projected[key]
			if !ok {
				cached, err = project(n, s)
				if err != nil {
					h.logger.Warn("projecting state", zap.String("game_id", gameID), zap.String("view", string(s.view)),
						zap.String("character_id", s.characterID), zap.Error(err))
					continue
				}
				projected[key] = cached
			}
			payload = cached
		}

		select {
		case s.send <- payload:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.logger.Warn("dropping slow subscriber", zap.String("game_id", gameID), zap.String("view", string(s.view)))
		h.unregister(s)
	}
	return nil
}

func project(n entities.Notification, s *subscriber) ([]byte, error) {
	filtered, err := services.FilterGameStateForView(n.State, s.view, s.characterID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(viewMessage{
		Kind:   n.Kind,
		GameID: n.GameID,
		View:   filtered.View(),
		State:  filtered,
	})
}

// ServeWS upgrades a request to a subscription. Query parameters: game
// (required), view (dm, party or player; default party) and character
// (required for player).
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	gameID := q.Get("game")
	if gameID == "" {
		http.Error(w, "game is required", http.StatusBadRequest)
		return
	}
	viewName := q.Get("view")
	if viewName == "" {
		viewName = string(entities.ViewParty)
	}
	view, err := entities.ParseView(viewName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	characterID := q.Get("character")
	if view == entities.ViewPlayer && characterID == "" {
		http.Error(w, entities.ErrCharacterRequired.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	s := &subscriber{
		gameID:      gameID,
		view:        view,
		characterID: characterID,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
	}
	h.register(s)

	logger := h.logger.With(zap.String("game_id", gameID), zap.String("view", string(view)))
	logger.Info("subscriber connected")

	go h.writePump(s, logger)
	go h.readPump(s, logger)
}

// readPump drains control frames until the peer goes away.
func (h *Hub) readPump(s *subscriber, logger *zap.Logger) {
	defer func() {
		h.unregister(s)
		_ = s.conn.Close()
		logger.Info("subscriber disconnected")
	}()
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump writes queued messages, one per frame, and keeps the
// connection alive with pings.
func (h *Hub) writePump(s *subscriber, logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					logger.Warn("write failed", zap.Error(err))
				}
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for gameID, subs := range h.games {
		for s := range subs {
			close(s.send)
		}
		delete(h.games, gameID)
	}
}

package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"chat-backend/internal/models"
	"chat-backend/internal/observability"
)

// Hub is the in-memory connection registry. A user may hold any number of
// concurrent connections (several devices, several tabs); each delivery goes
// to all of them.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Conn]ConnInfo
	logger      zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*Conn]ConnInfo),
		logger:      logger.With().Str("component", "ws_hub").Logger(),
	}
}

// Connect registers a connection under its user.
func (h *Hub) Connect(conn *Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[info.UserID]
	if !ok {
		conns = make(map[*Conn]ConnInfo)
		h.connections[info.UserID] = conns
	}
	conns[conn] = info

	observability.IncWSActive()
	h.logger.Debug().
		Str("user_id", info.UserID).
		Str("conn_id", info.ConnID).
		Int("user_conns", len(conns)).
		Msg("connection registered")
}

// Disconnect removes a connection. Calling it for a connection that was
// already removed is a no-op, so deferred cleanup and error paths may both
// call it. The user's entry is pruned once its last connection goes away.
func (h *Hub) Disconnect(conn *Conn, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[userID]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, userID)
	}

	observability.DecWSActive()
	h.logger.Debug().
		Str("user_id", userID).
		Int("user_conns", len(conns)).
		Msg("connection removed")
}

// UserConnCount reports how many live connections a user holds.
func (h *Hub) UserConnCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}

// SendToUser delivers an event to every connection the user currently holds.
// A user with no connections is not an error; offline recipients catch up
// through history.
func (h *Hub) SendToUser(userID string, event models.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.deliver(h.snapshotUser(userID), payload)
	return nil
}

// BroadcastToParticipants delivers an event to every connection of every
// listed participant, skipping the excluded ones (typically the sender).
func (h *Hub) BroadcastToParticipants(participantIDs []string, event models.Event, exclude map[string]struct{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var targets []connTarget
	h.mu.RLock()
	for _, id := range participantIDs {
		if _, skip := exclude[id]; skip {
			continue
		}
		for conn, info := range h.connections[id] {
			targets = append(targets, connTarget{conn: conn, info: info})
		}
	}
	h.mu.RUnlock()

	h.deliver(targets, payload)
	return nil
}

type connTarget struct {
	conn *Conn
	info ConnInfo
}

// snapshotUser copies a user's connection set so writes happen outside the
// registry lock.
func (h *Hub) snapshotUser(userID string) []connTarget {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.connections[userID]
	targets := make([]connTarget, 0, len(conns))
	for conn, info := range conns {
		targets = append(targets, connTarget{conn: conn, info: info})
	}
	return targets
}

// deliver writes the payload to each target. A failed write closes and
// unregisters that one connection; the remaining targets still receive the
// event.
func (h *Hub) deliver(targets []connTarget, payload []byte) {
	for _, t := range targets {
		if err := t.conn.WriteMessage(payload); err != nil {
			h.logger.Warn().
				Err(err).
				Str("user_id", t.info.UserID).
				Str("conn_id", t.info.ConnID).
				Msg("write failed, dropping connection")
			t.conn.Close()
			h.Disconnect(t.conn, t.info.UserID)
		}
	}
}

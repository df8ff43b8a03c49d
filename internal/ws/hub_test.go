package ws

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chat-backend/internal/models"
)

func newTestInfo(userID, connID string) ConnInfo {
	return ConnInfo{ConnID: connID, UserID: userID, ConnectedAt: time.Now()}
}

func TestHubConnectAndDisconnect(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := &Conn{}

	hub.Connect(conn, newTestInfo("u1", "c1"))
	if hub.UserConnCount("u1") != 1 {
		t.Fatalf("expected one connection for u1")
	}

	hub.Disconnect(conn, "u1")
	if hub.UserConnCount("u1") != 0 {
		t.Fatalf("expected u1 to have no connections")
	}
	if len(hub.connections) != 0 {
		t.Fatalf("expected empty user entry to be pruned")
	}
}

func TestHubDisconnectIsIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := &Conn{}

	hub.Connect(conn, newTestInfo("u1", "c1"))
	hub.Disconnect(conn, "u1")
	hub.Disconnect(conn, "u1")

	if hub.UserConnCount("u1") != 0 {
		t.Fatalf("expected u1 to stay empty")
	}
}

func TestHubKeepsOtherConnectionsOfSameUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	first := &Conn{}
	second := &Conn{}

	hub.Connect(first, newTestInfo("u1", "c1"))
	hub.Connect(second, newTestInfo("u1", "c2"))
	hub.Disconnect(first, "u1")

	if hub.UserConnCount("u1") != 1 {
		t.Fatalf("expected the second connection to survive")
	}
}

func TestHubSendToOfflineUserIsNotAnError(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if err := hub.SendToUser("nobody", models.Event{Type: models.EventPersonalMessage}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

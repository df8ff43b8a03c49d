package services

import "chat-backend/internal/models"

// Deliverer fans out realtime events to live connections. Implementations are
// fire-and-forget: per-connection failures are logged, never retried, and a
// recipient with zero live connections is not an error.
type Deliverer interface {
	SendToUser(userID string, event models.Event) error
	BroadcastToParticipants(participantIDs []string, event models.Event, excludeUserIDs map[string]struct{}) error
}

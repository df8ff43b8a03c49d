package models

// Realtime event types pushed to websocket clients.
const (
	EventPersonalMessage = "personal_message"
	EventGroupMessage    = "group_message"
	EventNewChatRoom     = "new_chat_room"
)

// Event is the envelope written to websocket connections.
type Event struct {
	Type     string        `json:"type"`
	ChatID   string        `json:"chat_id,omitempty"`
	Message  *MessageView  `json:"message,omitempty"`
	ChatRoom *ChatRoomView `json:"chat_room,omitempty"`
}

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageType enumerates supported message content types.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeVideo MessageType = "video"
)

// MessageStatus is the delivery lifecycle of a message. Transitions are
// monotonic except failed, which a retry may move back to sending.
type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusSeen    MessageStatus = "seen"
	StatusFailed  MessageStatus = "failed"
)

// Message is the authoritative message document.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    primitive.ObjectID `bson:"chat_id" json:"chat_id"`
	SenderID  string             `bson:"sender_id" json:"sender_id"`
	Content   string             `bson:"content" json:"content"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	IsEdited  bool               `bson:"is_edited" json:"is_edited"`
	Type      MessageType        `bson:"message_type" json:"message_type"`
	Status    MessageStatus      `bson:"message_status" json:"message_status"`
}

// View converts the document to its API projection.
func (m Message) View() MessageView {
	return MessageView{
		ID:        m.ID.Hex(),
		ChatID:    m.ChatID.Hex(),
		SenderID:  m.SenderID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		Type:      m.Type,
		Status:    m.Status,
		IsEdited:  m.IsEdited,
	}
}

// MessageCreate is the inbound payload for sending a message.
type MessageCreate struct {
	Content string      `json:"content" binding:"required"`
	Type    MessageType `json:"message_type"`
}

// MessageView is the API/cache-facing projection of a message.
type MessageView struct {
	ID        string        `json:"id"`
	ChatID    string        `json:"chat_id"`
	SenderID  string        `json:"sender_id"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Type      MessageType   `json:"message_type"`
	Status    MessageStatus `json:"message_status"`
	IsEdited  bool          `json:"is_edited"`
}

// MessagePage is one page of newest-first message history.
type MessagePage struct {
	Items      []MessageView `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

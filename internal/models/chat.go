package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatType distinguishes 1:1 chats from group chats.
type ChatType string

const (
	ChatTypePersonal ChatType = "personal"
	ChatTypeGroup    ChatType = "group"
)

// ChatRoom is the authoritative chat room document.
//
// PairKey is set only for personal chats: the two participant ids sorted and
// joined, so a partial unique index rejects a second room for the same pair
// even under concurrent creation.
type ChatRoom struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatType     ChatType           `bson:"chat_type" json:"chat_type"`
	Participants []string           `bson:"participants" json:"participants"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Admins       []string           `bson:"admins,omitempty" json:"admins,omitempty"`
	PairKey      string             `bson:"pair_key,omitempty" json:"-"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastUpdated  time.Time          `bson:"last_updated" json:"last_updated"`
}

// PersonalPairKey builds the order-independent dedup key for a personal chat.
func PersonalPairKey(userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

// CounterpartOf returns the other participant of a personal chat, or "" when
// the room is not a well-formed personal chat containing userID.
func (c ChatRoom) CounterpartOf(userID string) string {
	if c.ChatType != ChatTypePersonal || len(c.Participants) != 2 {
		return ""
	}
	switch userID {
	case c.Participants[0]:
		return c.Participants[1]
	case c.Participants[1]:
		return c.Participants[0]
	}
	return ""
}

// HasParticipant reports whether userID belongs to the room.
func (c ChatRoom) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// ChatRoomView is the API-facing projection of a room for one viewer.
type ChatRoomView struct {
	ChatID      string    `json:"chat_id"`
	ChatName    string    `json:"chat_name,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
}

// ChatRoomPage is one page of a newest-first room listing.
type ChatRoomPage struct {
	Items      []ChatRoomView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

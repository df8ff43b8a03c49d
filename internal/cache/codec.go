package cache

import (
	"strconv"
	"strings"
	"time"

	"chat-backend/internal/models"
)

// The hash field sets are fixed per entity type; parse and format stay next to
// each other so the layouts cannot drift apart.

func formatChatHash(room models.ChatRoom) map[string]any {
	return map[string]any{
		"name":         room.Name,
		"type":         string(room.ChatType),
		"last_updated": room.LastUpdated.UTC().Format(time.RFC3339Nano),
		"participants": strings.Join(room.Participants, ","),
	}
}

// CachedRoomEntry is one parsed element of the per-user room index.
type CachedRoomEntry struct {
	ChatID       string
	Name         string
	Type         models.ChatType
	Participants []string
	LastUpdated  time.Time
}

func parseChatHash(chatID string, scoreMs int64, fields map[string]string) CachedRoomEntry {
	entry := CachedRoomEntry{
		ChatID: chatID,
		Name:   fields["name"],
		Type:   models.ChatType(fields["type"]),
	}
	if raw := fields["participants"]; raw != "" {
		entry.Participants = strings.Split(raw, ",")
	}
	entry.LastUpdated = parseTimeField(fields["last_updated"], scoreMs)
	return entry
}

func formatMessageHash(view models.MessageView) map[string]any {
	edited := "0"
	if view.IsEdited {
		edited = "1"
	}
	return map[string]any{
		"content":        view.Content,
		"sender":         view.SenderID,
		"timestamp":      view.Timestamp.UTC().Format(time.RFC3339Nano),
		"chat_id":        view.ChatID,
		"message_type":   string(view.Type),
		"message_status": string(view.Status),
		"is_edited":      edited,
	}
}

func parseMessageHash(messageID string, scoreMs int64, fields map[string]string) models.MessageView {
	return models.MessageView{
		ID:        messageID,
		ChatID:    fields["chat_id"],
		SenderID:  fields["sender"],
		Content:   fields["content"],
		Timestamp: parseTimeField(fields["timestamp"], scoreMs),
		Type:      models.MessageType(fields["message_type"]),
		Status:    models.MessageStatus(fields["message_status"]),
		IsEdited:  fields["is_edited"] == "1",
	}
}

// parseTimeField reads an RFC3339 field, falling back to the index score so a
// mangled hash field cannot produce a bogus ordering.
func parseTimeField(raw string, scoreMs int64) time.Time {
	if raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts
		}
	}
	return time.UnixMilli(scoreMs).UTC()
}

// hashesTrusted reports whether every entry that would land in the returned
// page still has its hash. An index entry whose hash expired earlier means the
// page cannot be trusted and the store must serve it.
func hashesTrusted(hashes []map[string]string, size int) bool {
	first := min(len(hashes), size)
	for i := 0; i < first; i++ {
		if len(hashes[i]) == 0 {
			return false
		}
	}
	return true
}

// completeCountBroken reports whether a short first page contradicts the count
// recorded at the last full backfill, i.e. the index partially expired.
func completeCountBroken(storedCount string, returned int) bool {
	if storedCount == "" {
		return false
	}
	count, err := strconv.Atoi(storedCount)
	if err != nil {
		return false
	}
	return count > returned
}

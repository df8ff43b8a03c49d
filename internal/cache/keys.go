package cache

import (
	"fmt"
	"time"
)

// Every key below carries entryTTL, refreshed by any write touching it. The
// projections are derived state: losing them to expiry is repaired by the
// store fallback on the next read.
const entryTTL = 12 * time.Hour

// prefetchFactor over-fetches index entries so a page survives a few expired
// hashes without immediately looking incomplete.
const prefetchFactor = 2

// userChatRoomsKey is the per-user room index, scored by last_updated ms.
func userChatRoomsKey(userID string) string {
	return fmt.Sprintf("user:%s:chat_rooms", userID)
}

// userChatRoomsCompleteKey marks that the user's index was fully backfilled.
func userChatRoomsCompleteKey(userID string) string {
	return fmt.Sprintf("user:%s:chat_rooms_complete", userID)
}

// chatDataKey is the denormalized room hash.
func chatDataKey(chatID string) string {
	return fmt.Sprintf("chat:%s:data", chatID)
}

// chatMessagesKey is the per-chat message index, scored by timestamp ms.
func chatMessagesKey(chatID string) string {
	return fmt.Sprintf("chat:%s:messages", chatID)
}

// chatMessagesCompleteCountKey records how many entries the last full
// first-page backfill wrote, distinguishing a genuinely small chat from a
// partially expired index.
func chatMessagesCompleteCountKey(chatID string) string {
	return fmt.Sprintf("chat:%s:messages_complete_count", chatID)
}

// messageDataKey is the denormalized message hash.
func messageDataKey(messageID string) string {
	return fmt.Sprintf("message:%s:data", messageID)
}

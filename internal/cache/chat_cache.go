package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-backend/internal/models"
)

// ChatCache is the derived, per-user projection of chat rooms.
type ChatCache interface {
	CacheChatRoom(ctx context.Context, userID string, room models.ChatRoom) error
	TouchRoomActivity(ctx context.Context, userIDs []string, chatID string, ts time.Time) error
	MarkComplete(ctx context.Context, userID string) error
	IsComplete(ctx context.Context, userID string) (bool, error)
	ReadRoomsPage(ctx context.Context, userID string, before *time.Time, size int) (CachedRoomPage, error)
}

// CachedRoomPage is a page read from the projection. Valid=false means the
// projection cannot be trusted for this page and the store must serve it.
type CachedRoomPage struct {
	Entries    []CachedRoomEntry
	NextCursor *time.Time
	Valid      bool
}

// RedisChatCache implements ChatCache on a sorted index plus room hashes.
type RedisChatCache struct {
	client *redis.Client
}

// NewRedisChatCache constructs a RedisChatCache.
func NewRedisChatCache(client *redis.Client) *RedisChatCache {
	return &RedisChatCache{client: client}
}

// CacheChatRoom writes the room's index entry and hash for one viewer and
// refreshes every TTL involved, including the completeness marker so it never
// outlives the data it vouches for.
func (c *RedisChatCache) CacheChatRoom(ctx context.Context, userID string, room models.ChatRoom) error {
	chatID := room.ID.Hex()
	indexKey := userChatRoomsKey(userID)
	dataKey := chatDataKey(chatID)

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(room.LastUpdated.UnixMilli()),
		Member: chatID,
	})
	pipe.HSet(ctx, dataKey, formatChatHash(room))
	pipe.Expire(ctx, indexKey, entryTTL)
	pipe.Expire(ctx, dataKey, entryTTL)
	pipe.Expire(ctx, userChatRoomsCompleteKey(userID), entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// TouchRoomActivity bumps the room's index score for every participant and
// the room hash's last_updated, so a marked-complete index keeps the ordering
// the store just committed. Indexes that do not exist yet simply gain the one
// entry; reads stay gated on the completeness marker.
func (c *RedisChatCache) TouchRoomActivity(ctx context.Context, userIDs []string, chatID string, ts time.Time) error {
	score := float64(ts.UnixMilli())
	dataKey := chatDataKey(chatID)

	pipe := c.client.Pipeline()
	for _, userID := range userIDs {
		indexKey := userChatRoomsKey(userID)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: score, Member: chatID})
		pipe.Expire(ctx, indexKey, entryTTL)
	}
	pipe.HSet(ctx, dataKey, "last_updated", ts.UTC().Format(time.RFC3339Nano))
	pipe.Expire(ctx, dataKey, entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// MarkComplete records that the user's index was fully backfilled.
func (c *RedisChatCache) MarkComplete(ctx context.Context, userID string) error {
	return c.client.Set(ctx, userChatRoomsCompleteKey(userID), "1", entryTTL).Err()
}

// IsComplete reports whether the index may be trusted as a read source.
func (c *RedisChatCache) IsComplete(ctx context.Context, userID string) (bool, error) {
	_, err := c.client.Get(ctx, userChatRoomsCompleteKey(userID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadRoomsPage reads up to size rooms newest-first with scores strictly below
// before. Over-fetching by prefetchFactor tolerates a few expired hashes past
// the page boundary.
func (c *RedisChatCache) ReadRoomsPage(ctx context.Context, userID string, before *time.Time, size int) (CachedRoomPage, error) {
	indexKey := userChatRoomsKey(userID)

	results, err := c.client.ZRevRangeByScoreWithScores(ctx, indexKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    maxScoreBound(before),
		Offset: 0,
		Count:  int64(size * prefetchFactor),
	}).Result()
	if err != nil {
		return CachedRoomPage{}, err
	}

	hashes, err := c.fetchHashes(ctx, results, chatDataKey)
	if err != nil {
		return CachedRoomPage{}, err
	}
	if !hashesTrusted(hashes, size) {
		return CachedRoomPage{Valid: false}, nil
	}

	page := CachedRoomPage{Valid: true}
	for i, z := range results {
		if i == size {
			break
		}
		chatID := fmt.Sprint(z.Member)
		page.Entries = append(page.Entries, parseChatHash(chatID, int64(z.Score), hashes[i]))
	}
	if len(results) > size {
		cursor := time.UnixMilli(int64(results[size-1].Score)).UTC()
		page.NextCursor = &cursor
	}
	return page, nil
}

func (c *RedisChatCache) fetchHashes(ctx context.Context, results []redis.Z, key func(string) string) ([]map[string]string, error) {
	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(results))
	for _, z := range results {
		cmds = append(cmds, pipe.HGetAll(ctx, key(fmt.Sprint(z.Member))))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	hashes := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		hashes = append(hashes, cmd.Val())
	}
	return hashes, nil
}

// maxScoreBound renders the exclusive upper score bound for a reverse range.
func maxScoreBound(before *time.Time) string {
	if before == nil {
		return "+inf"
	}
	return fmt.Sprintf("(%d", before.UnixMilli())
}

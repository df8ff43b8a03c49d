package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-backend/internal/models"
)

// MessageCache is the derived, per-chat projection of message history.
type MessageCache interface {
	CacheMessage(ctx context.Context, chatID string, msg models.Message) error
	SetCompleteCount(ctx context.Context, chatID string, count int) error
	ReadMessagesPage(ctx context.Context, chatID string, before *time.Time, size int) (CachedMessagePage, error)
}

// CachedMessagePage is a page read from the projection. Valid=false means the
// projection cannot be trusted for this page and the store must serve it.
type CachedMessagePage struct {
	Items      []models.MessageView
	NextCursor *time.Time
	Valid      bool
}

// RedisMessageCache implements MessageCache on a sorted index plus message
// hashes and a complete-count marker.
type RedisMessageCache struct {
	client *redis.Client
}

// NewRedisMessageCache constructs a RedisMessageCache.
func NewRedisMessageCache(client *redis.Client) *RedisMessageCache {
	return &RedisMessageCache{client: client}
}

// CacheMessage writes the message's index entry and hash and refreshes every
// TTL involved. The complete-count marker's TTL is refreshed alongside so it
// cannot expire before the entries it counts and force false fallbacks.
func (c *RedisMessageCache) CacheMessage(ctx context.Context, chatID string, msg models.Message) error {
	messageID := msg.ID.Hex()
	indexKey := chatMessagesKey(chatID)
	dataKey := messageDataKey(messageID)

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, indexKey, redis.Z{
		Score:  float64(msg.Timestamp.UnixMilli()),
		Member: messageID,
	})
	pipe.HSet(ctx, dataKey, formatMessageHash(msg.View()))
	pipe.Expire(ctx, indexKey, entryTTL)
	pipe.Expire(ctx, dataKey, entryTTL)
	pipe.Expire(ctx, chatMessagesCompleteCountKey(chatID), entryTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// SetCompleteCount records how many entries a full first-page backfill wrote.
func (c *RedisMessageCache) SetCompleteCount(ctx context.Context, chatID string, count int) error {
	return c.client.Set(ctx, chatMessagesCompleteCountKey(chatID), strconv.Itoa(count), entryTTL).Err()
}

// ReadMessagesPage reads up to size messages newest-first with scores strictly
// below before. On a first page (before == nil) that comes up short, the
// complete-count marker decides between "small chat" and "partially expired".
func (c *RedisMessageCache) ReadMessagesPage(ctx context.Context, chatID string, before *time.Time, size int) (CachedMessagePage, error) {
	indexKey := chatMessagesKey(chatID)

	results, err := c.client.ZRevRangeByScoreWithScores(ctx, indexKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    maxScoreBound(before),
		Offset: 0,
		Count:  int64(size * prefetchFactor),
	}).Result()
	if err != nil {
		return CachedMessagePage{}, err
	}

	hashes, err := c.fetchHashes(ctx, results)
	if err != nil {
		return CachedMessagePage{}, err
	}
	if !hashesTrusted(hashes, size) {
		return CachedMessagePage{Valid: false}, nil
	}

	if before == nil && len(results) < size {
		stored, err := c.client.Get(ctx, chatMessagesCompleteCountKey(chatID)).Result()
		if err != nil && err != redis.Nil {
			// Marker unreadable: keep serving what the index holds.
			stored = ""
		}
		if completeCountBroken(stored, len(results)) {
			return CachedMessagePage{Valid: false}, nil
		}
	}

	page := CachedMessagePage{Valid: true}
	for i, z := range results {
		if i == size {
			break
		}
		messageID := fmt.Sprint(z.Member)
		page.Items = append(page.Items, parseMessageHash(messageID, int64(z.Score), hashes[i]))
	}
	if len(results) > size {
		cursor := time.UnixMilli(int64(results[size-1].Score)).UTC()
		page.NextCursor = &cursor
	}
	return page, nil
}

func (c *RedisMessageCache) fetchHashes(ctx context.Context, results []redis.Z) ([]map[string]string, error) {
	pipe := c.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(results))
	for _, z := range results {
		cmds = append(cmds, pipe.HGetAll(ctx, messageDataKey(fmt.Sprint(z.Member))))
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

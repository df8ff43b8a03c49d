package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chat-backend/internal/cache"
	"chat-backend/internal/models"
	"chat-backend/internal/observability"
	"chat-backend/internal/repositories"
)

var ErrNotParticipant = errors.New("user is not a chat participant")

// MessageService orchestrates the send flow (persist, cache, deliver,
// reconcile status) and the cache-aside message history pagination.
type MessageService struct {
	chatRepo     repositories.ChatRepository
	messageRepo  repositories.MessageRepository
	chatCache    cache.ChatCache
	messageCache cache.MessageCache
	deliverer    Deliverer
	logger       zerolog.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, chatCache cache.ChatCache, messageCache cache.MessageCache, deliverer Deliverer, logger zerolog.Logger) *MessageService {
	return &MessageService{
		chatRepo:     chatRepo,
		messageRepo:  messageRepo,
		chatCache:    chatCache,
		messageCache: messageCache,
		deliverer:    deliverer,
		logger:       logger,
	}
}

// HandleNewMessage persists a message in sending state, caches it best-effort,
// delivers it to the live connections of the recipients, and reconciles the
// persisted status to sent or failed. A sender who is not a participant is
// dropped silently: that is a stale or forged client, not a retryable failure.
// Offline recipients get the message from history, not from a retry.
func (s *MessageService) HandleNewMessage(ctx context.Context, chatID, senderID string, in models.MessageCreate) (*models.MessageView, error) {
	room, err := s.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(senderID) {
		s.logger.Warn().Str("chat_id", chatID).Str("sender_id", senderID).Msg("sender is not part of the chat, dropping message")
		return nil, nil
	}

	msgType := in.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}
	msg := models.Message{
		ChatID:    room.ID,
		SenderID:  senderID,
		Content:   in.Content,
		Timestamp: time.Now().UTC(),
		Type:      msgType,
		Status:    models.StatusSending,
	}

	messageID, err := s.messageRepo.CreateMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	if oid, err := primitive.ObjectIDFromHex(messageID); err == nil {
		msg.ID = oid
	}

	if err := s.chatRepo.TouchLastUpdated(ctx, chatID, msg.Timestamp); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("chat activity touch failed")
	}
	// Cached room projections order by last activity; bump them alongside the
	// store so a marked-complete index does not serve stale ordering.
	if err := s.chatCache.TouchRoomActivity(ctx, room.Participants, chatID, msg.Timestamp); err != nil {
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("room activity cache touch failed")
	}

	// Cache and deliver with the final status so clients never render a stuck
	// "sending".
	msg.Status = models.StatusSent
	if err := s.messageCache.CacheMessage(ctx, chatID, msg); err != nil {
		s.logger.Warn().Err(err).Str("message_id", messageID).Msg("message cache write failed")
	}
	view := msg.View()
	deliverErr := s.deliver(room, senderID, chatID, &view)
	if deliverErr != nil {
		s.logger.Warn().Err(deliverErr).Str("message_id", messageID).Msg("message delivery failed")
		if _, err := s.messageRepo.UpdateStatus(ctx, messageID, models.StatusFailed); err != nil {
			s.logger.Error().Err(err).Str("message_id", messageID).Msg("failed status update failed")
		}
		view.Status = models.StatusFailed
		return &view, nil
	}

	if _, err := s.messageRepo.UpdateStatus(ctx, messageID, models.StatusSent); err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *MessageService) deliver(room models.ChatRoom, senderID, chatID string, view *models.MessageView) error {
	switch room.ChatType {
	case models.ChatTypePersonal:
		recipientID := room.CounterpartOf(senderID)
		if recipientID == "" {
			s.logger.Warn().Str("chat_id", chatID).Msg("personal chat has no resolvable recipient")
			return nil
		}
		return s.deliverer.SendToUser(recipientID, models.Event{
			Type:    models.EventPersonalMessage,
			ChatID:  chatID,
			Message: view,
		})
	case models.ChatTypeGroup:
		return s.deliverer.BroadcastToParticipants(room.Participants, models.Event{
			Type:    models.EventGroupMessage,
			ChatID:  chatID,
			Message: view,
		}, map[string]struct{}{senderID: {}})
	}
	return nil
}

// GetMessageHistory pages a chat's messages newest-first. The cache page is
// served only when its hashes are intact and, on a first page, when the
// complete-count marker does not contradict it; everything else reads the
// store and backfills.
func (s *MessageService) GetMessageHistory(ctx context.Context, userID, chatID, cursor string, size int) (models.MessagePage, error) {
	if size <= 0 {
		size = DefaultPageSize
	}

	room, err := s.chatRepo.GetChat(ctx, chatID)
	if err != nil {
		return models.MessagePage{}, err
	}
	if !room.HasParticipant(userID) {
		return models.MessagePage{}, ErrNotParticipant
	}

	before, err := parseMessageCursor(cursor)
	if err != nil {
		return models.MessagePage{}, err
	}

	page, err := s.messageCache.ReadMessagesPage(ctx, chatID, before, size)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("message cache read failed")
		observability.IncCacheOutcome("messages", "error_fallback")
	case !page.Valid:
		observability.IncCacheOutcome("messages", "invalid")
	case len(page.Items) > 0:
		observability.IncCacheOutcome("messages", "hit")
		result := models.MessagePage{Items: page.Items}
		if page.NextCursor != nil {
			result.NextCursor = formatMessageCursor(*page.NextCursor)
		}
		return result, nil
	default:
		observability.IncCacheOutcome("messages", "empty")
	}

	return s.messageHistoryFromStore(ctx, chatID, before, size)
}

func (s *MessageService) messageHistoryFromStore(ctx context.Context, chatID string, before *time.Time, size int) (models.MessagePage, error) {
	msgs, err := s.messageRepo.ListMessagesPage(ctx, chatID, before, size+1)
	if err != nil {
		return models.MessagePage{}, err
	}

	pageMsgs := msgs
	if len(pageMsgs) > size {
		pageMsgs = pageMsgs[:size]
	}

	result := models.MessagePage{Items: make([]models.MessageView, 0, len(pageMsgs))}
	for _, msg := range pageMsgs {
		result.Items = append(result.Items, msg.View())
	}

	backfilled := true
	for _, msg := range pageMsgs {
		if err := s.messageCache.CacheMessage(ctx, chatID, msg); err != nil {
			s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("message cache backfill failed")
			backfilled = false
			break
		}
	}
	// The count marker is written only for a clean, unfiltered first page; it
	// is what later distinguishes a small chat from a partially expired index.
	if backfilled && before == nil {
		if err := s.messageCache.SetCompleteCount(ctx, chatID, len(pageMsgs)); err != nil {
			s.logger.Warn().Err(err).Str("chat_id", chatID).Msg("message complete count write failed")
		}
	}

	if len(msgs) > size {
		result.NextCursor = formatMessageCursor(msgs[size-1].Timestamp)
	}
	return result, nil
}

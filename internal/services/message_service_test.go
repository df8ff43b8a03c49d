package services_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"chat-backend/internal/cache"
	"chat-backend/internal/mocks"
	"chat-backend/internal/models"
	"chat-backend/internal/services"
)

func newMessageService(chatRepo *mocks.ChatRepositoryMock, messageRepo *mocks.MessageRepositoryMock, chatCache *mocks.ChatCacheMock, messageCache *mocks.MessageCacheMock, deliverer *mocks.DelivererMock) *services.MessageService {
	return services.NewMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer, zerolog.Nop())
}

func personalRoom(a, b string) models.ChatRoom {
	return models.ChatRoom{
		ID:           primitive.NewObjectID(),
		ChatType:     models.ChatTypePersonal,
		Participants: []string{a, b},
	}
}

func TestHandleNewMessagePersonalDeliveredAsSent(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatCache := new(mocks.ChatCacheMock)
	messageCache := new(mocks.MessageCacheMock)
	deliverer := new(mocks.DelivererMock)
	svc := newMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer)

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	messageID := primitive.NewObjectID()

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Status == models.StatusSending && msg.Content == "hi" && msg.SenderID == "u1"
	})).Return(messageID.Hex(), nil).Once()
	chatRepo.On("TouchLastUpdated", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	chatCache.On("TouchRoomActivity", mock.Anything, room.Participants, chatID, mock.Anything).Return(nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, mock.MatchedBy(func(msg models.Message) bool {
		return msg.Status == models.StatusSent
	})).Return(nil).Once()
	deliverer.On("SendToUser", "u2", mock.MatchedBy(func(event models.Event) bool {
		return event.Type == models.EventPersonalMessage && event.Message.Status == models.StatusSent
	})).Return(nil).Once()
	messageRepo.On("UpdateStatus", mock.Anything, messageID.Hex(), models.StatusSent).Return(true, nil).Once()

	view, err := svc.HandleNewMessage(context.Background(), chatID, "u1", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, models.StatusSent, view.Status)
	assert.Equal(t, "u1", view.SenderID)
	assert.Equal(t, models.MessageTypeText, view.Type)

	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	chatCache.AssertExpectations(t)
	messageCache.AssertExpectations(t)
	deliverer.AssertExpectations(t)
}

func TestHandleNewMessageRefreshesRoomActivityForAllParticipants(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatCache := new(mocks.ChatCacheMock)
	messageCache := new(mocks.MessageCacheMock)
	deliverer := new(mocks.DelivererMock)
	svc := newMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer)

	room := models.ChatRoom{
		ID:           primitive.NewObjectID(),
		ChatType:     models.ChatTypeGroup,
		Participants: []string{"u1", "u2", "u3"},
	}
	chatID := room.ID.Hex()
	messageID := primitive.NewObjectID()

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(messageID.Hex(), nil).Once()
	chatRepo.On("TouchLastUpdated", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	chatCache.On("TouchRoomActivity", mock.Anything, []string{"u1", "u2", "u3"}, chatID, mock.MatchedBy(func(ts time.Time) bool {
		return !ts.IsZero()
	})).Return(nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	deliverer.On("BroadcastToParticipants", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	messageRepo.On("UpdateStatus", mock.Anything, messageID.Hex(), models.StatusSent).Return(true, nil).Once()

	_, err := svc.HandleNewMessage(context.Background(), chatID, "u1", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	chatCache.AssertExpectations(t)
}

func TestHandleNewMessageRoomActivityTouchErrorIsAbsorbed(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatCache := new(mocks.ChatCacheMock)
	messageCache := new(mocks.MessageCacheMock)
	deliverer := new(mocks.DelivererMock)
	svc := newMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer)

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	messageID := primitive.NewObjectID()

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(messageID.Hex(), nil).Once()
	chatRepo.On("TouchLastUpdated", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	chatCache.On("TouchRoomActivity", mock.Anything, room.Participants, chatID, mock.Anything).Return(assert.AnError).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	deliverer.On("SendToUser", "u2", mock.Anything).Return(nil).Once()
	messageRepo.On("UpdateStatus", mock.Anything, messageID.Hex(), models.StatusSent).Return(true, nil).Once()

	view, err := svc.HandleNewMessage(context.Background(), chatID, "u1", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, view.Status)
}

func TestHandleNewMessageDeliveryFailureMarksFailed(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatCache := new(mocks.ChatCacheMock)
	messageCache := new(mocks.MessageCacheMock)
	deliverer := new(mocks.DelivererMock)
	svc := newMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer)

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	messageID := primitive.NewObjectID()

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(messageID.Hex(), nil).Once()
	chatRepo.On("TouchLastUpdated", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	chatCache.On("TouchRoomActivity", mock.Anything, room.Participants, chatID, mock.Anything).Return(nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	deliverer.On("SendToUser", "u2", mock.Anything).Return(assert.AnError).Once()
	messageRepo.On("UpdateStatus", mock.Anything, messageID.Hex(), models.StatusFailed).Return(true, nil).Once()

	view, err := svc.HandleNewMessage(context.Background(), chatID, "u1", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, models.StatusFailed, view.Status)

	messageRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, messageID.Hex(), models.StatusSent)
	messageRepo.AssertExpectations(t)
}

func TestHandleNewMessageDropsNonParticipantSilently(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	svc := newMessageService(chatRepo, messageRepo, new(mocks.ChatCacheMock), new(mocks.MessageCacheMock), new(mocks.DelivererMock))

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()

	view, err := svc.HandleNewMessage(context.Background(), chatID, "intruder", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	assert.Nil(t, view)

	messageRepo.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestHandleNewMessageCacheErrorStillDelivers(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatCache := new(mocks.ChatCacheMock)
	messageCache := new(mocks.MessageCacheMock)
	deliverer := new(mocks.DelivererMock)
	svc := newMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer)

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	messageID := primitive.NewObjectID()

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(messageID.Hex(), nil).Once()
	chatRepo.On("TouchLastUpdated", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	chatCache.On("TouchRoomActivity", mock.Anything, room.Participants, chatID, mock.Anything).Return(nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, mock.Anything).Return(assert.AnError).Once()
	deliverer.On("SendToUser", "u2", mock.Anything).Return(nil).Once()
	messageRepo.On("UpdateStatus", mock.Anything, messageID.Hex(), models.StatusSent).Return(true, nil).Once()

	view, err := svc.HandleNewMessage(context.Background(), chatID, "u1", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, view.Status)
	deliverer.AssertExpectations(t)
}

func TestHandleNewMessageGroupBroadcastExcludesSender(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	chatCache := new(mocks.ChatCacheMock)
	messageCache := new(mocks.MessageCacheMock)
	deliverer := new(mocks.DelivererMock)
	svc := newMessageService(chatRepo, messageRepo, chatCache, messageCache, deliverer)

	room := models.ChatRoom{
		ID:           primitive.NewObjectID(),
		ChatType:     models.ChatTypeGroup,
		Participants: []string{"u1", "u2", "u3"},
	}
	chatID := room.ID.Hex()
	messageID := primitive.NewObjectID()

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageRepo.On("CreateMessage", mock.Anything, mock.Anything).Return(messageID.Hex(), nil).Once()
	chatRepo.On("TouchLastUpdated", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	chatCache.On("TouchRoomActivity", mock.Anything, room.Participants, chatID, mock.Anything).Return(nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, mock.Anything).Return(nil).Once()
	deliverer.On("BroadcastToParticipants", room.Participants, mock.Anything, map[string]struct{}{"u1": {}}).Return(nil).Once()
	messageRepo.On("UpdateStatus", mock.Anything, messageID.Hex(), models.StatusSent).Return(true, nil).Once()

	_, err := svc.HandleNewMessage(context.Background(), chatID, "u1", models.MessageCreate{Content: "hi"})
	require.NoError(t, err)
	deliverer.AssertExpectations(t)
}

func TestGetMessageHistoryForbiddenForOutsider(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	svc := newMessageService(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.ChatCacheMock), new(mocks.MessageCacheMock), new(mocks.DelivererMock))

	room := personalRoom("u1", "u2")
	chatRepo.On("GetChat", mock.Anything, room.ID.Hex()).Return(room, nil).Once()

	_, err := svc.GetMessageHistory(context.Background(), "intruder", room.ID.Hex(), "", 10)
	require.ErrorIs(t, err, services.ErrNotParticipant)
}

func TestGetMessageHistoryRejectsBadCursor(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	svc := newMessageService(chatRepo, new(mocks.MessageRepositoryMock), new(mocks.ChatCacheMock), new(mocks.MessageCacheMock), new(mocks.DelivererMock))

	room := personalRoom("u1", "u2")
	chatRepo.On("GetChat", mock.Anything, room.ID.Hex()).Return(room, nil).Once()

	_, err := svc.GetMessageHistory(context.Background(), "u1", room.ID.Hex(), "not-a-cursor", 10)
	require.ErrorIs(t, err, services.ErrInvalidCursor)
}

func TestGetMessageHistoryCacheHitSkipsStore(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	messageCache := new(mocks.MessageCacheMock)
	svc := newMessageService(chatRepo, messageRepo, new(mocks.ChatCacheMock), messageCache, new(mocks.DelivererMock))

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageCache.On("ReadMessagesPage", mock.Anything, chatID, (*time.Time)(nil), 10).Return(cache.CachedMessagePage{
		Valid:      true,
		Items:      []models.MessageView{{ID: "m1", Content: "hi", Timestamp: t1}},
		NextCursor: &t1,
	}, nil).Once()

	page, err := svc.GetMessageHistory(context.Background(), "u1", chatID, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hi", page.Items[0].Content)
	assert.Equal(t, strconv.FormatInt(t1.UnixMilli(), 10), page.NextCursor)

	messageRepo.AssertNotCalled(t, "ListMessagesPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetMessageHistoryStoreFallbackPaginatesAndBackfills(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	messageCache := new(mocks.MessageCacheMock)
	svc := newMessageService(chatRepo, messageRepo, new(mocks.ChatCacheMock), messageCache, new(mocks.DelivererMock))

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)
	msgs := []models.Message{
		{ID: primitive.NewObjectID(), ChatID: room.ID, SenderID: "u1", Content: "three", Timestamp: t3},
		{ID: primitive.NewObjectID(), ChatID: room.ID, SenderID: "u2", Content: "two", Timestamp: t2},
		{ID: primitive.NewObjectID(), ChatID: room.ID, SenderID: "u1", Content: "one", Timestamp: t1},
	}

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageCache.On("ReadMessagesPage", mock.Anything, chatID, (*time.Time)(nil), 2).Return(cache.CachedMessagePage{}, assert.AnError).Once()
	messageRepo.On("ListMessagesPage", mock.Anything, chatID, (*time.Time)(nil), 3).Return(msgs, nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, msgs[0]).Return(nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, msgs[1]).Return(nil).Once()
	messageCache.On("SetCompleteCount", mock.Anything, chatID, 2).Return(nil).Once()

	page, err := svc.GetMessageHistory(context.Background(), "u1", chatID, "", 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "three", page.Items[0].Content)
	assert.Equal(t, "two", page.Items[1].Content)
	assert.Equal(t, strconv.FormatInt(t2.UnixMilli(), 10), page.NextCursor)

	messageCache.AssertExpectations(t)
}

func TestGetMessageHistoryCursorPageSkipsCompleteCount(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	messageCache := new(mocks.MessageCacheMock)
	svc := newMessageService(chatRepo, messageRepo, new(mocks.ChatCacheMock), messageCache, new(mocks.DelivererMock))

	room := personalRoom("u1", "u2")
	chatID := room.ID.Hex()
	t1 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	cursor := strconv.FormatInt(t1.Add(time.Minute).UnixMilli(), 10)
	msgs := []models.Message{
		{ID: primitive.NewObjectID(), ChatID: room.ID, SenderID: "u1", Content: "one", Timestamp: t1},
	}

	chatRepo.On("GetChat", mock.Anything, chatID).Return(room, nil).Once()
	messageCache.On("ReadMessagesPage", mock.Anything, chatID, mock.Anything, 2).Return(cache.CachedMessagePage{Valid: true}, nil).Once()
	messageRepo.On("ListMessagesPage", mock.Anything, chatID, mock.Anything, 3).Return(msgs, nil).Once()
	messageCache.On("CacheMessage", mock.Anything, chatID, msgs[0]).Return(nil).Once()

	page, err := svc.GetMessageHistory(context.Background(), "u1", chatID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.NextCursor)

	messageCache.AssertNotCalled(t, "SetCompleteCount", mock.Anything, mock.Anything, mock.Anything)
}

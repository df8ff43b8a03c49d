package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-backend/internal/cache"
	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
	"chat-backend/internal/services"
)

type ChatRepositoryMock struct {
	mock.Mock
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.ChatRoom, error) {
	args := m.Called(ctx, chatID)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, room models.ChatRoom) (string, error) {
	args := m.Called(ctx, room)
	return args.String(0), args.Error(1)
}

func (m *ChatRepositoryMock) FindPersonalChatBetween(ctx context.Context, userA, userB string) (models.ChatRoom, bool, error) {
	args := m.Called(ctx, userA, userB)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Bool(1), args.Error(2)
}

func (m *ChatRepositoryMock) ListChatRoomsPage(ctx context.Context, userID string, before *time.Time, limit int) ([]models.ChatRoom, error) {
	args := m.Called(ctx, userID, before, limit)
	var rooms []models.ChatRoom
	if val := args.Get(0); val != nil {
		rooms = val.([]models.ChatRoom)
	}
	return rooms, args.Error(1)
}

func (m *ChatRepositoryMock) TouchLastUpdated(ctx context.Context, chatID string, ts time.Time) error {
	args := m.Called(ctx, chatID, ts)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, msg models.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateStatus(ctx context.Context, messageID string, status models.MessageStatus) (bool, error) {
	args := m.Called(ctx, messageID, status)
	return args.Bool(0), args.Error(1)
}

func (m *MessageRepositoryMock) ListMessagesPage(ctx context.Context, chatID string, before *time.Time, limit int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, before, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)

func (m *UserRepositoryMock) UsernamesByIDs(ctx context.Context, userIDs []string) (map[string]string, error) {
	args := m.Called(ctx, userIDs)
	var usernames map[string]string
	if val := args.Get(0); val != nil {
		usernames = val.(map[string]string)
	}
	return usernames, args.Error(1)
}

type ChatCacheMock struct {
	mock.Mock
}

var _ cache.ChatCache = (*ChatCacheMock)(nil)

func (m *ChatCacheMock) CacheChatRoom(ctx context.Context, userID string, room models.ChatRoom) error {
	args := m.Called(ctx, userID, room)
	return args.Error(0)
}

func (m *ChatCacheMock) TouchRoomActivity(ctx context.Context, userIDs []string, chatID string, ts time.Time) error {
	args := m.Called(ctx, userIDs, chatID, ts)
	return args.Error(0)
}

func (m *ChatCacheMock) MarkComplete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *ChatCacheMock) IsComplete(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatCacheMock) ReadRoomsPage(ctx context.Context, userID string, before *time.Time, size int) (cache.CachedRoomPage, error) {
	args := m.Called(ctx, userID, before, size)
	var page cache.CachedRoomPage
	if val := args.Get(0); val != nil {
		page = val.(cache.CachedRoomPage)
	}
	return page, args.Error(1)
}

type MessageCacheMock struct {
	mock.Mock
}

var _ cache.MessageCache = (*MessageCacheMock)(nil)

func (m *MessageCacheMock) CacheMessage(ctx context.Context, chatID string, msg models.Message) error {
	args := m.Called(ctx, chatID, msg)
	return args.Error(0)
}

func (m *MessageCacheMock) SetCompleteCount(ctx context.Context, chatID string, count int) error {
	args := m.Called(ctx, chatID, count)
	return args.Error(0)
}

func (m *MessageCacheMock) ReadMessagesPage(ctx context.Context, chatID string, before *time.Time, size int) (cache.CachedMessagePage, error) {
	args := m.Called(ctx, chatID, before, size)
	var page cache.CachedMessagePage
	if val := args.Get(0); val != nil {
		page = val.(cache.CachedMessagePage)
	}
	return page, args.Error(1)
}

type DelivererMock struct {
	mock.Mock
}

var _ services.Deliverer = (*DelivererMock)(nil)

func (m *DelivererMock) SendToUser(userID string, event models.Event) error {
	args := m.Called(userID, event)
	return args.Error(0)
}

func (m *DelivererMock) BroadcastToParticipants(participantIDs []string, event models.Event, excludeUserIDs map[string]struct{}) error {
	args := m.Called(participantIDs, event, excludeUserIDs)
	return args.Error(0)
}

type TokenVerifierMock struct {
	mock.Mock
}

func (m *TokenVerifierMock) Verify(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

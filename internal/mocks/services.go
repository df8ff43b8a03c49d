package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-backend/internal/models"
)

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) CreatePersonalChat(ctx context.Context, userID string, participants []string) (models.ChatRoom, error) {
	args := m.Called(ctx, userID, participants)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *ChatServiceMock) CreateGroupChat(ctx context.Context, userID, name string, participants, admins []string) (models.ChatRoom, error) {
	args := m.Called(ctx, userID, name, participants, admins)
	var room models.ChatRoom
	if val := args.Get(0); val != nil {
		room = val.(models.ChatRoom)
	}
	return room, args.Error(1)
}

func (m *ChatServiceMock) GetChatMembers(ctx context.Context, chatID string) ([]string, error) {
	args := m.Called(ctx, chatID)
	var members []string
	if val := args.Get(0); val != nil {
		members = val.([]string)
	}
	return members, args.Error(1)
}

func (m *ChatServiceMock) ListChatRooms(ctx context.Context, userID, cursor string, size int) (models.ChatRoomPage, error) {
	args := m.Called(ctx, userID, cursor, size)
	var page models.ChatRoomPage
	if val := args.Get(0); val != nil {
		page = val.(models.ChatRoomPage)
	}
	return page, args.Error(1)
}

type MessageServiceMock struct {
	mock.Mock
}

func (m *MessageServiceMock) HandleNewMessage(ctx context.Context, chatID, senderID string, in models.MessageCreate) (*models.MessageView, error) {
	args := m.Called(ctx, chatID, senderID, in)
	var view *models.MessageView
	if val := args.Get(0); val != nil {
		view = val.(*models.MessageView)
	}
	return view, args.Error(1)
}

func (m *MessageServiceMock) GetMessageHistory(ctx context.Context, userID, chatID, cursor string, size int) (models.MessagePage, error) {
	args := m.Called(ctx, userID, chatID, cursor, size)
	var page models.MessagePage
	if val := args.Get(0); val != nil {
		page = val.(models.MessagePage)
	}
	return page, args.Error(1)
}

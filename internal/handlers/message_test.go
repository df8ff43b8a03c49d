package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/mocks"
	"chat-backend/internal/models"
	"chat-backend/internal/services"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.GET("/api/chats/:chat_id/messages", handler.GetHistory)
	return r
}

func TestGetHistorySuccess(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	router := setupMessageRouter(NewMessageHandler(messages))

	messages.On("GetMessageHistory", mock.Anything, "u1", "c1", "", 0).
		Return(models.MessagePage{
			Items:      []models.MessageView{{ID: "m1", Content: "hi", SenderID: "u2"}},
			NextCursor: "1785578400000",
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page models.MessagePage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "hi", page.Items[0].Content)
	assert.Equal(t, "1785578400000", page.NextCursor)
	messages.AssertExpectations(t)
}

func TestGetHistoryForbidden(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	router := setupMessageRouter(NewMessageHandler(messages))

	messages.On("GetMessageHistory", mock.Anything, "u1", "c1", "", 0).
		Return(models.MessagePage{}, services.ErrNotParticipant).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/c1/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messages.AssertExpectations(t)
}

func TestGetHistoryBadCursor(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	router := setupMessageRouter(NewMessageHandler(messages))

	messages.On("GetMessageHistory", mock.Anything, "u1", "c1", "garbage", 0).
		Return(models.MessagePage{}, services.ErrInvalidCursor).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/c1/messages?cursor=garbage", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messages.AssertExpectations(t)
}

func TestGetHistoryIgnoresMalformedLimit(t *testing.T) {
	messages := new(mocks.MessageServiceMock)
	router := setupMessageRouter(NewMessageHandler(messages))

	messages.On("GetMessageHistory", mock.Anything, "u1", "c1", "", 0).
		Return(models.MessagePage{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/c1/messages?limit=lots", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messages.AssertExpectations(t)
}

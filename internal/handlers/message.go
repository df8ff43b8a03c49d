package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/repositories"
	"chat-backend/internal/services"
)

// MessageService is the slice of message operations the HTTP layer drives.
type MessageService interface {
	GetMessageHistory(ctx context.Context, userID, chatID, cursor string, size int) (models.MessagePage, error)
}

// MessageHandler serves the message history endpoint.
type MessageHandler struct {
	messages MessageService
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messages MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// GetHistory returns one newest-first page of a chat's messages.
func (h *MessageHandler) GetHistory(c *gin.Context) {
	page, err := h.messages.GetMessageHistory(
		c.Request.Context(),
		middleware.UserID(c),
		c.Param("chat_id"),
		c.Query("cursor"),
		pageSize(c),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidParticipants),
		errors.Is(err, services.ErrInvalidCursor),
		errors.Is(err, repositories.ErrInvalidChatID),
		errors.Is(err, repositories.ErrInvalidMessageID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

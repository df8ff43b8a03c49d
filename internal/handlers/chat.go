package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-backend/internal/middleware"
	"chat-backend/internal/models"
)

// ChatService is the slice of chat operations the HTTP layer drives.
type ChatService interface {
	CreatePersonalChat(ctx context.Context, userID string, participants []string) (models.ChatRoom, error)
	CreateGroupChat(ctx context.Context, userID, name string, participants, admins []string) (models.ChatRoom, error)
	GetChatMembers(ctx context.Context, chatID string) ([]string, error)
	ListChatRooms(ctx context.Context, userID, cursor string, size int) (models.ChatRoomPage, error)
}

// ChatHandler serves the chat room endpoints.
type ChatHandler struct {
	chats ChatService
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats ChatService) *ChatHandler {
	return &ChatHandler{chats: chats}
}

// CreatePersonalChat creates a 1:1 chat, or returns the existing one for the
// same pair.
func (h *ChatHandler) CreatePersonalChat(c *gin.Context) {
	var req struct {
		Participants []string `json:"participants" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.chats.CreatePersonalChat(c.Request.Context(), middleware.UserID(c), req.Participants)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// CreateGroupChat creates a named group chat.
func (h *ChatHandler) CreateGroupChat(c *gin.Context) {
	var req struct {
		Name         string   `json:"name" binding:"required"`
		Participants []string `json:"participants" binding:"required"`
		Admins       []string `json:"admins"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.chats.CreateGroupChat(c.Request.Context(), middleware.UserID(c), req.Name, req.Participants, req.Admins)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// ListChats returns one newest-first page of the caller's chat rooms.
func (h *ChatHandler) ListChats(c *gin.Context) {
	page, err := h.chats.ListChatRooms(c.Request.Context(), middleware.UserID(c), c.Query("cursor"), pageSize(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetChatMembers returns the participant ids of a chat.
func (h *ChatHandler) GetChatMembers(c *gin.Context) {
	members, err := h.chats.GetChatMembers(c.Request.Context(), c.Param("chat_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// pageSize parses the optional limit query parameter; the service applies its
// own default for zero.
func pageSize(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 0 {
		return 0
	}
	return size
}

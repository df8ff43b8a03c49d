package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"chat-backend/internal/middleware"
	"chat-backend/internal/models"
	"chat-backend/internal/observability"
)

// MessageService is the slice of message operations the websocket endpoint
// drives.
type MessageService interface {
	HandleNewMessage(ctx context.Context, chatID, senderID string, in models.MessageCreate) (*models.MessageView, error)
	GetMessageHistory(ctx context.Context, userID, chatID, cursor string, size int) (models.MessagePage, error)
}

// inboundFrame is a client request on an open connection.
type inboundFrame struct {
	Type    string                `json:"type"`
	ChatID  string                `json:"chat_id"`
	Cursor  string                `json:"cursor,omitempty"`
	Limit   int                   `json:"limit,omitempty"`
	Message *models.MessageCreate `json:"message,omitempty"`
}

// historyFrame is the reply to a load_chat request.
type historyFrame struct {
	Type   string             `json:"type"`
	ChatID string             `json:"chat_id"`
	Page   models.MessagePage `json:"page"`
}

// errorFrame reports a failed request back on the connection.
type errorFrame struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id,omitempty"`
	Error  string `json:"error"`
}

// Handler upgrades websocket connections and runs their read loops.
type Handler struct {
	hub      *Hub
	messages MessageService
	verifier middleware.TokenVerifier
	logger   zerolog.Logger
}

func NewHandler(hub *Hub, messages MessageService, verifier middleware.TokenVerifier, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		messages: messages,
		verifier: verifier,
		logger:   logger.With().Str("component", "ws_handler").Logger(),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades and registers the connection, then serves
// frames until the peer goes away.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-backend/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := middleware.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	userID, err := h.verifier.Verify(ctx, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	raw, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	conn := NewConn(raw)

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.Connect(conn, info)

	observability.IncWSEvent("ws_connect")
	h.publishLifecycle(ctx, "ws_connect", info, 0, "")

	// The request context is canceled the moment Handle returns; the loop
	// lives as long as the connection, so detach from the cancellation while
	// keeping the trace values.
	go h.readLoop(context.WithoutCancel(ctx), conn, info)
}

func (h *Handler) readLoop(ctx context.Context, conn *Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		h.hub.Disconnect(conn, info.UserID)
		conn.Close()
		observability.IncWSEvent("ws_disconnect")
		h.publishLifecycle(ctx, "ws_disconnect", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason)
	}()

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				h.publishLifecycle(ctx, "ws_error", info, time.Since(info.ConnectedAt).Milliseconds(), closeReason)
			}
			return
		}
		h.handleFrame(ctx, conn, info, frame)
	}
}

func (h *Handler) handleFrame(ctx context.Context, conn *Conn, info ConnInfo, frame inboundFrame) {
	switch frame.Type {
	case "load_chat":
		page, err := h.messages.GetMessageHistory(ctx, info.UserID, frame.ChatID, frame.Cursor, frame.Limit)
		if err != nil {
			h.writeError(conn, frame.ChatID, err)
			return
		}
		if err := conn.WriteJSON(historyFrame{Type: "chat_history", ChatID: frame.ChatID, Page: page}); err != nil {
			h.logger.Warn().Err(err).Str("conn_id", info.ConnID).Msg("history write failed")
		}
	case "new_message":
		if frame.Message == nil || frame.Message.Content == "" {
			h.writeError(conn, frame.ChatID, errEmptyMessage)
			return
		}
		if _, err := h.messages.HandleNewMessage(ctx, frame.ChatID, info.UserID, *frame.Message); err != nil {
			h.writeError(conn, frame.ChatID, err)
		}
	default:
		h.writeError(conn, frame.ChatID, errUnknownFrame)
	}
}

func (h *Handler) writeError(conn *Conn, chatID string, err error) {
	if werr := conn.WriteJSON(errorFrame{Type: "error", ChatID: chatID, Error: err.Error()}); werr != nil {
		h.logger.Warn().Err(werr).Msg("error frame write failed")
	}
}

func (h *Handler) publishLifecycle(ctx context.Context, event string, info ConnInfo, durationMS int64, reason string) {
	_ = observability.PublishEvent(ctx, observability.RoutingKeyWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: observability.WSEventPayload{
			Event:      event,
			ConnID:     info.ConnID,
			UserID:     info.UserID,
			IP:         info.IP,
			RequestID:  info.RequestID,
			TraceID:    info.TraceID,
			DurationMS: durationMS,
			Reason:     reason,
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

package handlers

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/api/dto"
	"github.com/spec-kit/incident-report-service/internal/auth"
	"github.com/spec-kit/incident-report-service/internal/domain"
	"github.com/spec-kit/incident-report-service/internal/service"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

const wsClaimsKey = "ws_claims"

// ChatSocketHandler bridges the chat service's live subscriptions onto
// websocket connections. Every frame written is a full snapshot, never a
// delta; closing the socket cancels the subscription.
type ChatSocketHandler struct {
	chat   *service.ChatService
	tokens *auth.TokenManager
	logger *zap.Logger
}

// NewChatSocketHandler constructs handler.
func NewChatSocketHandler(chatService *service.ChatService, tokens *auth.TokenManager, logger *zap.Logger) *ChatSocketHandler {
	return &ChatSocketHandler{chat: chatService, tokens: tokens, logger: logger}
}

// Upgrade authenticates the bearer token carried in the query string before
// the protocol switch. Browsers cannot set headers on websocket dials.
func (h *ChatSocketHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := h.tokens.ParseToken(c.Query("token"))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	c.Locals(wsClaimsKey, claims)
	return c.Next()
}

// Conversations streams the admin inbox: sorted, unread-flagged snapshots on
// every chat mutation.
func (h *ChatSocketHandler) Conversations() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		claims, _ := conn.Locals(wsClaimsKey).(*auth.Claims)
		if claims == nil || claims.Role != domain.RoleAdmin {
			_ = conn.WriteJSON(fiber.Map{"error": "admin role required"})
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		snapshots := make(chan []domain.ConversationView, 1)
		sub, err := h.chat.SubscribeConversations(ctx, func(views []domain.ConversationView) {
			queueLatest(snapshots, views)
		})
		if err != nil {
			h.logger.Warn("conversation subscription failed", zap.Error(err))
			_ = conn.WriteJSON(fiber.Map{"error": "subscription unavailable"})
			_ = conn.Close()
			return
		}
		defer sub.Cancel()

		go watchClose(conn, cancel)
		writeLoop(ctx, conn, snapshots, func(views []domain.ConversationView) any {
			return dto.NewConversationResponses(views)
		})
	})
}

// Messages streams the full ordered message set for one conversation.
func (h *ChatSocketHandler) Messages() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		claims, _ := conn.Locals(wsClaimsKey).(*auth.Claims)
		chatID := conn.Params("chatID")
		if claims == nil || (claims.Role != domain.RoleAdmin && claims.SubjectID != chatID) {
			_ = conn.WriteJSON(fiber.Map{"error": "access denied"})
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		snapshots := make(chan []domain.ChatMessage, 1)
		sub, err := h.chat.SubscribeMessages(ctx, chatID, func(msgs []domain.ChatMessage) {
			queueLatest(snapshots, msgs)
		})
		if err != nil {
			h.logger.Warn("message subscription failed", zap.String("chat_id", chatID), zap.Error(err))
			_ = conn.WriteJSON(fiber.Map{"error": "subscription unavailable"})
			_ = conn.Close()
			return
		}
		defer sub.Cancel()

		go watchClose(conn, cancel)
		writeLoop(ctx, conn, snapshots, func(msgs []domain.ChatMessage) any {
			return dto.NewMessageResponses(msgs)
		})
	})
}

func writeLoop[T any](ctx context.Context, conn *websocket.Conn, snapshots <-chan []T, encode func([]T) any) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-snapshots:
			if err := conn.WriteJSON(encode(snapshot)); err != nil {
				return
			}
		}
	}
}

// queueLatest replaces any pending snapshot so slow sockets always get the
// newest state instead of a backlog.
func queueLatest[T any](ch chan []T, snapshot []T) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// watchClose drains the socket until the peer disconnects, then cancels the
// subscription context.
func watchClose(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

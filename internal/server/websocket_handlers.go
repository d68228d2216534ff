package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"safeguard/internal/middleware"
	"safeguard/internal/models"
	"safeguard/internal/notifications"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const localWSAuthError = "wsAuthError"

// incomingFrame is one client-to-server chat frame. Target is the
// flat-channel alternative to RoomID.
type incomingFrame struct {
	RoomID  string `json:"room_id"`
	Target  string `json:"target"`
	Content string `json:"content"`
}

// WebSocketHandler serves GET /ws/:token. The token is validated before the
// upgrade; an invalid token still completes the handshake and is then closed
// with a policy-violation frame so browser clients can read the reason.
func (s *Server) WebSocketHandler() fiber.Handler {
	ws := websocket.New(s.serveChatSocket)

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		_, p, err := s.authenticate(c, c.Params("token"))
		switch {
		case err != nil:
			c.Locals(localWSAuthError, "Invalid token")
		case p.ForceReset:
			c.Locals(localWSAuthError, "Password reset required")
		default:
			c.Locals(localUserID, p.UserID)
		}
		return ws(c)
	}
}

func (s *Server) serveChatSocket(conn *websocket.Conn) {
	if reason, _ := conn.Locals(localWSAuthError).(string); reason != "" {
		_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
		_ = conn.Close()
		return
	}
	userID, ok := conn.Locals(localUserID).(uint)
	if !ok {
		_ = conn.Close()
		return
	}

	ctx := s.shutdownCtx
	if ctx == nil {
		ctx = context.Background()
	}

	client := notifications.NewClient(conn, userID)
	client.IncomingHandler = func(_ *notifications.Client, raw []byte) error {
		s.handleIncomingFrame(ctx, userID, raw)
		return nil
	}
	client.OnPong = func() { s.registry.Heartbeat(ctx, userID) }

	s.registry.Connect(userID, client)

	go client.WritePump()
	client.ReadPump(ctx, func(reason string) {
		if s.registry.Disconnect(userID, client) {
			middleware.Logger.DebugContext(ctx, "chat socket closed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("reason", reason),
			)
		}
	})
}

// handleIncomingFrame persists and fans out one chat frame. Malformed frames
// are skipped and failures are logged; neither ends the connection.
func (s *Server) handleIncomingFrame(ctx context.Context, userID uint, raw []byte) {
	var frame incomingFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	if strings.TrimSpace(frame.Content) == "" {
		return
	}

	var (
		msg *models.Message
		err error
	)
	switch {
	case frame.RoomID != "":
		roomID, perr := uuid.Parse(frame.RoomID)
		if perr != nil {
			return
		}
		s.registry.Touch(ctx, userID, roomID)
		msg, err = s.chatService.SendMessage(ctx, service.SendMessageInput{
			SenderID: userID,
			RoomID:   roomID,
			Content:  frame.Content,
			Source:   service.SourceWebSocket,
		})
	case frame.Target != "":
		msg, err = s.chatService.SendToTarget(ctx, userID, frame.Target, frame.Content, service.SourceWebSocket)
	default:
		return
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "chat frame rejected",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		return
	}
	s.broadcastMessage(ctx, msg)
}

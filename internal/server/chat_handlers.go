package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"safeguard/internal/middleware"
	"safeguard/internal/models"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultMessagePageSize = 50

func publicMessages(msgs []models.Message) []models.MessagePublic {
	out := make([]models.MessagePublic, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].Public())
	}
	return out
}

// broadcastMessage fans a stored message out to the room's audience. The
// message is already persisted, so delivery failures are only logged.
func (s *Server) broadcastMessage(ctx context.Context, msg *models.Message) {
	payload, err := json.Marshal(msg.Public())
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "marshal chat message", slog.String("error", err.Error()))
		return
	}
	if _, err := s.registry.BroadcastToRoom(ctx, msg.RoomID, payload); err != nil {
		middleware.Logger.WarnContext(ctx, "chat broadcast failed",
			slog.String("room_id", msg.RoomID.String()),
			slog.String("error", err.Error()),
		)
	}
}

type messageRequest struct {
	Content string `json:"content"`
	Message string `json:"message"`
}

func (r messageRequest) text() string {
	if r.Content != "" {
		return r.Content
	}
	return r.Message
}

// StartChat handles POST /chat/rooms with {recipient_email}
func (s *Server) StartChat(c *fiber.Ctx) error {
	var req struct {
		RecipientEmail string `json:"recipient_email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	room, err := s.chatService.StartPrivateChat(c.UserContext(), userIDFrom(c), req.RecipientEmail)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(room)
}

// ListRooms handles GET /chat/rooms
func (s *Server) ListRooms(c *fiber.Ctx) error {
	rooms, err := s.chatService.ListRooms(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(rooms)
}

// GetRoomMessages handles GET /chat/rooms/:roomId/messages?limit=&offset=
func (s *Server) GetRoomMessages(c *fiber.Ctx) error {
	roomID, err := s.parseUUID(c, "roomId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultMessagePageSize)

	msgs, err := s.chatService.GetRoomMessages(c.UserContext(), userIDFrom(c), roomID, page.Limit, page.Offset)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(publicMessages(msgs))
}

// SendRoomMessage handles POST /chat/rooms/:roomId/messages
func (s *Server) SendRoomMessage(c *fiber.Ctx) error {
	roomID, err := s.parseUUID(c, "roomId")
	if err != nil {
		return nil
	}
	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	ctx := c.UserContext()
	msg, err := s.chatService.SendMessage(ctx, service.SendMessageInput{
		SenderID: userIDFrom(c),
		RoomID:   roomID,
		Content:  req.text(),
		Source:   service.SourceHTTP,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	if msg == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	s.broadcastMessage(ctx, msg)
	return c.Status(fiber.StatusCreated).JSON(msg.Public())
}

// MarkRoomRead handles POST /chat/rooms/:roomId/read
func (s *Server) MarkRoomRead(c *fiber.Ctx) error {
	roomID, err := s.parseUUID(c, "roomId")
	if err != nil {
		return nil
	}
	n, err := s.chatService.MarkRoomRead(c.UserContext(), userIDFrom(c), roomID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"marked": n})
}

// GetCompanyChannel handles GET /chat/channels/company
func (s *Server) GetCompanyChannel(c *fiber.Ctx) error {
	msgs, err := s.chatService.GetCompanyChannelMessages(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(publicMessages(msgs))
}

// GetGlobalChannel handles GET /chat/channels/global
func (s *Server) GetGlobalChannel(c *fiber.Ctx) error {
	msgs, err := s.chatService.GetGlobalMessages(c.UserContext())
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(publicMessages(msgs))
}

// SendChannelMessage handles POST /chat/channels/:scope/messages where
// scope is "company" or "global".
func (s *Server) SendChannelMessage(c *fiber.Ctx) error {
	var target string
	switch c.Params("scope") {
	case "company":
		target = service.TargetPublic
	case "global":
		target = service.TargetGlobal
	default:
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Channel", "Unknown channel"))
	}

	var req messageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return s.sendToTarget(c, target, req.text())
}

// SendToTarget handles POST /chat/messages with {target, message}. The
// target is "public", "global" or a recipient user id.
func (s *Server) SendToTarget(c *fiber.Ctx) error {
	var req struct {
		Target string `json:"target"`
		messageRequest
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	return s.sendToTarget(c, req.Target, req.text())
}

func (s *Server) sendToTarget(c *fiber.Ctx, target, text string) error {
	ctx := c.UserContext()
	msg, err := s.chatService.SendToTarget(ctx, userIDFrom(c), target, text, service.SourceHTTP)
	if err != nil {
		return respondAppError(c, err)
	}
	if msg == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	s.broadcastMessage(ctx, msg)
	return c.Status(fiber.StatusCreated).JSON(msg.Public())
}

// GetPrivateMessages handles GET /chat/private/:userId/messages
func (s *Server) GetPrivateMessages(c *fiber.Ctx) error {
	partnerID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	msgs, err := s.chatService.GetPrivateMessages(c.UserContext(), userIDFrom(c), partnerID)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(publicMessages(msgs))
}

// GetUnreadCount handles GET /chat/private/:userId/unread
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	partnerID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	n, err := s.chatService.UnreadCount(c.UserContext(), partnerID, userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

// MarkPrivateRead handles POST /chat/private/:userId/read
func (s *Server) MarkPrivateRead(c *fiber.Ctx) error {
	partnerID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	n, err := s.chatService.MarkRead(c.UserContext(), partnerID, userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"marked": n})
}

// GetConversations handles GET /chat/conversations
func (s *Server) GetConversations(c *fiber.Ctx) error {
	convs, err := s.chatService.Conversations(c.UserContext(), userIDFrom(c))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(convs)
}

// SearchChatUsers handles GET /chat/users/search?q=
func (s *Server) SearchChatUsers(c *fiber.Ctx) error {
	users, err := s.chatService.SearchUsers(c.UserContext(), userIDFrom(c), c.Query("q"))
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(users)
}

// UploadChatFile handles POST /chat/upload with multipart "file" and
// "room_id".
func (s *Server) UploadChatFile(c *fiber.Ctx) error {
	data, filename, contentType, err := readFormFile(c, "file")
	if err != nil {
		return respondAppError(c, err)
	}

	a, err := s.chatService.Upload(c.UserContext(), service.UploadInput{
		SenderID:    userIDFrom(c),
		RoomID:      c.FormValue("room_id"),
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       a.ID,
		"filename": a.Filename,
	})
}

// GetChatFile handles GET /chat/file/:fileId
func (s *Server) GetChatFile(c *fiber.Ctx) error {
	fileID, err := s.parseUUID(c, "fileId")
	if err != nil {
		return nil
	}
	a, err := s.chatService.GetFile(c.UserContext(), userIDFrom(c), fileID)
	if err != nil {
		return respondAppError(c, err)
	}

	c.Set(fiber.HeaderContentType, a.ContentType)
	c.Set(fiber.HeaderContentDisposition, "inline; filename="+strconv.Quote(a.Filename))
	return c.Send(a.Data)
}

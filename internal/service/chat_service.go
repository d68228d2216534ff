// Package service provides application business logic (users, chat,
// observations, training, registers, posts).
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"safeguard/internal/models"
	"safeguard/internal/observability"
	"safeguard/internal/repository"

	"github.com/google/uuid"
)

const (
	maxMessageContentLen = 10000 // characters
	userSearchLimit      = 10
)

// Message ingress labels for the throughput metric.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
)

// Legacy flat-channel targets accepted by SendToTarget.
const (
	TargetPublic = "public"
	TargetGlobal = "global"
)

// PresenceChecker answers whether a user has a live socket on any process.
type PresenceChecker interface {
	OnlineAnywhere(ctx context.Context, userID uint) bool
}

// ChatService provides room, message and attachment business logic.
type ChatService struct {
	chatRepo       repository.ChatRepository
	userRepo       repository.UserRepository
	presence       PresenceChecker
	maxUploadBytes int64
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	SenderID uint
	RoomID   uuid.UUID
	Content  string
	Source   string
}

// UploadInput is one chat attachment upload.
type UploadInput struct {
	SenderID    uint
	RoomID      string
	Filename    string
	ContentType string
	Data        []byte
}

// UserSearchResult is the chat user picker row.
type UserSearchResult struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	HasPhoto bool   `json:"has_photo"`
	Online   bool   `json:"online"`
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, maxUploadBytes int64) *ChatService {
	return &ChatService{
		chatRepo:       chatRepo,
		userRepo:       userRepo,
		maxUploadBytes: maxUploadBytes,
	}
}

// SetPresence installs the online lookup used by Conversations and
// SearchUsers. Without one every user reports offline.
func (s *ChatService) SetPresence(p PresenceChecker) {
	s.presence = p
}

func (s *ChatService) online(ctx context.Context, userID uint) bool {
	return s.presence != nil && s.presence.OnlineAnywhere(ctx, userID)
}

// canAccess reports whether u may read and post in room.
func canAccess(room *models.Room, u *models.User) bool {
	switch room.Kind {
	case models.RoomPrivate:
		return room.HasParticipant(u.ID)
	case models.RoomCompany:
		return u.SameCompany(room.CompanyID)
	case models.RoomGlobal:
		return true
	}
	return false
}

// roomFor loads a room and checks that userID may use it. A room the user
// cannot see reports the same error as a missing one.
func (s *ChatService) roomFor(ctx context.Context, userID uint, roomID uuid.UUID) (*models.Room, *models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	room, err := s.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, nil, models.NewForbiddenError(models.PermissionDeniedMessage)
		}
		return nil, nil, err
	}
	if !canAccess(room, user) {
		return nil, nil, models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return room, user, nil
}

// SendMessage persists a message. Blank content is dropped silently and
// returns nil, nil; callers deliver only what was returned.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(content) > maxMessageContentLen {
		return nil, models.NewValidationError("Message content too long (max 10000 characters)")
	}

	room, _, err := s.roomFor(ctx, in.SenderID, in.RoomID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		RoomID:   room.ID,
		SenderID: in.SenderID,
		Content:  content,
	}
	if err := s.chatRepo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	source := in.Source
	if source == "" {
		source = SourceHTTP
	}
	observability.MessageThroughput.WithLabelValues(string(room.Kind), source).Inc()
	return msg, nil
}

// ResolveTarget maps a flat-channel target onto a room: "public" is the
// sender's company channel (or the global room without a company), "global"
// is the global room and a numeric id is the private room with that user.
func (s *ChatService) ResolveTarget(ctx context.Context, sender *models.User, target string) (*models.Room, error) {
	switch target = strings.TrimSpace(target); target {
	case TargetPublic:
		if sender.Company != nil {
			return s.chatRepo.GetOrCreateCompanyRoom(ctx, sender.Company)
		}
		return s.chatRepo.GetOrCreateGlobalRoom(ctx)
	case TargetGlobal:
		return s.chatRepo.GetOrCreateGlobalRoom(ctx)
	}

	recipientID, err := strconv.ParseUint(target, 10, 64)
	if err != nil || recipientID == 0 {
		return nil, models.NewValidationError("Invalid message target")
	}
	if uint(recipientID) == sender.ID {
		return nil, models.NewValidationError("Cannot start a chat with yourself")
	}
	recipient, err := s.userRepo.GetByID(ctx, uint(recipientID))
	if err != nil {
		return nil, err
	}
	return s.chatRepo.GetOrCreatePrivateRoom(ctx, sender, recipient)
}

// SendToTarget is the flat-channel form of SendMessage.
func (s *ChatService) SendToTarget(ctx context.Context, senderID uint, target, text, source string) (*models.Message, error) {
	// Blank text must not open a private room as a side effect.
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	room, err := s.ResolveTarget(ctx, sender, target)
	if err != nil {
		return nil, err
	}
	return s.SendMessage(ctx, SendMessageInput{
		SenderID: sender.ID,
		RoomID:   room.ID,
		Content:  text,
		Source:   source,
	})
}

// Room returns a room the user may access.
func (s *ChatService) Room(ctx context.Context, userID uint, roomID uuid.UUID) (*models.Room, error) {
	room, _, err := s.roomFor(ctx, userID, roomID)
	return room, err
}

// RoomAudience lists the users a room delivers to; nil means everyone
// connected.
func (s *ChatService) RoomAudience(ctx context.Context, roomID uuid.UUID) ([]uint, error) {
	room, err := s.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.RoomAudience(ctx, room)
}

// ListRooms returns the user's private rooms plus their company channel and
// the global room, newest first.
func (s *ChatService) ListRooms(ctx context.Context, userID uint) ([]models.Room, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chatRepo.GetOrCreateGlobalRoom(ctx); err != nil {
		return nil, err
	}
	if user.Company != nil {
		if _, err := s.chatRepo.GetOrCreateCompanyRoom(ctx, user.Company); err != nil {
			return nil, err
		}
	}
	return s.chatRepo.ListRoomsForUser(ctx, user.ID, user.CompanyID)
}

func (s *ChatService) GetRoomMessages(ctx context.Context, userID uint, roomID uuid.UUID, limit, offset int) ([]models.Message, error) {
	room, _, err := s.roomFor(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.GetMessages(ctx, room.ID, limit, offset)
}

// GetCompanyChannelMessages returns the user's company channel history, or
// an empty list when the user has no company.
func (s *ChatService) GetCompanyChannelMessages(ctx context.Context, userID uint) ([]models.Message, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Company == nil {
		return []models.Message{}, nil
	}
	room, err := s.chatRepo.GetOrCreateCompanyRoom(ctx, user.Company)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.GetMessages(ctx, room.ID, 0, 0)
}

func (s *ChatService) GetGlobalMessages(ctx context.Context) ([]models.Message, error) {
	room, err := s.chatRepo.GetOrCreateGlobalRoom(ctx)
	if err != nil {
		return nil, err
	}
	return s.chatRepo.GetMessages(ctx, room.ID, 0, 0)
}

// GetPrivateMessages returns the history between me and partner, empty
// when they never chatted.
func (s *ChatService) GetPrivateMessages(ctx context.Context, me, partner uint) ([]models.Message, error) {
	room, err := s.chatRepo.FindPrivateRoom(ctx, me, partner)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return []models.Message{}, nil
	}
	return s.chatRepo.GetMessages(ctx, room.ID, 0, 0)
}

// MarkRead marks partner's messages to me as read and reports how many
// flipped.
func (s *ChatService) MarkRead(ctx context.Context, partnerID, me uint) (int64, error) {
	room, err := s.chatRepo.FindPrivateRoom(ctx, partnerID, me)
	if err != nil || room == nil {
		return 0, err
	}
	return s.chatRepo.MarkRead(ctx, room.ID, partnerID)
}

// MarkRoomRead marks every message in a private room not sent by me as read.
// Channels have no read state.
func (s *ChatService) MarkRoomRead(ctx context.Context, me uint, roomID uuid.UUID) (int64, error) {
	room, _, err := s.roomFor(ctx, me, roomID)
	if err != nil {
		return 0, err
	}
	if room.Kind != models.RoomPrivate {
		return 0, nil
	}
	var total int64
	for _, p := range room.Participants {
		if p.ID == me {
			continue
		}
		n, err := s.chatRepo.MarkRead(ctx, room.ID, p.ID)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *ChatService) UnreadCount(ctx context.Context, partnerID, me uint) (int64, error) {
	room, err := s.chatRepo.FindPrivateRoom(ctx, partnerID, me)
	if err != nil || room == nil {
		return 0, err
	}
	return s.chatRepo.UnreadCount(ctx, room.ID, partnerID)
}

func (s *ChatService) Conversations(ctx context.Context, me uint) ([]models.Conversation, error) {
	convs, err := s.chatRepo.Conversations(ctx, me)
	if err != nil {
		return nil, err
	}
	for i := range convs {
		convs[i].Online = s.online(ctx, convs[i].PartnerID)
	}
	return convs, nil
}

// StartPrivateChat returns the private room between me and the owner of
// recipientEmail, creating it on first use.
func (s *ChatService) StartPrivateChat(ctx context.Context, me uint, recipientEmail string) (*models.Room, error) {
	sender, err := s.userRepo.GetByID(ctx, me)
	if err != nil {
		return nil, err
	}
	if repository.NormalizeEmail(recipientEmail) == sender.Email {
		return nil, models.NewValidationError("Cannot start a chat with yourself")
	}
	recipient, err := s.userRepo.GetByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, models.NewNotFoundError("User", "User not found")
	}
	return s.chatRepo.GetOrCreatePrivateRoom(ctx, sender, recipient)
}

// SearchUsers matches other users by email. Only admins see admin accounts.
func (s *ChatService) SearchUsers(ctx context.Context, me uint, query string) ([]UserSearchResult, error) {
	out := []UserSearchResult{}
	if strings.TrimSpace(query) == "" {
		return out, nil
	}
	caller, err := s.userRepo.GetByID(ctx, me)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.SearchByEmail(ctx, query, caller.ID, caller.IsAdmin(), userSearchLimit)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		out = append(out, UserSearchResult{
			ID:       u.ID,
			Email:    u.Email,
			Name:     u.FullName,
			HasPhoto: len(u.Photo) > 0,
			Online:   s.online(ctx, u.ID),
		})
	}
	return out, nil
}

// Upload stores an attachment in a room the sender may post in.
func (s *ChatService) Upload(ctx context.Context, in UploadInput) (*models.Attachment, error) {
	roomID, err := uuid.Parse(strings.TrimSpace(in.RoomID))
	if err != nil {
		return nil, models.NewValidationError("Invalid room_id")
	}
	if len(in.Data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if s.maxUploadBytes > 0 && int64(len(in.Data)) > s.maxUploadBytes {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadBytes/(1024*1024)))
	}

	room, _, err := s.roomFor(ctx, in.SenderID, roomID)
	if err != nil {
		return nil, err
	}

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		filename = "attachment"
	}
	a := &models.Attachment{
		RoomID:      room.ID,
		SenderID:    in.SenderID,
		Filename:    filename,
		ContentType: DetectContentType(in.Data, in.ContentType),
		Data:        in.Data,
	}
	if err := s.chatRepo.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// GetFile returns an attachment of a room the user may access. Files of
// other rooms are reported as missing.
func (s *ChatService) GetFile(ctx context.Context, userID uint, id uuid.UUID) (*models.Attachment, error) {
	a, err := s.chatRepo.GetAttachment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.roomFor(ctx, userID, a.RoomID); err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return nil, models.NewNotFoundError("File", "File not found")
		}
		return nil, err
	}
	return a, nil
}

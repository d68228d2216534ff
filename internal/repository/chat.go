package repository

import (
	"context"
	"time"

	"safeguard/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for room, message and attachment
// data operations.
type ChatRepository interface {
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetOrCreatePrivateRoom(ctx context.Context, a, b *models.User) (*models.Room, error)
	GetOrCreateCompanyRoom(ctx context.Context, company *models.Company) (*models.Room, error)
	GetOrCreateGlobalRoom(ctx context.Context) (*models.Room, error)
	FindPrivateRoom(ctx context.Context, a, b uint) (*models.Room, error)
	ListRoomsForUser(ctx context.Context, userID uint, companyID *uint) ([]models.Room, error)
	RoomAudience(ctx context.Context, room *models.Room) ([]uint, error)

	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]models.Message, error)
	MarkRead(ctx context.Context, roomID uuid.UUID, senderID uint) (int64, error)
	UnreadCount(ctx context.Context, roomID uuid.UUID, senderID uint) (int64, error)
	Conversations(ctx context.Context, userID uint) ([]models.Conversation, error)

	CreateAttachment(ctx context.Context, a *models.Attachment) error
	GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error)
	PurgeAttachmentsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Preload("Participants").First(&room, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Room", "Room not found")
	}
	return &room, nil
}

func (r *chatRepository) getBySlug(ctx context.Context, slug string) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).Preload("Participants").Where("slug = ?", slug).First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// getOrCreate inserts room unless its slug exists and then reads back the
// stored row, so concurrent callers converge on one room.
func (r *chatRepository) getOrCreate(ctx context.Context, room *models.Room, participants ...uint) (*models.Room, error) {
	if existing, err := r.getBySlug(ctx, room.Slug); err == nil {
		return existing, nil
	} else if !isNotFound(err) {
		return nil, models.NewInternalError(err)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(room)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		for _, uid := range participants {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.RoomParticipant{RoomID: room.ID, UserID: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	stored, err := r.getBySlug(ctx, room.Slug)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return stored, nil
}

// GetOrCreatePrivateRoom is idempotent for the unordered pair.
func (r *chatRepository) GetOrCreatePrivateRoom(ctx context.Context, a, b *models.User) (*models.Room, error) {
	first, second := a, b
	if first.ID > second.ID {
		first, second = second, first
	}
	return r.getOrCreate(ctx, &models.Room{
		Slug: models.PrivateRoomSlug(a.ID, b.ID),
		Name: first.DisplayName() + " & " + second.DisplayName(),
		Kind: models.RoomPrivate,
	}, a.ID, b.ID)
}

func (r *chatRepository) GetOrCreateCompanyRoom(ctx context.Context, company *models.Company) (*models.Room, error) {
	id := company.ID
	return r.getOrCreate(ctx, &models.Room{
		Slug:      models.CompanyRoomSlug(company.ID),
		Name:      company.Name,
		Kind:      models.RoomCompany,
		CompanyID: &id,
	})
}

func (r *chatRepository) GetOrCreateGlobalRoom(ctx context.Context) (*models.Room, error) {
	return r.getOrCreate(ctx, &models.Room{
		Slug: models.GlobalRoomSlug,
		Name: "Global",
		Kind: models.RoomGlobal,
	})
}

// FindPrivateRoom returns nil, nil when the pair never chatted.
func (r *chatRepository) FindPrivateRoom(ctx context.Context, a, b uint) (*models.Room, error) {
	room, err := r.getBySlug(ctx, models.PrivateRoomSlug(a, b))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return room, nil
}

// ListRoomsForUser returns the user's private rooms plus the company and
// global channels that already exist, newest first.
func (r *chatRepository) ListRoomsForUser(ctx context.Context, userID uint, companyID *uint) ([]models.Room, error) {
	q := r.db.WithContext(ctx).Model(&models.Room{}).
		Preload("Participants").
		Where("kind = ?", models.RoomGlobal).
		Or("(kind = ? AND id IN (?))", models.RoomPrivate,
			r.db.Model(&models.RoomParticipant{}).Select("room_id").Where("user_id = ?", userID))
	if companyID != nil {
		q = q.Or("(kind = ? AND company_id = ?)", models.RoomCompany, *companyID)
	}

	var rooms []models.Room
	if err := q.Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rooms, nil
}

// RoomAudience lists the users a room delivers to. Global rooms return nil,
// meaning everyone connected.
func (r *chatRepository) RoomAudience(ctx context.Context, room *models.Room) ([]uint, error) {
	var ids []uint
	var err error
	switch room.Kind {
	case models.RoomPrivate:
		err = r.db.WithContext(ctx).Model(&models.RoomParticipant{}).
			Where("room_id = ?", room.ID).Pluck("user_id", &ids).Error
	case models.RoomCompany:
		if room.CompanyID == nil {
			return []uint{}, nil
		}
		err = r.db.WithContext(ctx).Model(&models.User{}).
			Where("company_id = ?", *room.CompanyID).Pluck("id", &ids).Error
	default:
		return nil, nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetMessages returns history oldest first, ordered by (created_at, id).
func (r *chatRepository) GetMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]models.Message, error) {
	q := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at ASC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	messages := []models.Message{}
	if err := q.Find(&messages).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return messages, nil
}

// MarkRead flips is_read on senderID's unread messages in the room.
func (r *chatRepository) MarkRead(ctx context.Context, roomID uuid.UUID, senderID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("room_id = ? AND sender_id = ? AND is_read = ?", roomID, senderID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *chatRepository) UnreadCount(ctx context.Context, roomID uuid.UUID, senderID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("room_id = ? AND sender_id = ? AND is_read = ?", roomID, senderID, false).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// Conversations lists the partners of every private room of userID with the
// number of their messages the user has not read.
func (r *chatRepository) Conversations(ctx context.Context, userID uint) ([]models.Conversation, error) {
	var rows []models.Conversation
	err := r.db.WithContext(ctx).
		Table("room_participants AS me").
		Select(`rooms.id AS room_id,
			partner.user_id AS partner_id,
			users.email AS email,
			users.full_name AS name,
			COALESCE(companies.name, '') AS company_name,
			(SELECT COUNT(*) FROM messages
				WHERE messages.room_id = rooms.id
				AND messages.sender_id = partner.user_id
				AND messages.is_read = ?) AS unread_count`, false).
		Joins("JOIN rooms ON rooms.id = me.room_id AND rooms.kind = ?", models.RoomPrivate).
		Joins("JOIN room_participants AS partner ON partner.room_id = me.room_id AND partner.user_id <> me.user_id").
		Joins("JOIN users ON users.id = partner.user_id").
		Joins("LEFT JOIN companies ON companies.id = users.company_id").
		Where("me.user_id = ?", userID).
		Order("rooms.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if rows == nil {
		rows = []models.Conversation{}
	}
	return rows, nil
}

func (r *chatRepository) CreateAttachment(ctx context.Context, a *models.Attachment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(a).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*models.Attachment, error) {
	var a models.Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "File", "File not found")
	}
	return &a, nil
}

// PurgeAttachmentsBefore deletes attachments uploaded strictly before cutoff.
func (r *chatRepository) PurgeAttachmentsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("uploaded_at < ?", cutoff).Delete(&models.Attachment{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

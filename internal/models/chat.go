package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomKind distinguishes private pair rooms from broadcast channels.
type RoomKind string

const (
	RoomPrivate RoomKind = "private"
	RoomCompany RoomKind = "company"
	RoomGlobal  RoomKind = "global"
)

// Room is the single conversation container. A private room has exactly two
// participants; a company room is keyed by CompanyID; there is one global room.
type Room struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug         string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	Name         string    `json:"name"`
	Kind         RoomKind  `gorm:"type:varchar(16);not null;index" json:"kind"`
	CompanyID    *uint     `gorm:"index" json:"company_id,omitempty"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	Participants []User    `gorm:"many2many:room_participants;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Messages     []Message `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
}

// GlobalRoomSlug identifies the single global room.
const GlobalRoomSlug = "global"

// PrivateRoomSlug is the stable key of the private room of a pair; the
// order of a and b does not matter.
func PrivateRoomSlug(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("private:%d:%d", a, b)
}

// CompanyRoomSlug is the stable key of a company's channel.
func CompanyRoomSlug(companyID uint) string {
	return fmt.Sprintf("company:%d", companyID)
}

// BeforeCreate assigns a uuid when none was set.
func (r *Room) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// HasParticipant reports whether userID is listed on the room.
func (r *Room) HasParticipant(userID uint) bool {
	for _, p := range r.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// RoomParticipant is the join row of Room.Participants.
type RoomParticipant struct {
	RoomID uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID uint      `gorm:"primaryKey;index"`
}

func (RoomParticipant) TableName() string {
	return "room_participants"
}

// Message is immutable once stored apart from the monotonic IsRead flip.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index:idx_messages_room_created,priority:1" json:"room_id"`
	SenderID  uint      `gorm:"not null;index" json:"sender_id"`
	Sender    *User     `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	IsRead    bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2" json:"created_at"`
}

// MessagePublic is the broadcast and history shape.
type MessagePublic struct {
	ID        uint      `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	SenderID  uint      `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) Public() MessagePublic {
	return MessagePublic{
		ID:        m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// Attachment is a binary blob shared in a room, purged after the
// retention window.
type Attachment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID      uuid.UUID `gorm:"type:uuid;not null;index" json:"room_id"`
	Room        *Room     `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	SenderID    uint      `gorm:"not null;index" json:"sender_id"`
	Filename    string    `gorm:"not null" json:"filename"`
	ContentType string    `json:"content_type"`
	Data        []byte    `gorm:"not null" json:"-"`
	UploadedAt  time.Time `gorm:"not null;index" json:"uploaded_at"`
}

func (a *Attachment) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Now().UTC()
	}
	return nil
}

// Conversation summarizes one private partner for the inbox view.
type Conversation struct {
	RoomID      uuid.UUID `json:"room_id"`
	PartnerID   uint      `json:"partner_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name"`
	UnreadCount int64     `json:"unread_count"`
	Online      bool      `json:"online" gorm:"-"`
}

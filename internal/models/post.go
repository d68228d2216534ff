package models

import "time"

// Post is a marketplace listing owned by a user.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Summary     string    `json:"summary"`
	ContactInfo string    `json:"contact_info"`
	Photo       []byte    `json:"-"`
	HasPhoto    bool      `gorm:"-" json:"has_photo"`
	IsHidden    bool      `gorm:"not null;default:false;index" json:"is_hidden"`
	OwnerID     uint      `gorm:"not null;index" json:"owner_id"`
	Owner       *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

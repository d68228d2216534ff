package models

import "time"

// Risk scale bounds for likelihood and severity.
const (
	RiskScaleMin = 1
	RiskScaleMax = 5
)

// Observation is a logged safety hazard.
type Observation struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	User             *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	CompanyID        *uint     `gorm:"index" json:"company_id"`
	Date             string    `gorm:"not null" json:"date"`
	AreaEquipment    string    `gorm:"not null" json:"area_equipment"`
	Description      string    `gorm:"type:text" json:"description"`
	Impact           string    `gorm:"type:text" json:"impact"`
	Likelihood       int       `json:"likelihood"`
	Severity         int       `json:"severity"`
	RiskRating       int       `gorm:"index" json:"risk_rating"`
	CorrectiveAction string    `gorm:"type:text" json:"corrective_action"`
	Deadline         string    `json:"deadline"`
	Photo            []byte    `json:"-"`
	HasPhoto         bool      `gorm:"-" json:"has_photo"`
	CreatedAt        time.Time `json:"created_at"`
}

// RiskRating is likelihood × severity.
func RiskRating(likelihood, severity int) int {
	return likelihood * severity
}

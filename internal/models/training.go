package models

import "time"

// Training is a company quiz with ordered multiple-choice questions.
type Training struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	CompanyID   uint               `gorm:"not null;index" json:"company_id"`
	Company     *Company           `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedBy   uint               `gorm:"not null" json:"created_by"`
	Name        string             `gorm:"not null" json:"name"`
	Description string             `gorm:"type:text" json:"description"`
	VideoLink   string             `json:"video_link"`
	CreatedAt   time.Time          `json:"created_at"`
	Questions   []TrainingQuestion `gorm:"foreignKey:TrainingID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// TrainingQuestion holds four options and the 1-based correct answer.
type TrainingQuestion struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TrainingID    uint   `gorm:"not null;index" json:"training_id"`
	QuestionOrder int    `gorm:"not null" json:"question_order"`
	QuestionText  string `gorm:"type:text;not null" json:"question_text"`
	Option1       string `json:"option_1"`
	Option2       string `json:"option_2"`
	Option3       string `json:"option_3"`
	Option4       string `json:"option_4"`
	CorrectAnswer int    `gorm:"not null" json:"correct_answer,omitempty"`
}

// TrainingAttempt is one scored submission.
type TrainingAttempt struct {
	ID          uint                 `gorm:"primaryKey" json:"id"`
	UserID      uint                 `gorm:"not null;index" json:"user_id"`
	User        *User                `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TrainingID  uint                 `gorm:"not null;index" json:"training_id"`
	Training    *Training            `gorm:"foreignKey:TrainingID;constraint:OnDelete:CASCADE" json:"-"`
	Score       float64              `gorm:"not null" json:"score"`
	AttemptDate time.Time            `gorm:"autoCreateTime" json:"attempt_date"`
	Answers     []TrainingUserAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

type TrainingUserAnswer struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	AttemptID      uint `gorm:"not null;index" json:"attempt_id"`
	QuestionID     uint `gorm:"not null" json:"question_id"`
	SelectedAnswer int  `gorm:"not null" json:"selected_answer"`
	IsCorrect      bool `gorm:"not null" json:"is_correct"`
}

// TrainingResult is one row of a training's results summary.
type TrainingResult struct {
	UserID          uint      `json:"user_id"`
	Email           string    `json:"email"`
	FullName        string    `json:"full_name"`
	AttemptCount    int64     `json:"attempt_count"`
	BestScore       float64   `json:"best_score"`
	LastAttemptDate time.Time `json:"last_attempt_date"`
}

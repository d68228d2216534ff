package database

import "safeguard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
// Order matters for foreign keys on databases without deferred constraints.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Company{},
		&models.User{},
		&models.UserCapability{},
		&models.Room{},
		&models.RoomParticipant{},
		&models.Message{},
		&models.Attachment{},
		&models.Observation{},
		&models.Training{},
		&models.TrainingQuestion{},
		&models.TrainingAttempt{},
		&models.TrainingUserAnswer{},
		&models.LostFoundItem{},
		&models.GatePass{},
		&models.Post{},
	}
}

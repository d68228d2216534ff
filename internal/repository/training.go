package repository

import (
	"context"

	"safeguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Training list sort keys.
const (
	TrainingSortNewest = "date_newest"
	TrainingSortOldest = "date_oldest"
	TrainingSortName   = "name_asc"
)

// TrainingRepository defines persistence operations for trainings,
// questions and attempts.
type TrainingRepository interface {
	Create(ctx context.Context, t *models.Training) error
	Replace(ctx context.Context, t *models.Training) error
	GetByID(ctx context.Context, scope Scope, id uint) (*models.Training, error)
	List(ctx context.Context, scope Scope, search, sort string) ([]models.Training, error)
	Delete(ctx context.Context, scope Scope, id uint) error
	CreateAttempt(ctx context.Context, attempt *models.TrainingAttempt) error
	GetAttempt(ctx context.Context, id uint) (*models.TrainingAttempt, error)
	Results(ctx context.Context, scope Scope, trainingID uint) ([]models.TrainingResult, error)
}

type trainingRepository struct {
	db *gorm.DB
}

func NewTrainingRepository(db *gorm.DB) TrainingRepository {
	return &trainingRepository{db: db}
}

func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("question_order ASC").Order("id ASC")
}

// Create stores the training and its questions together.
func (r *trainingRepository) Create(ctx context.Context, t *models.Training) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// Replace overwrites the training fields and swaps the whole question set.
func (r *trainingRepository) Replace(ctx context.Context, t *models.Training) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Training{}).Where("id = ? AND company_id = ?", t.ID, t.CompanyID).
			Updates(map[string]interface{}{
				"name":        t.Name,
				"description": t.Description,
				"video_link":  t.VideoLink,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("training_id = ?", t.ID).Delete(&models.TrainingQuestion{}).Error; err != nil {
			return err
		}
		for i := range t.Questions {
			t.Questions[i].ID = 0
			t.Questions[i].TrainingID = t.ID
		}
		if len(t.Questions) == 0 {
			return nil
		}
		return tx.Create(&t.Questions).Error
	})
	if err != nil {
		return notFoundOr(err, "Training", models.PermissionDeniedMessage)
	}
	return nil
}

func (r *trainingRepository) GetByID(ctx context.Context, scope Scope, id uint) (*models.Training, error) {
	var t models.Training
	q := scope.apply(r.db.WithContext(ctx), "company_id").Preload("Questions", orderedQuestions)
	if err := q.First(&t, id).Error; err != nil {
		return nil, notFoundOr(err, "Training", models.PermissionDeniedMessage)
	}
	return &t, nil
}

func (r *trainingRepository) List(ctx context.Context, scope Scope, search, sort string) ([]models.Training, error) {
	q := scope.apply(r.db.WithContext(ctx).Model(&models.Training{}), "company_id")
	q = containsAny(q, search, "name", "description")

	switch sort {
	case TrainingSortOldest:
		q = q.Order("created_at ASC").Order("id ASC")
	case TrainingSortName:
		q = q.Order("name ASC")
	default:
		q = q.Order("created_at DESC").Order("id DESC")
	}

	trainings := []models.Training{}
	if err := q.Find(&trainings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return trainings, nil
}

func (r *trainingRepository) Delete(ctx context.Context, scope Scope, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Training
		if err := scope.apply(tx, "company_id").First(&t, id).Error; err != nil {
			return err
		}
		var attemptIDs []uint
		if err := tx.Model(&models.TrainingAttempt{}).Where("training_id = ?", id).Pluck("id", &attemptIDs).Error; err != nil {
			return err
		}
		if len(attemptIDs) > 0 {
			if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&models.TrainingUserAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", attemptIDs).Delete(&models.TrainingAttempt{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("training_id = ?", id).Delete(&models.TrainingQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
	if err != nil {
		if isNotFound(err) {
			return models.NewForbiddenError(models.PermissionDeniedMessage)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// CreateAttempt persists the attempt and its answers in one transaction.
func (r *trainingRepository) CreateAttempt(ctx context.Context, attempt *models.TrainingAttempt) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		answers := attempt.Answers
		attempt.Answers = nil
		if err := tx.Omit(clause.Associations).Create(attempt).Error; err != nil {
			return err
		}
		for i := range answers {
			answers[i].AttemptID = attempt.ID
		}
		attempt.Answers = answers
		if len(answers) == 0 {
			return nil
		}
		return tx.Create(&attempt.Answers).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *trainingRepository) GetAttempt(ctx context.Context, id uint) (*models.TrainingAttempt, error) {
	var attempt models.TrainingAttempt
	if err := r.db.WithContext(ctx).
		Preload("Answers").
		Preload("Training").
		Preload("Training.Questions", orderedQuestions).
		First(&attempt, id).Error; err != nil {
		return nil, notFoundOr(err, "Attempt", "Attempt not found")
	}
	return &attempt, nil
}

// Results aggregates attempts per user: count, best score and latest date.
// Aggregation happens in Go so that date handling is identical on every
// dialect.
func (r *trainingRepository) Results(ctx context.Context, scope Scope, trainingID uint) ([]models.TrainingResult, error) {
	q := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN users ON users.id = training_attempts.user_id").
		Where("training_attempts.training_id = ?", trainingID).
		Order("training_attempts.id ASC")
	q = scope.apply(q, "users.company_id")

	var attempts []models.TrainingAttempt
	if err := q.Find(&attempts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	byUser := make(map[uint]*models.TrainingResult)
	results := []models.TrainingResult{}
	order := []uint{}
	for _, a := range attempts {
		res, ok := byUser[a.UserID]
		if !ok {
			res = &models.TrainingResult{UserID: a.UserID}
			if a.User != nil {
				res.Email = a.User.Email
				res.FullName = a.User.FullName
			}
			byUser[a.UserID] = res
			order = append(order, a.UserID)
		}
		res.AttemptCount++
		if a.Score > res.BestScore {
			res.BestScore = a.Score
		}
		if a.AttemptDate.After(res.LastAttemptDate) {
			res.LastAttemptDate = a.AttemptDate
		}
	}
	for _, id := range order {
		results = append(results, *byUser[id])
	}
	return results, nil
}

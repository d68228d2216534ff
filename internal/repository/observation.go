package repository

import (
	"context"

	"safeguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Observation list sort keys.
const (
	ObservationSortNewest   = "date_newest"
	ObservationSortOldest   = "date_oldest"
	ObservationSortRiskHigh = "risk_high"
)

// ObservationRepository defines persistence operations for observations.
type ObservationRepository interface {
	Create(ctx context.Context, o *models.Observation) error
	GetByID(ctx context.Context, scope Scope, id uint) (*models.Observation, error)
	List(ctx context.Context, scope Scope, search, sort string) ([]models.Observation, error)
	Delete(ctx context.Context, id uint) error
}

type observationRepository struct {
	db *gorm.DB
}

func NewObservationRepository(db *gorm.DB) ObservationRepository {
	return &observationRepository{db: db}
}

func (r *observationRepository) Create(ctx context.Context, o *models.Observation) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(o).Error; err != nil {
		return models.NewInternalError(err)
	}
	o.HasPhoto = len(o.Photo) > 0
	return nil
}

func (r *observationRepository) GetByID(ctx context.Context, scope Scope, id uint) (*models.Observation, error) {
	var o models.Observation
	q := scope.apply(r.db.WithContext(ctx), "company_id")
	if err := q.First(&o, id).Error; err != nil {
		return nil, notFoundOr(err, "Observation", models.PermissionDeniedMessage)
	}
	o.HasPhoto = len(o.Photo) > 0
	return &o, nil
}

// List orders date_newest and date_oldest by id; risk_high orders by
// risk_rating with id DESC breaking ties.
func (r *observationRepository) List(ctx context.Context, scope Scope, search, sort string) ([]models.Observation, error) {
	q := scope.apply(r.db.WithContext(ctx).Model(&models.Observation{}), "company_id")
	q = containsAny(q, search, "description", "area_equipment")

	switch sort {
	case ObservationSortOldest:
		q = q.Order("id ASC")
	case ObservationSortRiskHigh:
		q = q.Order("risk_rating DESC").Order("id DESC")
	default:
		q = q.Order("id DESC")
	}

	observations := []models.Observation{}
	if err := q.Find(&observations).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range observations {
		observations[i].HasPhoto = len(observations[i].Photo) > 0
	}
	return observations, nil
}

func (r *observationRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Observation{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return nil
}

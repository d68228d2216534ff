package repository

import (
	"context"

	"safeguard/internal/models"

	"gorm.io/gorm"
)

// LostFoundRepository defines persistence operations for the lost-and-found
// register.
type LostFoundRepository interface {
	Create(ctx context.Context, item *models.LostFoundItem) error
	GetByID(ctx context.Context, scope Scope, id uint) (*models.LostFoundItem, error)
	List(ctx context.Context, scope Scope, search string) ([]models.LostFoundItem, error)
	Update(ctx context.Context, scope Scope, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, scope Scope, id uint) error
}

// GatePassRepository defines persistence operations for gate passes.
type GatePassRepository interface {
	Create(ctx context.Context, pass *models.GatePass) error
	GetByID(ctx context.Context, scope Scope, id uint) (*models.GatePass, error)
	List(ctx context.Context, scope Scope, search string) ([]models.GatePass, error)
	Update(ctx context.Context, scope Scope, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, scope Scope, id uint) error
}

// register is the shared implementation behind both company registers.
type register[T any] struct {
	db            *gorm.DB
	resource      string
	conflictMsg   string
	searchColumns []string
}

func (r *register[T]) create(ctx context.Context, row *T) error {
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if models.IsUniqueViolation(err) {
			return models.NewConflictError(r.conflictMsg)
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *register[T]) get(ctx context.Context, scope Scope, id uint) (*T, error) {
	var row T
	if err := scope.apply(r.db.WithContext(ctx), "company_id").First(&row, id).Error; err != nil {
		return nil, notFoundOr(err, r.resource, models.PermissionDeniedMessage)
	}
	return &row, nil
}

func (r *register[T]) list(ctx context.Context, scope Scope, search string) ([]T, error) {
	var zero T
	q := scope.apply(r.db.WithContext(ctx).Model(&zero), "company_id")
	q = containsAny(q, search, r.searchColumns...)

	rows := []T{}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// update applies fields within scope; zero affected rows is reported as a
// permission error so that existence is not leaked.
func (r *register[T]) update(ctx context.Context, scope Scope, id uint, fields map[string]interface{}) error {
	var zero T
	q := scope.apply(r.db.WithContext(ctx).Model(&zero), "company_id").Where("id = ?", id)
	res := q.Updates(fields)
	if res.Error != nil {
		if models.IsUniqueViolation(res.Error) {
			return models.NewConflictError(r.conflictMsg)
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return nil
}

func (r *register[T]) delete(ctx context.Context, scope Scope, id uint) error {
	var zero T
	res := scope.apply(r.db.WithContext(ctx), "company_id").Where("id = ?", id).Delete(&zero)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return nil
}

type lostFoundRepository struct {
	reg *register[models.LostFoundItem]
}

func NewLostFoundRepository(db *gorm.DB) LostFoundRepository {
	return &lostFoundRepository{reg: &register[models.LostFoundItem]{
		db:            db,
		resource:      "Item",
		conflictMsg:   "Ticket number already in use",
		searchColumns: []string{"ticket_no", "item_type", "item_description", "location_found", "found_by", "status"},
	}}
}

func (r *lostFoundRepository) Create(ctx context.Context, item *models.LostFoundItem) error {
	if item.Status == "" {
		item.Status = models.LostFoundUnclaimed
	}
	return r.reg.create(ctx, item)
}

func (r *lostFoundRepository) GetByID(ctx context.Context, scope Scope, id uint) (*models.LostFoundItem, error) {
	return r.reg.get(ctx, scope, id)
}

func (r *lostFoundRepository) List(ctx context.Context, scope Scope, search string) ([]models.LostFoundItem, error) {
	return r.reg.list(ctx, scope, search)
}

func (r *lostFoundRepository) Update(ctx context.Context, scope Scope, id uint, fields map[string]interface{}) error {
	return r.reg.update(ctx, scope, id, fields)
}

func (r *lostFoundRepository) Delete(ctx context.Context, scope Scope, id uint) error {
	return r.reg.delete(ctx, scope, id)
}

type gatePassRepository struct {
	reg *register[models.GatePass]
}

func NewGatePassRepository(db *gorm.DB) GatePassRepository {
	return &gatePassRepository{reg: &register[models.GatePass]{
		db:            db,
		resource:      "Gate pass",
		conflictMsg:   "Gate pass number already in use",
		searchColumns: []string{"gate_pass_number", "item_description", "issued_to", "company", "status"},
	}}
}

func (r *gatePassRepository) Create(ctx context.Context, pass *models.GatePass) error {
	if pass.Status == "" {
		pass.Status = models.GatePassNotReturned
	}
	return r.reg.create(ctx, pass)
}

func (r *gatePassRepository) GetByID(ctx context.Context, scope Scope, id uint) (*models.GatePass, error) {
	return r.reg.get(ctx, scope, id)
}

func (r *gatePassRepository) List(ctx context.Context, scope Scope, search string) ([]models.GatePass, error) {
	return r.reg.list(ctx, scope, search)
}

func (r *gatePassRepository) Update(ctx context.Context, scope Scope, id uint, fields map[string]interface{}) error {
	return r.reg.update(ctx, scope, id, fields)
}

func (r *gatePassRepository) Delete(ctx context.Context, scope Scope, id uint) error {
	return r.reg.delete(ctx, scope, id)
}

package repository

import (
	"context"
	"strings"

	"safeguard/internal/models"

	"gorm.io/gorm"
)

// CompanyRepository defines persistence operations for tenants.
type CompanyRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Company, error)
	GetByName(ctx context.Context, name string) (*models.Company, error)
	Create(ctx context.Context, company *models.Company) error
	List(ctx context.Context) ([]models.Company, error)
}

type companyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetByID(ctx context.Context, id uint) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, id).Error; err != nil {
		return nil, notFoundOr(err, "Company", "")
	}
	return &company, nil
}

// GetByName returns nil, nil when the company does not exist.
func (r *companyRepository) GetByName(ctx context.Context, name string) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&company).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &company, nil
}

func (r *companyRepository) Create(ctx context.Context, company *models.Company) error {
	company.Name = strings.TrimSpace(company.Name)
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		if models.IsUniqueViolation(err) {
			return models.NewConflictError("Company name already in use")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *companyRepository) List(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return companies, nil
}

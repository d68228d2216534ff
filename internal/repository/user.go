package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"safeguard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// User list sort keys.
const (
	UserSortNewest  = "date_newest"
	UserSortOldest  = "date_oldest"
	UserSortName    = "name_asc"
	UserSortEmail   = "email_asc"
	UserSortCompany = "company"
	UserSortRole    = "role"
)

// UserFilter narrows ListUsers.
type UserFilter struct {
	Search    string
	Sort      string
	CompanyID *uint
	Role      models.Role
}

// UserRepository defines persistence operations for users and capabilities.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateForAdmin(ctx context.Context, adminID uint, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	UpdateAdminSettings(ctx context.Context, adminID uint, canCreate bool, limit int) (int64, error)
	List(ctx context.Context, scope Scope, filter UserFilter) ([]models.User, error)
	SearchByEmail(ctx context.Context, query string, excludeID uint, includeAdmins bool, limit int) ([]models.User, error)
	CountUsersForCompany(ctx context.Context, companyID uint) (int64, error)
	GrantCapability(ctx context.Context, userID uint, c models.Capability) error
	RevokeCapability(ctx context.Context, target *models.User, c models.Capability) ([]uint, error)
	Delete(ctx context.Context, target *models.User) ([]uint, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// NormalizeEmail lower-cases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Capabilities").
		First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User", "User not found")
	}
	return &user, nil
}

// GetByEmail returns nil, nil when no user has the address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Preload("Company").
		Preload("Capabilities").
		Where("email = ?", NormalizeEmail(email)).
		First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error; err != nil {
		if models.IsUniqueViolation(err) {
			return models.NewConflictError("Email already in use")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// CreateForAdmin inserts a role = user account into the admin's company.
// The admin row stays locked from the limit check to the insert, so
// concurrent creations cannot overshoot user_creation_limit.
func (r *userRepository) CreateForAdmin(ctx context.Context, adminID uint, user *models.User) error {
	user.Email = NormalizeEmail(user.Email)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("role = ?", models.RoleAdmin).
			First(&admin, adminID).Error; err != nil {
			return notFoundOr(err, "User", "Admin not found")
		}
		if admin.CompanyID == nil || !admin.CanCreateUsers {
			return models.NewForbiddenError("You do not have permission to create users.")
		}
		if admin.CreationLimit != models.UnlimitedUsers {
			var n int64
			if err := tx.Model(&models.User{}).
				Where("company_id = ? AND role = ?", *admin.CompanyID, models.RoleUser).
				Count(&n).Error; err != nil {
				return models.NewInternalError(err)
			}
			if n >= int64(admin.CreationLimit) {
				return models.NewForbiddenError(fmt.Sprintf("User creation limit of %d has been reached for your company.", admin.CreationLimit))
			}
		}

		user.CompanyID = admin.CompanyID
		user.Role = models.RoleUser
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			if models.IsUniqueViolation(err) {
				return models.NewConflictError("Email already in use")
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	var appErr *models.AppError
	if err != nil && !errors.As(err, &appErr) {
		return models.NewInternalError(err)
	}
	return err
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", "User not found")
	}
	return nil
}

// UpdateAdminSettings only touches role = admin rows and reports how many
// matched.
func (r *userRepository) UpdateAdminSettings(ctx context.Context, adminID uint, canCreate bool, limit int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", adminID, models.RoleAdmin).
		Updates(map[string]interface{}{
			"can_create_users":    canCreate,
			"user_creation_limit": limit,
		})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *userRepository) List(ctx context.Context, scope Scope, filter UserFilter) ([]models.User, error) {
	q := r.db.WithContext(ctx).Model(&models.User{}).
		Preload("Company").
		Preload("Capabilities").
		Joins("LEFT JOIN companies ON companies.id = users.company_id")
	q = scope.apply(q, "users.company_id")
	q = containsAny(q, filter.Search, "users.email", "users.full_name", "companies.name")
	if filter.CompanyID != nil {
		q = q.Where("users.company_id = ?", *filter.CompanyID)
	}
	if filter.Role != "" {
		q = q.Where("users.role = ?", filter.Role)
	}

	switch filter.Sort {
	case UserSortOldest:
		q = q.Order("users.created_at ASC").Order("users.id ASC")
	case UserSortName:
		q = q.Order("users.full_name ASC").Order("users.email ASC")
	case UserSortEmail:
		q = q.Order("users.email ASC")
	case UserSortCompany:
		q = q.Order("companies.name ASC").Order("users.email ASC")
	case UserSortRole:
		q = q.Order("users.role ASC").Order("users.email ASC")
	default:
		q = q.Order("users.created_at DESC").Order("users.id DESC")
	}

	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) SearchByEmail(ctx context.Context, query string, excludeID uint, includeAdmins bool, limit int) ([]models.User, error) {
	if strings.TrimSpace(query) == "" {
		return []models.User{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := r.db.WithContext(ctx).Model(&models.User{}).Where("id <> ?", excludeID)
	q = containsAny(q, query, "email")
	if !includeAdmins {
		q = q.Where("role = ?", models.RoleUser)
	}

	var users []models.User
	if err := q.Order("email ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// CountUsersForCompany counts role = user rows only.
func (r *userRepository) CountUsersForCompany(ctx context.Context, companyID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("company_id = ? AND role = ?", companyID, models.RoleUser).
		Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *userRepository) GrantCapability(ctx context.Context, userID uint, c models.Capability) error {
	row := models.UserCapability{UserID: userID, Capability: c}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// RevokeCapability removes c from target. When target is an admin with a
// company, every role = user member of that company loses c in the same
// transaction. It returns the ids whose capability set may have changed.
func (r *userRepository) RevokeCapability(ctx context.Context, target *models.User, c models.Capability) ([]uint, error) {
	affected := []uint{target.ID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND capability = ?", target.ID, c).
			Delete(&models.UserCapability{}).Error; err != nil {
			return err
		}

		if target.Role != models.RoleAdmin || target.CompanyID == nil {
			return nil
		}

		var members []uint
		if err := tx.Model(&models.User{}).
			Where("company_id = ? AND role = ?", *target.CompanyID, models.RoleUser).
			Pluck("id", &members).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		if err := tx.Where("user_id IN ? AND capability = ?", members, c).
			Delete(&models.UserCapability{}).Error; err != nil {
			return err
		}
		affected = append(affected, members...)
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return affected, nil
}

// Delete removes target and everything it owns. Deleting an admin of a
// company also removes the company's users, the company's records and the
// company itself. The ids of every removed user are returned.
func (r *userRepository) Delete(ctx context.Context, target *models.User) ([]uint, error) {
	removed := []uint{target.ID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cascadeCompany := target.Role == models.RoleAdmin && target.CompanyID != nil
		if cascadeCompany {
			var members []uint
			if err := tx.Model(&models.User{}).
				Where("company_id = ? AND role = ?", *target.CompanyID, models.RoleUser).
				Pluck("id", &members).Error; err != nil {
				return err
			}
			removed = append(removed, members...)
		}

		if err := purgeUsers(tx, removed); err != nil {
			return err
		}
		if cascadeCompany {
			return purgeCompany(tx, *target.CompanyID)
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return removed, nil
}

func purgeUsers(tx *gorm.DB, ids []uint) error {
	var attemptIDs []uint
	if err := tx.Model(&models.TrainingAttempt{}).Where("user_id IN ?", ids).Pluck("id", &attemptIDs).Error; err != nil {
		return err
	}
	if len(attemptIDs) > 0 {
		if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&models.TrainingUserAnswer{}).Error; err != nil {
			return err
		}
	}

	steps := []struct {
		query string
		model interface{}
	}{
		{"user_id IN ?", &models.TrainingAttempt{}},
		{"user_id IN ?", &models.UserCapability{}},
		{"user_id IN ?", &models.RoomParticipant{}},
		{"sender_id IN ?", &models.Message{}},
		{"sender_id IN ?", &models.Attachment{}},
		{"user_id IN ?", &models.Observation{}},
		{"user_id IN ?", &models.LostFoundItem{}},
		{"user_id IN ?", &models.GatePass{}},
		{"owner_id IN ?", &models.Post{}},
		{"id IN ?", &models.User{}},
	}
	for _, step := range steps {
		if err := tx.Where(step.query, ids).Delete(step.model).Error; err != nil {
			return err
		}
	}
	return nil
}

func purgeCompany(tx *gorm.DB, companyID uint) error {
	var trainingIDs []uint
	if err := tx.Model(&models.Training{}).Where("company_id = ?", companyID).Pluck("id", &trainingIDs).Error; err != nil {
		return err
	}
	if len(trainingIDs) > 0 {
		var attemptIDs []uint
		if err := tx.Model(&models.TrainingAttempt{}).Where("training_id IN ?", trainingIDs).Pluck("id", &attemptIDs).Error; err != nil {
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
		if err := tx.Where("training_id IN ?", trainingIDs).Delete(&models.TrainingQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", trainingIDs).Delete(&models.Training{}).Error; err != nil {
			return err
		}
	}

	var roomIDs []string
	if err := tx.Model(&models.Room{}).Where("kind = ? AND company_id = ?", models.RoomCompany, companyID).Pluck("id", &roomIDs).Error; err != nil {
		return err
	}
	if len(roomIDs) > 0 {
		for _, m := range []interface{}{&models.Message{}, &models.Attachment{}} {
			if err := tx.Where("room_id IN ?", roomIDs).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id IN ?", roomIDs).Delete(&models.Room{}).Error; err != nil {
			return err
		}
	}

	for _, m := range []interface{}{&models.Observation{}, &models.LostFoundItem{}, &models.GatePass{}} {
		if err := tx.Where("company_id = ?", companyID).Delete(m).Error; err != nil {
			return err
		}
	}
	if err := tx.Model(&models.User{}).Where("company_id = ?", companyID).Update("company_id", nil).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Company{}, companyID).Error
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"safeguard/internal/access"
	"safeguard/internal/auth"
	"safeguard/internal/cache"
	"safeguard/internal/models"
	"safeguard/internal/observability"
	"safeguard/internal/repository"
	"safeguard/internal/validation"

	"github.com/redis/go-redis/v9"
)

// UserService owns accounts, companies, capabilities and profiles.
type UserService struct {
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	redis       *redis.Client
}

// CreateUserInput is the input for creating an account.
type CreateUserInput struct {
	Email       string
	Password    string
	Role        models.Role
	CompanyName string
	FullName    string
}

// UpdateProfileInput carries optional profile fields; nil leaves a field
// unchanged.
type UpdateProfileInput struct {
	FullName *string
	Phone    *string
	JobTitle *string
	Industry *string
}

func NewUserService(userRepo repository.UserRepository, companyRepo repository.CompanyRepository, rdb *redis.Client) *UserService {
	return &UserService{userRepo: userRepo, companyRepo: companyRepo, redis: rdb}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// Principal returns the authorization view of a user, served from Redis when
// cached.
func (s *UserService) Principal(ctx context.Context, userID uint) (access.Principal, error) {
	var p access.Principal
	err := cache.Aside(ctx, s.redis, cache.PrincipalKey(userID), cache.PrincipalTTL, &p, func() error {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		p = access.PrincipalFor(u)
		return nil
	})
	return p, err
}

// Authenticate checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		return nil, models.NewUnauthorizedError("Incorrect email or password")
	}
	return u, nil
}

// SetCapability grants or revokes one capability on target. Revoking from an
// admin strips it from every user of the admin's company as well.
func (s *UserService) SetCapability(ctx context.Context, actor *models.User, targetID uint, name string, enabled bool) (*models.User, error) {
	capability, ok := models.ParseCapability(name)
	if !ok {
		return nil, models.NewValidationError("Invalid permission name specified.")
	}

	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, target) {
		return nil, models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	if enabled && !actor.IsSuperAdmin() && !actor.Can(capability) {
		return nil, models.NewForbiddenError("You cannot grant a permission you do not hold.")
	}

	if enabled {
		if err := s.userRepo.GrantCapability(ctx, target.ID, capability); err != nil {
			return nil, err
		}
		cache.InvalidatePrincipals(ctx, s.redis, target.ID)
	} else {
		affected, err := s.userRepo.RevokeCapability(ctx, target, capability)
		if err != nil {
			return nil, err
		}
		cache.InvalidatePrincipals(ctx, s.redis, affected...)

		observability.CapabilityRevocations.WithLabelValues(string(capability), "direct").Inc()
		if cascaded := len(affected) - 1; cascaded > 0 {
			observability.CapabilityRevocations.WithLabelValues(string(capability), "cascade").Add(float64(cascaded))
			observability.GlobalLogger.InfoContext(ctx, "capability revoke cascaded",
				slog.String("capability", string(capability)),
				slog.Uint64("admin_id", uint64(target.ID)),
				slog.Int("users_affected", cascaded),
			)
		}
	}

	return s.userRepo.GetByID(ctx, target.ID)
}

// canManage reports whether actor may change target's account: super admins
// manage everyone but themselves, admins manage the users of their company.
func canManage(actor, target *models.User) bool {
	if actor == nil || target == nil || actor.ID == target.ID {
		return false
	}
	if actor.IsSuperAdmin() {
		return true
	}
	return actor.Role == models.RoleAdmin &&
		target.Role == models.RoleUser &&
		target.SameCompany(actor.CompanyID)
}

// CreateUser creates an account on behalf of creator. New accounts must
// reset their password on first login.
func (s *UserService) CreateUser(ctx context.Context, creator *models.User, in CreateUserInput) (*models.User, error) {
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if in.Role != models.RoleUser && in.Role != models.RoleAdmin {
		return nil, models.NewValidationError("Invalid role")
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := invalid(validation.ValidateEmail(in.Email)); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidatePassword(in.Password)); err != nil {
		return nil, err
	}

	var companyID *uint
	switch {
	case creator.IsSuperAdmin():
		company, err := s.resolveCompany(ctx, in.CompanyName, in.Role == models.RoleAdmin)
		if err != nil {
			return nil, err
		}
		companyID = &company.ID
	case creator.Role == models.RoleAdmin && in.Role == models.RoleUser:
		if creator.CompanyID == nil || !creator.CanCreateUsers {
			return nil, models.NewForbiddenError("You do not have permission to create users.")
		}
		companyID = creator.CompanyID
	default:
		return nil, models.NewForbiddenError("You do not have permission to create users.")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	u := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		CompanyID:    companyID,
		FullName:     strings.TrimSpace(in.FullName),
		Industry:     "General",
		ForceReset:   true,
	}
	if creator.IsSuperAdmin() {
		err = s.userRepo.Create(ctx, u)
	} else {
		err = s.userRepo.CreateForAdmin(ctx, creator.ID, u)
	}
	if err != nil {
		return nil, err
	}

	observability.GlobalLogger.InfoContext(ctx, "user created",
		slog.Uint64("user_id", uint64(u.ID)),
		slog.String("role", string(u.Role)),
		slog.Uint64("creator_id", uint64(creator.ID)),
	)
	return s.userRepo.GetByID(ctx, u.ID)
}

// resolveCompany finds a company by name. Only a super admin creating an
// admin may bring a new company into existence.
func (s *UserService) resolveCompany(ctx context.Context, name string, mayCreate bool) (*models.Company, error) {
	name = strings.TrimSpace(name)
	if err := invalid(validation.ValidateCompanyName(name)); err != nil {
		return nil, err
	}
	company, err := s.companyRepo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if company != nil {
		return company, nil
	}
	if !mayCreate {
		return nil, models.NewNotFoundError("Company", fmt.Sprintf("Company '%s' not found", name))
	}
	company = &models.Company{Name: name}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// UpdateAdminSettings sets an admin's creation rights. Limits below -1 are
// stored as 0.
func (s *UserService) UpdateAdminSettings(ctx context.Context, actor *models.User, adminID uint, canCreate bool, limit int) error {
	if !actor.IsSuperAdmin() {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	if limit < models.UnlimitedUsers {
		limit = 0
	}
	n, err := s.userRepo.UpdateAdminSettings(ctx, adminID, canCreate, limit)
	if err != nil {
		return err
	}
	if n == 0 {
		return models.NewNotFoundError("Admin", "Could not find an admin with the specified ID to update.")
	}
	cache.InvalidatePrincipals(ctx, s.redis, adminID)
	return nil
}

// DeleteUser removes an account. Deleting an admin removes the company with
// all of its users and records.
func (s *UserService) DeleteUser(ctx context.Context, actor *models.User, targetID uint) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !canManage(actor, target) {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}

	removed, err := s.userRepo.Delete(ctx, target)
	if err != nil {
		return err
	}
	cache.InvalidatePrincipals(ctx, s.redis, removed...)

	observability.GlobalLogger.InfoContext(ctx, "user deleted",
		slog.Uint64("user_id", uint64(target.ID)),
		slog.String("role", string(target.Role)),
		slog.Int("users_removed", len(removed)),
	)
	return nil
}

// ListUsers lists accounts visible to actor. Admins only ever see their own
// company.
func (s *UserService) ListUsers(ctx context.Context, actor *models.User, filter repository.UserFilter) ([]models.User, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	return s.userRepo.List(ctx, repository.ScopeFor(actor), filter)
}

func (s *UserService) CountUsersForCompany(ctx context.Context, companyID uint) (int64, error) {
	return s.userRepo.CountUsersForCompany(ctx, companyID)
}

// FlagForReset forces target to choose a new password on next login.
func (s *UserService) FlagForReset(ctx context.Context, actor *models.User, targetID uint) error {
	target, err := s.userRepo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !canManage(actor, target) {
		return models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	if err := s.userRepo.UpdateFields(ctx, target.ID, map[string]interface{}{"force_reset": true}); err != nil {
		return err
	}
	cache.InvalidatePrincipals(ctx, s.redis, target.ID)
	return nil
}

// ResetFlaggedPassword sets a new password for an account that was flagged
// for reset, and clears the flag.
func (s *UserService) ResetFlaggedPassword(ctx context.Context, email, newPassword string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u == nil {
		return models.NewNotFoundError("User", "User not found")
	}
	if !u.ForceReset {
		return models.NewForbiddenError("Password reset not initiated for this user.")
	}
	return s.setPassword(ctx, u.ID, newPassword)
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return models.NewValidationError("Current password is incorrect")
	}
	return s.setPassword(ctx, u.ID, next)
}

func (s *UserService) setPassword(ctx context.Context, userID uint, password string) error {
	if err := invalid(validation.ValidatePassword(password)); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{
		"password_hash": hash,
		"force_reset":   false,
	}); err != nil {
		return err
	}
	cache.InvalidatePrincipals(ctx, s.redis, userID)
	return nil
}

// UpdateProfile applies the provided fields and marks the profile complete.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.User, error) {
	const maxFieldLen = 200

	fields := map[string]interface{}{"profile_complete": true}
	for column, v := range map[string]*string{
		"full_name": in.FullName,
		"phone":     in.Phone,
		"job_title": in.JobTitle,
		"industry":  in.Industry,
	} {
		if v == nil {
			continue
		}
		value := strings.TrimSpace(*v)
		if len(value) > maxFieldLen {
			return nil, models.NewValidationError(fmt.Sprintf("%s too long (max %d characters)", column, maxFieldLen))
		}
		fields[column] = value
	}
	if industry, ok := fields["industry"]; ok && industry == "" {
		fields["industry"] = "General"
	}

	if err := s.userRepo.UpdateFields(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// SetPhoto stores a normalized PNG as the user's profile photo.
func (s *UserService) SetPhoto(ctx context.Context, userID uint, data []byte) error {
	normalized, err := NormalizePhoto(data, ProfilePhotoMaxSide)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(ctx, userID, map[string]interface{}{"photo": normalized})
}

func (s *UserService) GetPhoto(ctx context.Context, userID uint) ([]byte, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("Photo", "Photo not found")
		}
		return nil, err
	}
	if len(u.Photo) == 0 {
		return nil, models.NewNotFoundError("Photo", "Photo not found")
	}
	return u.Photo, nil
}

func (s *UserService) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return s.companyRepo.List(ctx)
}

func (s *UserService) CreateCompany(ctx context.Context, actor *models.User, name string) (*models.Company, error) {
	if !actor.IsSuperAdmin() {
		return nil, models.NewForbiddenError(models.PermissionDeniedMessage)
	}
	name = strings.TrimSpace(name)
	if err := invalid(validation.ValidateCompanyName(name)); err != nil {
		return nil, err
	}
	company := &models.Company{Name: name}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// invalid lifts a validation failure into an AppError.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return models.NewValidationError(err.Error())
}

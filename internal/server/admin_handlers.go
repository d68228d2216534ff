package server

import (
	"safeguard/internal/models"
	"safeguard/internal/repository"
	"safeguard/internal/service"

	"github.com/gofiber/fiber/v2"
)

func publicUsers(users []models.User) []models.UserPublic {
	out := make([]models.UserPublic, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

// ListUsers handles GET /admin/users?search=&sort=&role=&company_id=
func (s *Server) ListUsers(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}

	filter := repository.UserFilter{
		Search: c.Query("search"),
		Sort:   c.Query("sort", repository.UserSortNewest),
		Role:   models.Role(c.Query("role")),
	}
	if companyID := c.QueryInt("company_id", 0); companyID > 0 {
		id := uint(companyID)
		filter.CompanyID = &id
	}

	users, err := s.userService.ListUsers(c.UserContext(), actor, filter)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(publicUsers(users))
}

// CreateUser handles POST /admin/users
func (s *Server) CreateUser(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}

	var req struct {
		Email       string      `json:"email"`
		Password    string      `json:"password"`
		Role        models.Role `json:"role"`
		CompanyName string      `json:"company_name"`
		FullName    string      `json:"full_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.CreateUser(c.UserContext(), actor, service.CreateUserInput{
		Email:       req.Email,
		Password:    req.Password,
		Role:        req.Role,
		CompanyName: req.CompanyName,
		FullName:    req.FullName,
	})
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user.Public())
}

// DeleteUser handles DELETE /admin/users/:id
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.userService.DeleteUser(c.UserContext(), actor, id); err != nil {
		return respondAppError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetCapability handles PUT /admin/users/:id/capabilities with
// {capability, enabled}. Revoking from an admin cascades to the company.
func (s *Server) SetCapability(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}

	var req struct {
		Capability string `json:"capability"`
		Enabled    *bool  `json:"enabled"`
	}
	if err := c.BodyParser(&req); err != nil || req.Enabled == nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("capability and enabled are required"))
	}

	user, err := s.userService.SetCapability(c.UserContext(), actor, id, req.Capability, *req.Enabled)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(user.Public())
}

// FlagForReset handles POST /admin/users/:id/force-reset
func (s *Server) FlagForReset(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if err := s.userService.FlagForReset(c.UserContext(), actor, id); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User must reset their password on next login"})
}

// UpdateAdminSettings handles PUT /admin/admins/:id/settings
func (s *Server) UpdateAdminSettings(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}

	var req struct {
		CanCreateUsers    bool `json:"can_create_users"`
		UserCreationLimit int  `json:"user_creation_limit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.userService.UpdateAdminSettings(c.UserContext(), actor, id, req.CanCreateUsers, req.UserCreationLimit); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Admin settings updated"})
}

// ListCompanies handles GET /admin/companies. Admins see only their own.
func (s *Server) ListCompanies(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if !actor.IsSuperAdmin() {
		out := []models.Company{}
		if actor.Company != nil {
			out = append(out, *actor.Company)
		}
		return c.JSON(out)
	}

	companies, err := s.userService.ListCompanies(c.UserContext())
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(companies)
}

// CreateCompany handles POST /admin/companies
func (s *Server) CreateCompany(c *fiber.Ctx) error {
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	company, err := s.userService.CreateCompany(c.UserContext(), actor, req.Name)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(company)
}

// CompanyUserCount handles GET /admin/companies/:id/user-count
func (s *Server) CompanyUserCount(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	actor, err := s.currentUser(c)
	if err != nil {
		return respondAppError(c, err)
	}
	if !actor.IsSuperAdmin() && !actor.SameCompany(&id) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError(models.PermissionDeniedMessage))
	}

	n, err := s.userService.CountUsersForCompany(c.UserContext(), id)
	if err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"company_id": id, "user_count": n})
}

package server

import (
	"log/slog"
	"strings"
	"time"

	"safeguard/internal/auth"
	"safeguard/internal/cache"
	"safeguard/internal/middleware"
	"safeguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Login handles POST /login. It accepts a JSON body {email, password} or
// an OAuth2-style form with username and password.
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Email == "" {
		req.Email = c.FormValue("email")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and password are required"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondAppError(c, err)
	}
	if user.ForceReset {
		return respondAppError(c, models.NewResetRequiredError())
	}

	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user.Public(),
	})
}

// Logout handles POST /logout by blacklisting the token's jti until it
// would have expired anyway.
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, ok := c.Locals(localClaims).(*auth.Claims)
	if !ok || claims.JTI == "" {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}

	ttl := time.Until(claims.ExpiresAt)
	if s.redis == nil || ttl <= 0 {
		return c.JSON(fiber.Map{"message": "Logged out"})
	}
	if err := s.redis.Set(c.UserContext(), cache.BlacklistKey(claims.JTI), "1", ttl).Err(); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "token blacklist failed", slog.String("error", err.Error()))
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// ResetPassword handles POST /auth/reset-password for accounts flagged with
// force_reset.
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := s.userService.ResetFlaggedPassword(c.UserContext(), req.Email, req.NewPassword); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// ChangePassword handles POST /users/me/password
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := s.userService.ChangePassword(c.UserContext(), userIDFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondAppError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

package server

import (
	"strings"
	"time"

	"safeguard/internal/access"
	"safeguard/internal/auth"
	"safeguard/internal/cache"
	"safeguard/internal/middleware"
	"safeguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID    = "userID"
	localPrincipal = "principal"
	localClaims    = "claims"
	localUser      = "user"
)

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get(fiber.HeaderAuthorization), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// authenticate validates a raw token and resolves the caller's principal.
// It is shared by AuthRequired and the WebSocket upgrade.
func (s *Server) authenticate(c *fiber.Ctx, token string) (*auth.Claims, access.Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, access.Principal{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	if claims.JTI != "" && s.redis != nil {
		revoked, err := s.redis.Exists(c.UserContext(), cache.BlacklistKey(claims.JTI)).Result()
		if err == nil && revoked > 0 {
			return nil, access.Principal{}, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	p, err := s.userService.Principal(c.UserContext(), claims.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, access.Principal{}, models.NewUnauthorizedError("Invalid or expired token")
		}
		return nil, access.Principal{}, err
	}
	return claims, p, nil
}

// AuthRequired returns the authentication middleware. It accepts only
// "Authorization: Bearer <token>". Accounts flagged force_reset are refused
// unless allowReset is set.
func (s *Server) AuthRequired(allowReset bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, p, err := s.authenticate(c, token)
		if err != nil {
			return respondAppError(c, err)
		}
		if p.ForceReset && !allowReset {
			return respondAppError(c, models.NewResetRequiredError())
		}

		c.Locals(localUserID, p.UserID)
		c.Locals(localPrincipal, p)
		c.Locals(localClaims, claims)
		middleware.WithUserContext(c, p.UserID)

		return c.Next()
	}
}

// RoleRequired rejects callers below min in the role hierarchy. Must be
// placed after AuthRequired.
func (s *Server) RoleRequired(min models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := c.Locals(localPrincipal).(access.Principal)
		if !ok || !s.enforcer.AtLeast(p.Role, min) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Permission denied"))
		}
		return c.Next()
	}
}

// CapabilityRequired rejects callers that do not hold capability. Super
// admins hold every capability.
func (s *Server) CapabilityRequired(capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := c.Locals(localPrincipal).(access.Principal)
		if !ok || !p.Can(capability) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("You do not have access to this feature."))
		}
		return c.Next()
	}
}

// chain builds the handler list for one route table entry.
func (s *Server) chain(r access.Route) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, 5)
	if r.Auth {
		handlers = append(handlers, s.AuthRequired(r.AllowDuringReset))
		if r.MinRole != "" {
			handlers = append(handlers, s.RoleRequired(r.MinRole))
		}
		if r.Capability != "" {
			handlers = append(handlers, s.CapabilityRequired(r.Capability))
		}
	}
	if r.RateLimit > 0 {
		handlers = append(handlers, s.limiter.Handler(r.RateLimit, time.Minute, r.Method+" "+r.Path))
	}
	return append(handlers, r.Handler)
}

// currentUser loads the full caller record once per request.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	if u, ok := c.Locals(localUser).(*models.User); ok {
		return u, nil
	}
	userID, ok := c.Locals(localUserID).(uint)
	if !ok {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	u, err := s.userService.GetUser(c.UserContext(), userID)
	if err != nil {
		return nil, err
	}
	c.Locals(localUser, u)
	return u, nil
}

func userIDFrom(c *fiber.Ctx) uint {
	id, _ := c.Locals(localUserID).(uint)
	return id
}

package access

import (
	"safeguard/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Route is one entry of the declarative route table.
type Route struct {
	Method     string
	Path       string
	Handler    fiber.Handler
	Auth       bool
	MinRole    models.Role
	Capability models.Capability
	// RateLimit, when non-zero, applies a per-caller limit per minute.
	RateLimit int
	// AllowDuringReset admits callers whose account is flagged force_reset.
	AllowDuringReset bool
}

// RouteInfo is the serializable description of a Route.
type RouteInfo struct {
	Method      string `json:"method" yaml:"method"`
	Path        string `json:"path" yaml:"path"`
	Auth        bool   `json:"auth" yaml:"auth"`
	MinRole     string `json:"min_role,omitempty" yaml:"min_role,omitempty"`
	Capability  string `json:"capability,omitempty" yaml:"capability,omitempty"`
	DuringReset bool   `json:"during_reset,omitempty" yaml:"during_reset,omitempty"`
}

// Describe strips handlers from routes.
func Describe(routes []Route) []RouteInfo {
	out := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteInfo{
			Method:      r.Method,
			Path:        r.Path,
			Auth:        r.Auth,
			MinRole:     string(r.MinRole),
			Capability:  string(r.Capability),
			DuringReset: r.AllowDuringReset,
		})
	}
	return out
}

package access

import "safeguard/internal/models"

// Principal is the slice of a user that request authorization needs. It is
// cached in Redis and must be invalidated whenever role or capabilities
// change.
type Principal struct {
	UserID       uint                `json:"user_id"`
	Role         models.Role         `json:"role"`
	CompanyID    *uint               `json:"company_id"`
	Capabilities []models.Capability `json:"capabilities"`
	ForceReset   bool                `json:"force_reset"`
}

// PrincipalFor projects u.
func PrincipalFor(u *models.User) Principal {
	return Principal{
		UserID:       u.ID,
		Role:         u.Role,
		CompanyID:    u.CompanyID,
		Capabilities: u.CapabilitySet().Sorted(),
		ForceReset:   u.ForceReset,
	}
}

// Can reports whether the principal holds c. Super admins hold everything.
func (p Principal) Can(c models.Capability) bool {
	if p.Role == models.RoleSuperAdmin {
		return true
	}
	for _, have := range p.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

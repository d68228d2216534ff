// Package models contains data structures for the application's domain models.
package models

import (
	"sort"
	"time"
)

// Role is the coarse tier of a user inside the tenant hierarchy.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// UnlimitedUsers is the user_creation_limit value that disables the limit.
const UnlimitedUsers = -1

// Company is a tenant boundary.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the single identity table shared by every feature area.
type User struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Email           string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string    `gorm:"not null" json:"-"`
	Role            Role      `gorm:"type:varchar(20);not null;default:user;index" json:"role"`
	CompanyID       *uint     `gorm:"index" json:"company_id"`
	Company         *Company  `gorm:"foreignKey:CompanyID;constraint:OnDelete:SET NULL" json:"company,omitempty"`
	FullName        string    `json:"full_name"`
	Phone           string    `json:"phone"`
	JobTitle        string    `json:"job_title"`
	Industry        string    `gorm:"not null;default:General" json:"industry"`
	Photo           []byte    `json:"-"`
	ProfileComplete bool      `gorm:"not null;default:false" json:"profile_complete"`
	ForceReset      bool      `gorm:"not null;default:false" json:"force_reset"`
	CanCreateUsers  bool      `gorm:"not null;default:false" json:"can_create_users"`
	CreationLimit   int       `gorm:"column:user_creation_limit;not null;default:0" json:"user_creation_limit"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Capabilities []UserCapability `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsAdmin reports whether the user is an admin or super admin.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleSuperAdmin)
}

func (u *User) IsSuperAdmin() bool {
	return u != nil && u.Role == RoleSuperAdmin
}

// DisplayName falls back to the email when no name is set.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// SameCompany reports whether both users belong to the same non-nil company.
func (u *User) SameCompany(companyID *uint) bool {
	return u != nil && u.CompanyID != nil && companyID != nil && *u.CompanyID == *companyID
}

// CapabilitySet returns the effective capability set. Super admins hold
// every capability regardless of stored rows.
func (u *User) CapabilitySet() CapabilitySet {
	if u.IsSuperAdmin() {
		return NewCapabilitySet(AllCapabilities...)
	}
	set := make(CapabilitySet, len(u.Capabilities))
	for _, uc := range u.Capabilities {
		set[uc.Capability] = struct{}{}
	}
	return set
}

// Can reports whether the user effectively holds c.
func (u *User) Can(c Capability) bool {
	if u == nil {
		return false
	}
	return u.CapabilitySet().Has(c)
}

// UserPublic is the user shape returned to clients.
type UserPublic struct {
	ID              uint         `json:"id"`
	Email           string       `json:"email"`
	Name            string       `json:"name"`
	Role            Role         `json:"role"`
	CompanyID       *uint        `json:"company_id"`
	CompanyName     string       `json:"company_name,omitempty"`
	Phone           string       `json:"phone"`
	JobTitle        string       `json:"job_title"`
	Industry        string       `json:"industry"`
	HasPhoto        bool         `json:"has_photo"`
	ProfileComplete bool         `json:"profile_complete"`
	ForceReset      bool         `json:"force_reset"`
	CanCreateUsers  bool         `json:"can_create_users"`
	CreationLimit   int          `json:"user_creation_limit"`
	Capabilities    []Capability `json:"capabilities"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Public projects the user for API responses.
func (u *User) Public() UserPublic {
	out := UserPublic{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.FullName,
		Role:            u.Role,
		CompanyID:       u.CompanyID,
		Phone:           u.Phone,
		JobTitle:        u.JobTitle,
		Industry:        u.Industry,
		HasPhoto:        len(u.Photo) > 0,
		ProfileComplete: u.ProfileComplete,
		ForceReset:      u.ForceReset,
		CanCreateUsers:  u.CanCreateUsers,
		CreationLimit:   u.CreationLimit,
		Capabilities:    u.CapabilitySet().Sorted(),
		CreatedAt:       u.CreatedAt,
	}
	if u.Company != nil {
		out.CompanyName = u.Company.Name
	}
	return out
}

// Capability is a named feature area a user may be granted.
type Capability string

const (
	CapObservation  Capability = "observation"
	CapTraining     Capability = "training"
	CapLostAndFound Capability = "lost_and_found"
	CapGatePass     Capability = "gate_pass"
	CapAskAI        Capability = "ask_ai"
)

// AllCapabilities lists every known capability.
var AllCapabilities = []Capability{
	CapObservation,
	CapTraining,
	CapLostAndFound,
	CapGatePass,
	CapAskAI,
}

// ParseCapability accepts both the bare name and the legacy
// "can_access_<name>" column form.
func ParseCapability(raw string) (Capability, bool) {
	name := Capability(trimCapabilityPrefix(raw))
	for _, c := range AllCapabilities {
		if c == name {
			return c, true
		}
	}
	return "", false
}

func trimCapabilityPrefix(raw string) string {
	const prefix = "can_access_"
	if len(raw) > len(prefix) && raw[:len(prefix)] == prefix {
		return raw[len(prefix):]
	}
	return raw
}

// CapabilitySet is a set of capabilities.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Sorted returns the members in a stable order.
func (s CapabilitySet) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UserCapability is one row of the set-valued capability model.
type UserCapability struct {
	UserID     uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Capability Capability `gorm:"primaryKey;type:varchar(40)" json:"capability"`
	CreatedAt  time.Time  `json:"created_at"`
}

package access

import (
	"testing"

	"safeguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnforcer_AtLeast(t *testing.T) {
	en, err := NewEnforcer()
	require.NoError(t, err)

	tests := []struct {
		role models.Role
		min  models.Role
		want bool
	}{
		{models.RoleUser, models.RoleUser, true},
		{models.RoleUser, models.RoleAdmin, false},
		{models.RoleUser, models.RoleSuperAdmin, false},
		{models.RoleAdmin, models.RoleUser, true},
		{models.RoleAdmin, models.RoleAdmin, true},
		{models.RoleAdmin, models.RoleSuperAdmin, false},
		{models.RoleSuperAdmin, models.RoleUser, true},
		{models.RoleSuperAdmin, models.RoleAdmin, true},
		{models.RoleSuperAdmin, models.RoleSuperAdmin, true},
		{models.RoleUser, "", true},
		{"intruder", "", false},
		{"intruder", models.RoleUser, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+">="+string(tt.min), func(t *testing.T) {
			assert.Equal(t, tt.want, en.AtLeast(tt.role, tt.min))
		})
	}
}

func TestPrincipal_Can(t *testing.T) {
	companyID := uint(3)
	user := &models.User{
		ID:        9,
		Role:      models.RoleUser,
		CompanyID: &companyID,
		Capabilities: []models.UserCapability{
			{UserID: 9, Capability: models.CapTraining},
		},
	}
	p := PrincipalFor(user)
	assert.True(t, p.Can(models.CapTraining))
	assert.False(t, p.Can(models.CapObservation))

	root := PrincipalFor(&models.User{ID: 1, Role: models.RoleSuperAdmin})
	for _, c := range models.AllCapabilities {
		assert.True(t, root.Can(c), c)
	}
}

func TestDescribe(t *testing.T) {
	infos := Describe([]Route{{Method: "GET", Path: "/routes", Auth: true, MinRole: models.RoleAdmin}})
	require.Len(t, infos, 1)
	assert.Equal(t, "admin", infos[0].MinRole)
	assert.Empty(t, infos[0].Capability)
}

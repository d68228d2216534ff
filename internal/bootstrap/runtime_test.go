package bootstrap

import (
	"context"
	"testing"

	"safeguard/internal/auth"
	"safeguard/internal/config"
	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:              "development",
		DevBootstrapRoot: true,
		DevRootPassword:  "correct horse battery",
	}
}

func TestEnsureDevRootAdmin_Skipped(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"production", &config.Config{Env: "production", DevBootstrapRoot: true, DevRootPassword: "x"}},
		{"flag off", &config.Config{Env: "development", DevRootPassword: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewTestDB(t)
			require.NoError(t, EnsureDevRootAdmin(context.Background(), tt.cfg, db))

			var n int64
			require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}

func TestEnsureDevRootAdmin_RequiresPassword(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := devConfig()
	cfg.DevRootPassword = " "
	assert.Error(t, EnsureDevRootAdmin(context.Background(), cfg, db))
}

func TestEnsureDevRootAdmin_CreatesSuperAdmin(t *testing.T) {
	db := testutil.NewTestDB(t)
	require.NoError(t, EnsureDevRootAdmin(context.Background(), devConfig(), db))

	var root models.User
	require.NoError(t, db.Where("email = ?", DefaultRootEmail).First(&root).Error)
	assert.Equal(t, models.RoleSuperAdmin, root.Role)
	assert.Nil(t, root.CompanyID)
	assert.Equal(t, models.UnlimitedUsers, root.CreationLimit)
	assert.True(t, auth.CheckPassword(root.PasswordHash, "correct horse battery"))

	// A second run is a no-op apart from refreshing the password.
	require.NoError(t, EnsureDevRootAdmin(context.Background(), devConfig(), db))
	var n int64
	require.NoError(t, db.Model(&models.User{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestEnsureDevRootAdmin_PromotesExistingUser(t *testing.T) {
	db := testutil.NewTestDB(t)
	company := testutil.MakeCompany(t, db)
	existing := testutil.MakeUser(t, db, models.RoleUser, company)

	cfg := devConfig()
	cfg.DevRootEmail = existing.Email
	require.NoError(t, EnsureDevRootAdmin(context.Background(), cfg, db))

	var got models.User
	require.NoError(t, db.First(&got, existing.ID).Error)
	assert.Equal(t, models.RoleSuperAdmin, got.Role)
	assert.Nil(t, got.CompanyID)
	assert.True(t, auth.CheckPassword(got.PasswordHash, "correct horse battery"))
}

func TestSeedIfEmpty_SkipsPopulatedDatabase(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.MakeCompany(t, db)

	require.NoError(t, seedIfEmpty(context.Background(), db))

	var n int64
	require.NoError(t, db.Model(&models.Company{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

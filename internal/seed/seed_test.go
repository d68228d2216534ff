package seed

import (
	"context"
	"testing"

	"safeguard/internal/auth"
	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_PopulatesEveryArea(t *testing.T) {
	db := testutil.NewTestDB(t)
	opts := Presets["minimal"]
	opts.SkipBcrypt = true
	opts.PostsPerUser = 1

	sum, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Companies)
	assert.Equal(t, 4, sum.Users)
	assert.Equal(t, 5, sum.Observations)
	assert.Equal(t, len(courses), sum.Trainings)
	assert.Equal(t, 6, sum.Registers)
	assert.Equal(t, 4, sum.Posts)

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(4), count(&models.User{}))
	assert.Equal(t, int64(5), count(&models.Observation{}))
	assert.Equal(t, int64(3), count(&models.LostFoundItem{}))
	assert.Equal(t, int64(3), count(&models.GatePass{}))
	assert.Equal(t, int64(4), count(&models.Post{}))
	// five company messages plus four in the admin's private chat
	assert.Equal(t, int64(9), count(&models.Message{}))

	var admin models.User
	require.NoError(t, db.Preload("Capabilities").Where("role = ?", models.RoleAdmin).First(&admin).Error)
	assert.True(t, admin.CanCreateUsers)
	assert.Len(t, admin.Capabilities, len(models.AllCapabilities))
	assert.True(t, auth.CheckPassword(admin.PasswordHash, DemoPassword))

	var observations []models.Observation
	require.NoError(t, db.Find(&observations).Error)
	for _, o := range observations {
		assert.Equal(t, o.Likelihood*o.Severity, o.RiskRating)
		assert.Equal(t, admin.CompanyID, o.CompanyID)
	}
}

func TestSeed_CleanRemovesPreviousRun(t *testing.T) {
	db := testutil.NewTestDB(t)
	opts := Options{Companies: 1, UsersPerCompany: 1, ObservationsPerCompany: 2, SeedOptions: SeedOptions{SkipBcrypt: true}}

	_, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)

	opts.ShouldClean = true
	_, err = Seed(context.Background(), db, opts)
	require.NoError(t, err)

	var companies, observations int64
	require.NoError(t, db.Model(&models.Company{}).Count(&companies).Error)
	require.NoError(t, db.Model(&models.Observation{}).Count(&observations).Error)
	assert.Equal(t, int64(1), companies)
	assert.Equal(t, int64(2), observations)
}

func TestSeed_DryRunWritesNothing(t *testing.T) {
	db := testutil.NewTestDB(t)
	opts := Presets["minimal"]
	opts.DryRun = true
	opts.SkipBcrypt = true

	sum, err := Seed(context.Background(), db, opts)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Users)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

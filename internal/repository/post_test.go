package repository

import (
	"context"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	owner := testutil.MakeUser(t, db, models.RoleUser, nil)
	viewer := testutil.MakeUser(t, db, models.RoleUser, nil)

	visible := &models.Post{Title: "Spare PPE", OwnerID: owner.ID, Photo: []byte{1}}
	hidden := &models.Post{Title: "Old helmet", OwnerID: owner.ID, IsHidden: true}
	require.NoError(t, repo.Create(ctx, visible))
	require.NoError(t, repo.Create(ctx, hidden))
	assert.True(t, visible.HasPhoto)

	forViewer, err := repo.ListVisible(ctx, viewer.ID)
	require.NoError(t, err)
	require.Len(t, forViewer, 1)
	assert.Equal(t, visible.ID, forViewer[0].ID)
	assert.True(t, forViewer[0].HasPhoto)

	forOwner, err := repo.ListVisible(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, forOwner, 2)

	require.NoError(t, repo.UpdateFields(ctx, hidden.ID, map[string]interface{}{"is_hidden": false}))
	forViewer, err = repo.ListVisible(ctx, viewer.ID)
	require.NoError(t, err)
	assert.Len(t, forViewer, 2)

	require.NoError(t, repo.Delete(ctx, hidden.ID))
	_, err = repo.GetByID(ctx, hidden.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

package service

import (
	"context"
	"image/color"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/repository"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lostItem(ticket string) LostFoundInput {
	return LostFoundInput{
		EntryDate:       "2026-01-05",
		EntryTime:       "08:30",
		TicketNo:        ticket,
		ItemType:        "Wallet",
		ItemDescription: "Brown leather wallet",
		LocationFound:   "Canteen",
		FoundBy:         "J. Doe",
		Department:      "Logistics",
	}
}

func TestLostFoundService(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := NewLostFoundService(repository.NewLostFoundRepository(db))
	one := testutil.MakeCompany(t, db)
	two := testutil.MakeCompany(t, db)
	guard := testutil.MakeUser(t, db, models.RoleUser, one, testutil.WithCapabilities(models.CapLostAndFound))
	otherGuard := testutil.MakeUser(t, db, models.RoleUser, two, testutil.WithCapabilities(models.CapLostAndFound))
	noCap := testutil.MakeUser(t, db, models.RoleUser, one)

	_, err := svc.Create(ctx, noCap, lostItem("T-1"))
	assertAppCode(t, err, models.CodeForbidden)

	in := lostItem("T-1")
	in.Photo = testutil.TinyPNG(t, 10, 10, color.White)
	item, err := svc.Create(ctx, guard, in)
	require.NoError(t, err)
	assert.Equal(t, models.LostFoundUnclaimed, item.Status)

	_, err = svc.Create(ctx, guard, lostItem("T-1"))
	assertAppCode(t, err, models.CodeConflict)

	// Ticket numbers are unique per company only.
	_, err = svc.Create(ctx, otherGuard, lostItem("T-1"))
	require.NoError(t, err)

	missing := lostItem("T-2")
	missing.FoundBy = ""
	_, err = svc.Create(ctx, guard, missing)
	assertAppCode(t, err, models.CodeValidation)

	list, err := svc.List(ctx, guard, "leather")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Claim(ctx, otherGuard, item.ID, ClaimInput{Status: "Claimed"})
	assertAppCode(t, err, models.CodeForbidden)

	claimed, err := svc.Claim(ctx, guard, item.ID, ClaimInput{
		Status:      "Claimed",
		ClaimerName: "Owner Person",
		ClaimDate:   "2026-01-06",
	})
	require.NoError(t, err)
	assert.Equal(t, "Claimed", claimed.Status)
	assert.Equal(t, "Owner Person", claimed.ClaimerName)
	require.NotNil(t, claimed.ClaimDate)

	photo, err := svc.Photo(ctx, guard, item.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, photo)

	assertAppCode(t, svc.Delete(ctx, otherGuard, item.ID), models.CodeForbidden)
	require.NoError(t, svc.Delete(ctx, guard, item.ID))
}

func TestGatePassService(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	svc := NewGatePassService(repository.NewGatePassRepository(db))
	acme := testutil.MakeCompany(t, db)
	clerk := testutil.MakeUser(t, db, models.RoleUser, acme, testutil.WithCapabilities(models.CapGatePass))
	root := testutil.MakeUser(t, db, models.RoleSuperAdmin, nil)

	pass, err := svc.Create(ctx, clerk, GatePassInput{GatePassNumber: "GP-100", ItemDescription: "Laptop", DateToBeReturned: "2026-02-01"})
	require.NoError(t, err)
	assert.Equal(t, models.GatePassNotReturned, pass.Status)

	_, err = svc.Create(ctx, clerk, GatePassInput{GatePassNumber: "GP-100"})
	assertAppCode(t, err, models.CodeConflict)

	_, err = svc.Photo(ctx, clerk, pass.ID, true)
	assertAppCode(t, err, models.CodeNotFound)

	returned, err := svc.Return(ctx, clerk, pass.ID, ReturnInput{
		Status:       "returned",
		ReturnedDate: "2026-01-30",
		ReceivedBy:   "Gate 2",
		Photo:        testutil.TinyPNG(t, 4, 4, color.Black),
	})
	require.NoError(t, err)
	assert.Equal(t, "returned", returned.Status)

	photo, err := svc.Photo(ctx, clerk, pass.ID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, photo)

	all, err := svc.List(ctx, root, "laptop")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

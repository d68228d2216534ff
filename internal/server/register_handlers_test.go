package server

import (
	"image/color"
	"net/http"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lostFoundBody(ticket string) map[string]string {
	return map[string]string{
		"entry_date":       "2026-10-01",
		"entry_time":       "08:15",
		"ticket_no":        ticket,
		"item_type":        "Wallet",
		"item_description": "Brown leather wallet",
		"location_found":   "Canteen",
		"found_by":         "J. Okafor",
		"department":       "Maintenance",
	}
}

func TestLostFound(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	guard := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapLostAndFound))
	outsider := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapLostAndFound))
	token := env.token(guard)

	missingDept := lostFoundBody("LF-002")
	delete(missingDept, "department")

	tests := []struct {
		name           string
		body           map[string]string
		expectedStatus int
	}{
		{"valid", lostFoundBody("LF-001"), http.StatusCreated},
		{"duplicate ticket", lostFoundBody("LF-001"), http.StatusConflict},
		{"missing department", missingDept, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/lost-found", tt.body, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	// Ticket numbers are unique per company only.
	resp := env.do(http.MethodPost, "/lost-found", lostFoundBody("LF-001"), env.token(outsider))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(http.MethodGet, "/lost-found?search=wallet", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decodeJSON[[]models.LostFoundItem](t, resp)
	require.Len(t, items, 1)
	path := "/lost-found/" + uintString(items[0].ID)

	resp = env.do(http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Unclaimed", decodeJSON[models.LostFoundItem](t, resp).Status)

	resp = env.do(http.MethodGet, path, nil, env.token(outsider))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	claim := map[string]string{
		"status":                    "Claimed",
		"claimer_receiver_disposer": "A. Mensah",
		"claim_date":                "2026-10-03",
	}
	resp = env.do(http.MethodPut, path+"/claim", claim, env.token(outsider))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(http.MethodPut, path+"/claim", map[string]string{"status": " "}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodPut, path+"/claim", claim, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	claimed := decodeJSON[models.LostFoundItem](t, resp)
	assert.Equal(t, "Claimed", claimed.Status)
	assert.Equal(t, "A. Mensah", claimed.ClaimerName)
	require.NotNil(t, claimed.ClaimDate)
	assert.Equal(t, "2026-10-03", *claimed.ClaimDate)

	resp = env.do(http.MethodGet, path+"/photo", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(http.MethodDelete, path, nil, env.token(outsider))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = env.do(http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLostFound_WithPhoto(t *testing.T) {
	env := newTestEnv(t)
	guard := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapLostAndFound))
	token := env.token(guard)

	resp := env.upload(http.MethodPost, "/lost-found", "photo", "wallet.png",
		testutil.TinyPNG(t, 20, 20, color.Black), lostFoundBody("LF-100"), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decodeJSON[models.LostFoundItem](t, resp)

	resp = env.do(http.MethodGet, "/lost-found/"+uintString(item.ID)+"/photo", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGatePass(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	clerk := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapGatePass))
	outsider := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapGatePass))
	token := env.token(clerk)

	resp := env.upload(http.MethodPost, "/gate-passes", "photo", "drill.png",
		testutil.TinyPNG(t, 32, 24, color.White),
		map[string]string{
			"gate_pass_number":    "GP-7",
			"item_description":    "Cordless drill",
			"issued_to":           "K. Ito",
			"type":                "returnable",
			"date_to_be_returned": "2026-10-20",
		}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	pass := decodeJSON[models.GatePass](t, resp)
	path := "/gate-passes/" + uintString(pass.ID)

	resp = env.do(http.MethodPost, "/gate-passes", map[string]string{"gate_pass_number": "GP-7"}, token)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = env.do(http.MethodPost, "/gate-passes", map[string]string{"item_description": "no number"}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(http.MethodGet, path+"/photo", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(http.MethodGet, path+"/return-photo", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(http.MethodGet, path, nil, env.token(outsider))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.upload(http.MethodPut, path+"/return", "photo", "back.png",
		testutil.TinyPNG(t, 32, 24, color.White),
		map[string]string{"status": "returned", "returned_date": "2026-10-18", "received_by": "Gate 2"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	returned := decodeJSON[models.GatePass](t, resp)
	assert.Equal(t, "returned", returned.Status)
	require.NotNil(t, returned.ReturnedDate)
	assert.Equal(t, "2026-10-18", *returned.ReturnedDate)

	resp = env.do(http.MethodGet, path+"/return-photo", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A later return update without a photo keeps the stored one.
	resp = env.do(http.MethodPut, path+"/return", map[string]string{"status": "returned", "remarks": "checked"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(http.MethodGet, path+"/return-photo", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, "/gate-passes?search=drill", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]models.GatePass](t, resp), 1)

	resp = env.do(http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

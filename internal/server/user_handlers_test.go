package server

import (
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyProfile(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	user := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapLostAndFound))

	resp := env.do(http.MethodGet, "/users/me", nil, env.token(user))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	me := decodeJSON[models.UserPublic](t, resp)
	assert.Equal(t, user.Email, me.Email)
	assert.Equal(t, company.Name, me.CompanyName)
	assert.Equal(t, []models.Capability{models.CapLostAndFound}, me.Capabilities)
	assert.False(t, me.HasPhoto)
}

func TestUpdateMyProfile(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db))
	token := env.token(user)

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
	}{
		{"all fields", map[string]any{"full_name": "Dana Reyes", "phone": "555-0100", "job_title": "Supervisor", "industry": "Construction"}, http.StatusOK},
		{"single field", map[string]any{"phone": "555-0199"}, http.StatusOK},
		{"field too long", map[string]any{"job_title": strings.Repeat("x", 201)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodPut, "/users/me", tt.body, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	resp := env.do(http.MethodGet, "/users/me", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeJSON[models.UserPublic](t, resp)
	assert.Equal(t, "Dana Reyes", me.Name)
	assert.Equal(t, "555-0199", me.Phone)
	assert.Equal(t, "Supervisor", me.JobTitle)
	assert.True(t, me.ProfileComplete)

	t.Run("blank industry falls back to General", func(t *testing.T) {
		resp := env.do(http.MethodPut, "/users/me", map[string]any{"industry": "  "}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "General", decodeJSON[models.UserPublic](t, resp).Industry)
	})
}

func TestUploadMyPhoto(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)
	viewer := testutil.MakeUser(t, env.db, models.RoleUser, nil)
	token := env.token(user)
	photoPath := "/users/" + uintString(user.ID) + "/photo"

	resp := env.do(http.MethodGet, photoPath, nil, env.token(viewer))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	tests := []struct {
		name           string
		data           []byte
		expectedStatus int
	}{
		{"missing file", nil, http.StatusBadRequest},
		{"not an image", []byte("just some text, definitely not a picture"), http.StatusBadRequest},
		{"png", testutil.TinyPNG(t, 900, 600, color.RGBA{R: 200, A: 255}), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.upload(http.MethodPost, "/users/me/photo", "file", "me.png", tt.data, nil, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	var reloaded models.User
	require.NoError(t, env.db.First(&reloaded, user.ID).Error)
	require.NotEmpty(t, reloaded.Photo)

	t.Run("served as png by default", func(t *testing.T) {
		resp := env.do(http.MethodGet, photoPath, nil, env.token(viewer))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	})

	t.Run("served as webp when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, photoPath, nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+env.token(viewer))
		req.Header.Set(fiber.HeaderAccept, "image/avif,image/webp,*/*")
		resp, err := env.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/webp", resp.Header.Get(fiber.HeaderContentType))
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "RIFF", string(body[:4]))
	})
}

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"safeguard/internal/config"
	"safeguard/internal/middleware"
	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_AuthRequired(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	user := testutil.MakeUser(t, env.db, models.RoleUser, company)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1", "iss": "someone-else", "aud": "safeguard-client", "exp": 4102444800,
	})
	foreignToken, err := foreign.SignedString([]byte(testConfig().SecretKey))
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{
			name:           "Valid Token",
			authHeader:     "Bearer " + env.token(user),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Lowercase Scheme",
			authHeader:     "bearer " + env.token(user),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Bearer Format",
			authHeader:     "Token " + env.token(user),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage Token",
			authHeader:     "Bearer not.a.jwt",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Issuer",
			authHeader:     "Bearer " + foreignToken,
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := env.app.Test(req, -1)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestServer_AuthRequired_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)
	token := env.token(user)
	require.NoError(t, env.db.Delete(&models.User{}, user.ID).Error)

	resp := env.do(http.MethodGet, "/users/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_AuthRequired_TokenFromOtherSecret(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, nil)

	cfg := testConfig()
	cfg.SecretKey = "a-completely-different-secret-key-456"
	other, err := NewServerWithDeps(cfg, env.db, nil)
	require.NoError(t, err)
	token, err := other.tokens.Issue(user.ID, user.Role)
	require.NoError(t, err)

	resp := env.do(http.MethodGet, "/users/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_RoleRequired(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	user := testutil.MakeUser(t, env.db, models.RoleUser, company)
	admin := testutil.MakeUser(t, env.db, models.RoleAdmin, company)
	root := testutil.MakeUser(t, env.db, models.RoleSuperAdmin, nil)
	other := testutil.MakeCompany(t, env.db)

	tests := []struct {
		name           string
		caller         *models.User
		path           string
		expectedStatus int
	}{
		{"user on admin route", user, "/admin/users", http.StatusForbidden},
		{"admin on admin route", admin, "/admin/users", http.StatusOK},
		{"super admin on admin route", root, "/admin/users", http.StatusOK},
		{"admin counts own company", admin, "/admin/companies/" + uintString(company.ID) + "/user-count", http.StatusOK},
		{"admin counts other company", admin, "/admin/companies/" + uintString(other.ID) + "/user-count", http.StatusForbidden},
		{"user on routes listing", user, "/routes", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodGet, tt.path, nil, env.token(tt.caller))
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("admin cannot create companies", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/admin/companies", map[string]string{"name": "Acme"}, env.token(admin))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		body := decodeJSON[map[string]string](t, resp)
		assert.Equal(t, "Permission denied", body["error"])
	})
}

func TestServer_CapabilityRequired(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	plain := testutil.MakeUser(t, env.db, models.RoleUser, company)
	holder := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapObservation))
	root := testutil.MakeUser(t, env.db, models.RoleSuperAdmin, nil)

	resp := env.do(http.MethodGet, "/observations", nil, env.token(plain))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeJSON[map[string]string](t, resp)
	assert.Equal(t, "You do not have access to this feature.", body["error"])

	resp = env.do(http.MethodGet, "/observations", nil, env.token(holder))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, "/observations", nil, env.token(root))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A capability gate does not open other features.
	resp = env.do(http.MethodGet, "/gate-passes", nil, env.token(holder))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// The principal is cached in Redis; a revoke must take effect on the very
// next request.
func TestServer_CapabilityRevokeTakesEffectImmediately(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	admin := testutil.MakeUser(t, env.db, models.RoleAdmin, company, testutil.WithCapabilities(models.CapTraining))
	worker := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapTraining))
	root := testutil.MakeUser(t, env.db, models.RoleSuperAdmin, nil)
	workerToken := env.token(worker)

	resp := env.do(http.MethodGet, "/trainings", nil, workerToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodPut, "/admin/users/"+uintString(admin.ID)+"/capabilities",
		map[string]any{"capability": "training", "enabled": false}, env.token(root))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(http.MethodGet, "/trainings", nil, workerToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChain_Order(t *testing.T) {
	srv := &Server{config: &config.Config{}, limiter: middleware.NewRateLimiter(nil, "test")}
	r := srv.routeTable()
	for _, route := range r {
		handlers := srv.chain(route)
		want := 1
		if route.Auth {
			want++
			if route.MinRole != "" {
				want++
			}
			if route.Capability != "" {
				want++
			}
		}
		if route.RateLimit > 0 {
			want++
		}
		assert.Len(t, handlers, want, "%s %s", route.Method, route.Path)
	}
}

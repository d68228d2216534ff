package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCapability(t *testing.T) {
	tests := []struct {
		in   string
		want Capability
		ok   bool
	}{
		{"observation", CapObservation, true},
		{"can_access_gate_pass", CapGatePass, true},
		{"ask_ai", CapAskAI, true},
		{"can_access_", "", false},
		{"payroll", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseCapability(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUser_CapabilitySet(t *testing.T) {
	u := &User{Role: RoleUser, Capabilities: []UserCapability{{Capability: CapTraining}, {Capability: CapAskAI}}}
	assert.True(t, u.Can(CapTraining))
	assert.False(t, u.Can(CapGatePass))
	assert.Equal(t, []Capability{CapAskAI, CapTraining}, u.Public().Capabilities)

	root := &User{Role: RoleSuperAdmin}
	assert.Len(t, root.CapabilitySet(), len(AllCapabilities))

	var nobody *User
	assert.False(t, nobody.Can(CapTraining))
}

func TestUser_Public(t *testing.T) {
	company := &Company{ID: 1, Name: "Acme"}
	u := &User{ID: 3, Email: "a@b.co", Company: company, Photo: []byte{1, 2}, ForceReset: true}
	pub := u.Public()
	assert.True(t, pub.HasPhoto)
	assert.True(t, pub.ForceReset)
	assert.Equal(t, "Acme", pub.CompanyName)
	assert.Equal(t, "a@b.co", u.DisplayName())
}

func TestRoomSlugs(t *testing.T) {
	assert.Equal(t, PrivateRoomSlug(3, 9), PrivateRoomSlug(9, 3))
	assert.Equal(t, "private:3:9", PrivateRoomSlug(9, 3))
	assert.Equal(t, "company:4", CompanyRoomSlug(4))
}

func TestRiskRating(t *testing.T) {
	assert.Equal(t, 20, RiskRating(4, 5))
	assert.Equal(t, 1, RiskRating(RiskScaleMin, RiskScaleMin))
	assert.Equal(t, 25, RiskRating(RiskScaleMax, RiskScaleMax))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: lost_and_found.company_id, lost_and_found.ticket_no")))
	assert.False(t, IsUniqueViolation(errors.New("no such table")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving: %w", NewInternalError(cause))
	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.False(t, HasCode(cause, CodeInternal))

	nf := NewNotFoundError("Company", "")
	assert.Equal(t, "Company not found", nf.Error())
	assert.Equal(t, "AI features are not configured", NewAINotConfiguredError().Error())
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/internal", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusInternalServerError, NewInternalError(errors.New("secret dsn")))
	})
	app.Get("/forbidden", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusForbidden, NewForbiddenError(PermissionDeniedMessage))
	})

	t.Run("internal details are not echoed", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/internal", nil))
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, 500, resp.StatusCode)
		assert.NotContains(t, string(body), "secret dsn")
	})

	t.Run("code is included", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/forbidden", nil))
		require.NoError(t, err)
		var out ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, 403, resp.StatusCode)
		assert.Equal(t, CodeForbidden, out.Code)
		assert.Equal(t, PermissionDeniedMessage, out.Error)
	})
}

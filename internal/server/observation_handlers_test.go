package server

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"testing"

	"safeguard/internal/ai"
	"safeguard/internal/models"
	"safeguard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// aiStub answers every call with fixed values.
type aiStub struct {
	analysis ai.Analysis
	answer   string
	err      error
	asked    []string
}

func (a *aiStub) AnalyzeObservation(_ context.Context, _, _, _ string) (ai.Analysis, error) {
	return a.analysis, a.err
}

func (a *aiStub) Ask(_ context.Context, question, _ string) (string, error) {
	a.asked = append(a.asked, question)
	return a.answer, a.err
}

func observationBody(area string, likelihood, severity int) map[string]any {
	return map[string]any{
		"area_equipment": area,
		"description":    "Loose handrail on " + area,
		"likelihood":     likelihood,
		"severity":       severity,
	}
}

func TestCreateObservation(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapObservation))
	token := env.token(user)

	tests := []struct {
		name           string
		body           map[string]any
		expectedStatus int
	}{
		{"valid", observationBody("Stairwell B", 3, 4), http.StatusCreated},
		{"likelihood above scale", observationBody("Stairwell B", 6, 4), http.StatusBadRequest},
		{"severity below scale", observationBody("Stairwell B", 3, 0), http.StatusBadRequest},
		{"missing area", observationBody("  ", 3, 4), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodPost, "/observations", tt.body, token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	resp := env.do(http.MethodPost, "/observations", observationBody("Loading dock", 2, 5), token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decodeJSON[models.Observation](t, resp)
	assert.Equal(t, 10, o.RiskRating)
	assert.Equal(t, user.ID, o.UserID)
	assert.NotEmpty(t, o.Date)
	assert.False(t, o.HasPhoto)
}

func TestCreateObservation_WithPhoto(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapObservation))
	token := env.token(user)

	resp := env.upload(http.MethodPost, "/observations", "photo", "spill.png",
		testutil.TinyPNG(t, 40, 30, color.RGBA{G: 180, A: 255}),
		map[string]string{
			"area_equipment": "Forklift bay",
			"description":    "Oil spill near charger",
			"likelihood":     "4",
			"severity":       "3",
		}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	o := decodeJSON[models.Observation](t, resp)
	assert.True(t, o.HasPhoto)
	assert.Equal(t, 12, o.RiskRating)

	resp = env.do(http.MethodGet, "/observations/"+uintString(o.ID)+"/photo", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListObservations(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	user := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapObservation))
	token := env.token(user)

	for _, b := range []map[string]any{
		observationBody("Scaffold", 1, 2),
		observationBody("Crane", 4, 5),
		observationBody("Welding bay", 3, 3),
	} {
		resp := env.do(http.MethodPost, "/observations", b, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	risks := func(path string) []int {
		resp := env.do(http.MethodGet, path, nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out []int
		for _, o := range decodeJSON[[]models.Observation](t, resp) {
			out = append(out, o.RiskRating)
		}
		return out
	}

	assert.Equal(t, []int{20, 9, 2}, risks("/observations?sort=risk_high"))
	assert.Equal(t, []int{9, 20, 2}, risks("/observations"))
	assert.Equal(t, []int{2, 20, 9}, risks("/observations?sort=date_oldest"))
	assert.Equal(t, []int{20}, risks("/observations?search=crane"))

	t.Run("other companies see nothing", func(t *testing.T) {
		other := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapObservation))
		resp := env.do(http.MethodGet, "/observations", nil, env.token(other))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decodeJSON[[]models.Observation](t, resp))
	})
}

func TestObservationAccess(t *testing.T) {
	env := newTestEnv(t)
	company := testutil.MakeCompany(t, env.db)
	author := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapObservation))
	colleague := testutil.MakeUser(t, env.db, models.RoleUser, company, testutil.WithCapabilities(models.CapObservation))
	admin := testutil.MakeUser(t, env.db, models.RoleAdmin, company, testutil.WithCapabilities(models.CapObservation))
	outsider := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapObservation))

	create := func() uint {
		resp := env.do(http.MethodPost, "/observations", observationBody("Roof access", 2, 2), env.token(author))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return decodeJSON[models.Observation](t, resp).ID
	}
	id := create()
	path := "/observations/" + uintString(id)

	resp := env.do(http.MethodGet, path, nil, env.token(colleague))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(http.MethodGet, path, nil, env.token(outsider))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(http.MethodGet, path+"/photo", nil, env.token(colleague))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	tests := []struct {
		name           string
		caller         *models.User
		expectedStatus int
	}{
		{"other company", outsider, http.StatusForbidden},
		{"colleague", colleague, http.StatusForbidden},
		{"author", author, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(http.MethodDelete, path, nil, env.token(tt.caller))
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}

	t.Run("company admin may delete", func(t *testing.T) {
		resp := env.do(http.MethodDelete, "/observations/"+uintString(create()), nil, env.token(admin))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestObservationAnalysis(t *testing.T) {
	stub := &aiStub{analysis: ai.Analysis{
		CorrectedDescription: "Handrail on stairwell B is loose.",
		ImpactOnOperations:   "Fall risk for staff using the stairs.",
		Likelihood:           3,
		Severity:             4,
		CorrectiveAction:     "Re-anchor the handrail.",
		DeadlineSuggestion:   "Within 48 hours",
	}}
	env := newTestEnv(t, WithAIClient(stub))
	user := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapObservation))
	token := env.token(user)

	resp := env.do(http.MethodPost, "/observations/analyze",
		map[string]string{"description": "handrail loose", "area_equipment": "Stairwell B"}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, stub.analysis, decodeJSON[ai.Analysis](t, resp))

	resp = env.do(http.MethodPost, "/observations/analyze", map[string]string{"description": "  "}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	t.Run("analysis fills only empty fields", func(t *testing.T) {
		resp := env.do(http.MethodPost, "/observations", map[string]any{
			"area_equipment":    "Stairwell B",
			"description":       "handrail loose",
			"corrective_action": "Close the stairwell",
			"severity":          5,
			"analyze":           true,
		}, token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		o := decodeJSON[models.Observation](t, resp)
		assert.Equal(t, "handrail loose", o.Description)
		assert.Equal(t, "Close the stairwell", o.CorrectiveAction)
		assert.Equal(t, stub.analysis.ImpactOnOperations, o.Impact)
		assert.Equal(t, stub.analysis.DeadlineSuggestion, o.Deadline)
		assert.Equal(t, 3, o.Likelihood)
		assert.Equal(t, 5, o.Severity)
		assert.Equal(t, 15, o.RiskRating)
	})

	t.Run("failed analysis leaves the scale unset", func(t *testing.T) {
		stub.analysis = ai.Analysis{
			CorrectedDescription: ai.SentinelParsing,
			ImpactOnOperations:   ai.SentinelParsing,
			CorrectiveAction:     ai.SentinelParsing,
			DeadlineSuggestion:   ai.SentinelParsing,
		}
		resp := env.do(http.MethodPost, "/observations", map[string]any{
			"area_equipment": "Stairwell B",
			"description":    "handrail loose",
			"analyze":        true,
		}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestObservationAnalysis_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.MakeUser(t, env.db, models.RoleUser, testutil.MakeCompany(t, env.db), testutil.WithCapabilities(models.CapObservation))
	token := env.token(user)

	resp := env.do(http.MethodPost, "/observations/analyze", map[string]string{"description": "handrail loose"}, token)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body := observationBody("Stairwell B", 3, 4)
	body["analyze"] = true
	resp = env.do(http.MethodPost, "/observations", body, token)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Without analysis the observation is stored as usual.
	resp = env.do(http.MethodPost, "/observations", observationBody("Stairwell B", 3, 4), token)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAskAI(t *testing.T) {
	tests := []struct {
		name           string
		client         ai.Client
		question       string
		expectedStatus int
	}{
		{"answered", &aiStub{answer: "Guardrails are required above 6 feet."}, "When are guardrails required?", http.StatusOK},
		{"empty question", &aiStub{answer: "unused"}, "   ", http.StatusBadRequest},
		{"not configured", nil, "When are guardrails required?", http.StatusServiceUnavailable},
		{"provider failure", &aiStub{err: &ai.HTTPError{StatusCode: 500, Body: "boom"}}, "When are guardrails required?", http.StatusBadGateway},
		{"provider timeout", &aiStub{err: errors.New("context deadline exceeded")}, "When are guardrails required?", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []Option
			if tt.client != nil {
				opts = append(opts, WithAIClient(tt.client))
			}
			env := newTestEnv(t, opts...)
			user := testutil.MakeUser(t, env.db, models.RoleUser, nil, testutil.WithCapabilities(models.CapAskAI))

			resp := env.do(http.MethodPost, "/ai/ask",
				map[string]string{"question": tt.question, "location": "Ontario"}, env.token(user))
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "Guardrails are required above 6 feet.", decodeJSON[map[string]string](t, resp)["answer"])
			}
		})
	}
}

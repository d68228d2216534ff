package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidate(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewGemini(GeminiOptions{APIKey: "test-key", BaseURL: srv.URL, Timeout: 5 * time.Second}).(*gemini)
	c.wait = func(context.Context, time.Duration) error { return nil }
	return c
}

const goodAnalysis = `{"CorrectedDescription":"Oil spill near press 4","ImpactOnOperations":"Slip hazard","Likelihood":4,"Severity":3,"CorrectiveAction":"Clean and bund","DeadlineSuggestion":"Immediately"}`

func TestNewGemini_WithoutKeyIsDisabled(t *testing.T) {
	c := NewGemini(GeminiOptions{})
	_, err := c.AnalyzeObservation(context.Background(), "x", "y", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = c.Ask(context.Background(), "q", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAnalyzeObservation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  func(t *testing.T, a Analysis)
	}{
		{
			name:  "plain json",
			reply: goodAnalysis,
			want: func(t *testing.T, a Analysis) {
				assert.Equal(t, 4, a.Likelihood)
				assert.Equal(t, "Immediately", a.DeadlineSuggestion)
			},
		},
		{
			name:  "fenced json",
			reply: "```json\n" + goodAnalysis + "\n```",
			want: func(t *testing.T, a Analysis) {
				assert.False(t, a.Failed())
				assert.Equal(t, 3, a.Severity)
			},
		},
		{
			name:  "json inside prose",
			reply: "Here you go: " + goodAnalysis + " hope it helps",
			want: func(t *testing.T, a Analysis) {
				assert.Equal(t, "Slip hazard", a.ImpactOnOperations)
			},
		},
		{
			name:  "out of range likelihood",
			reply: `{"CorrectedDescription":"a","ImpactOnOperations":"b","Likelihood":9,"Severity":3,"CorrectiveAction":"c","DeadlineSuggestion":"d"}`,
			want: func(t *testing.T, a Analysis) {
				assert.Equal(t, SentinelParsing, a.CorrectedDescription)
				assert.Equal(t, SentinelParsing, a.DeadlineSuggestion)
			},
		},
		{
			name:  "no json",
			reply: "I cannot help with that",
			want: func(t *testing.T, a Analysis) {
				assert.True(t, a.Failed())
				assert.Equal(t, SentinelParsing, a.CorrectiveAction)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
				assert.Contains(t, r.URL.Path, DefaultModel+":generateContent")
				_, _ = fmt.Fprint(w, candidate(tt.reply))
			})
			a, err := c.AnalyzeObservation(context.Background(), "oil on floor", "press 4", "Manufacturing")
			require.NoError(t, err)
			tt.want(t, a)
		})
	}
}

func TestAnalyzeObservation_ProviderFailureIsSentinel(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	a, err := c.AnalyzeObservation(context.Background(), "x", "y", "")
	require.NoError(t, err)
	assert.Equal(t, SentinelGeneral, a.CorrectedDescription)
	assert.Equal(t, int32(maxRetries+1), atomic.LoadInt32(&calls))
}

func TestAsk(t *testing.T) {
	t.Run("retries rate limits then answers", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = fmt.Fprint(w, candidate("  Handrails are required at 42 inches.  "))
		})
		answer, err := c.Ask(context.Background(), "guardrail height?", "Ohio")
		require.NoError(t, err)
		assert.Equal(t, "Handrails are required at 42 inches.", answer)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("cancellation interrupts the backoff", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		c.wait = waitCtx

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := c.Ask(ctx, "q", "")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "bad key", http.StatusForbidden)
		})
		_, err := c.Ask(context.Background(), "q", "")
		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})
}

func TestExtractJSON(t *testing.T) {
	_, err := extractJSON("}{")
	assert.ErrorIs(t, err, errNoJSON)

	got, err := extractJSON("```\n{\"a\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got)
}

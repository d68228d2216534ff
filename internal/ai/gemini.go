package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"safeguard/internal/config"
	"safeguard/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash-latest"
	maxRetries     = 2
)

// GeminiOptions configures the Gemini REST client.
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type gemini struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	wait       func(context.Context, time.Duration) error
}

// New returns a Gemini client for cfg, or a client that always returns
// ErrNotConfigured when no key is set.
func New(cfg *config.Config) Client {
	return NewGemini(GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: time.Duration(cfg.AITimeoutSeconds) * time.Second,
	})
}

func NewGemini(opts GeminiOptions) Client {
	if strings.TrimSpace(opts.APIKey) == "" {
		return disabled{}
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &gemini{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      opts.Model,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		wait:       waitCtx,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *gemini) AnalyzeObservation(ctx context.Context, text, area, industry string) (Analysis, error) {
	if strings.TrimSpace(industry) == "" {
		industry = "General"
	}
	raw, err := g.generate(ctx, analysisPrompt(text, area, industry))
	if err != nil {
		if ctx.Err() != nil {
			return Analysis{}, ctx.Err()
		}
		observability.AIRequests.WithLabelValues("analyze", "error").Inc()
		observability.GlobalLogger.ErrorContext(ctx, "ai analysis request failed",
			slog.String("error", err.Error()),
		)
		return sentinel(SentinelGeneral), nil
	}

	a, err := parseAnalysis(raw)
	if err != nil {
		observability.AIRequests.WithLabelValues("analyze", "parse_error").Inc()
		observability.GlobalLogger.ErrorContext(ctx, "ai analysis unparseable",
			slog.String("error", err.Error()),
			slog.String("response", truncate(raw, 500)),
		)
		return sentinel(SentinelParsing), nil
	}
	observability.AIRequests.WithLabelValues("analyze", "ok").Inc()
	return a, nil
}

func (g *gemini) Ask(ctx context.Context, question, location string) (string, error) {
	answer, err := g.generate(ctx, askPrompt(question, location))
	if err != nil {
		observability.AIRequests.WithLabelValues("ask", "error").Inc()
		return "", fmt.Errorf("generating AI response: %w", err)
	}
	observability.AIRequests.WithLabelValues("ask", "ok").Inc()
	return answer, nil
}

// generate sends one prompt and returns the first candidate's text. 429 and
// 5xx answers are retried with exponential backoff.
func (g *gemini) generate(ctx context.Context, prompt string) (text string, err error) {
	ctx, span := observability.StartSpan(ctx, "ai.generate", attribute.String("ai.model", g.model))
	defer func() { observability.EndSpan(span, err) }()

	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)

	backoff := time.Second
	for attempt := 0; ; attempt++ {
		raw, err := g.doOnce(ctx, url, body)
		if err == nil {
			return firstCandidateText(raw)
		}
		if attempt == maxRetries || !retryable(err) || ctx.Err() != nil {
			return "", err
		}
		observability.GlobalLogger.WarnContext(ctx, "ai request retrying",
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
		if err := g.wait(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}
}

// waitCtx sleeps for d or until ctx is done.
func waitCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gemini) doOnce(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 1000)}
	}
	return raw, nil
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func firstCandidateText(raw []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decoding ai response: %w", err)
	}
	var sb strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("ai response has no candidates")
	}
	return strings.TrimSpace(sb.String()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func analysisPrompt(text, area, industry string) string {
	return fmt.Sprintf(`Analyze the following safety observation from the '%s' industry.
Area/Equipment: %q
Original Observation: %q

Return a SINGLE, VALID JSON object with no text or markdown before or after it.
The object must have exactly these keys:
1. "CorrectedDescription": a professionally rephrased and spell-checked version of the observation.
2. "ImpactOnOperations": the potential impact on operations, safety or compliance.
3. "Likelihood": an integer from 1 (very unlikely) to 5 (very likely).
4. "Severity": an integer from 1 (minor) to 5 (critical).
5. "CorrectiveAction": a clear, actionable recommendation.
6. "DeadlineSuggestion": a realistic deadline such as "Immediately", "24 Hours" or "1 Week".
`, industry, area, text)
}

func askPrompt(question, location string) string {
	locationContext := "No specific location has been provided."
	if strings.TrimSpace(location) != "" {
		locationContext = fmt.Sprintf("The user's specified location is '%s'.", location)
	}
	return fmt.Sprintf(`You are a regulatory and safety research assistant. Answer the question directly and completely.

Location context: %s

Rules:
- State the exact requirement, including numbers or thresholds.
- Explain the rationale behind the rule.
- Cite the source: code name, edition or year, and section.
- Do not tell the user to consult the code elsewhere.
- Format the answer in Markdown, using numbered lists for procedures, bullets for conditions and tables for values.

User's question: %q
`, locationContext, question)
}

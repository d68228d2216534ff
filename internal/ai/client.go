// Package ai talks to the generative-AI provider used for observation
// analysis and regulatory Q&A.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by every call when no API key is set.
var ErrNotConfigured = errors.New("ai: not configured")

// Sentinel values written into every text field of a failed analysis.
const (
	SentinelParsing = "AI Error (Parsing)"
	SentinelGeneral = "AI Error (General)"
)

// Analysis is the structured assessment of one safety observation.
type Analysis struct {
	CorrectedDescription string `json:"CorrectedDescription"`
	ImpactOnOperations   string `json:"ImpactOnOperations"`
	Likelihood           int    `json:"Likelihood"`
	Severity             int    `json:"Severity"`
	CorrectiveAction     string `json:"CorrectiveAction"`
	DeadlineSuggestion   string `json:"DeadlineSuggestion"`
}

// Failed reports whether a is a sentinel analysis.
func (a Analysis) Failed() bool {
	return a.CorrectedDescription == SentinelParsing || a.CorrectedDescription == SentinelGeneral
}

func sentinel(text string) Analysis {
	return Analysis{
		CorrectedDescription: text,
		ImpactOnOperations:   text,
		CorrectiveAction:     text,
		DeadlineSuggestion:   text,
	}
}

// Client is the provider-neutral AI surface.
type Client interface {
	// AnalyzeObservation never fails on a bad model answer: parse and
	// provider errors yield a sentinel Analysis. Only ErrNotConfigured and
	// context errors are returned.
	AnalyzeObservation(ctx context.Context, text, area, industry string) (Analysis, error)
	Ask(ctx context.Context, question, location string) (string, error)
}

// HTTPError is a non-2xx answer from the provider.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ai http %d: %s", e.StatusCode, e.Body)
}

type disabled struct{}

func (disabled) AnalyzeObservation(context.Context, string, string, string) (Analysis, error) {
	return Analysis{}, ErrNotConfigured
}

func (disabled) Ask(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

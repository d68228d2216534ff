package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var errNoJSON = errors.New("no JSON object found in AI response")

// extractJSON strips markdown fences and, failing that, cuts the outermost
// {...} out of raw.
func extractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return s, nil
	}
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last <= first {
		return "", errNoJSON
	}
	return s[first : last+1], nil
}

// parseAnalysis decodes and validates a model answer.
func parseAnalysis(raw string) (Analysis, error) {
	body, err := extractJSON(raw)
	if err != nil {
		return Analysis{}, err
	}
	var a Analysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return Analysis{}, err
	}
	if err := a.validate(); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

func (a Analysis) validate() error {
	if a.Likelihood < 1 || a.Likelihood > 5 {
		return fmt.Errorf("Likelihood %d out of range 1..5", a.Likelihood)
	}
	if a.Severity < 1 || a.Severity > 5 {
		return fmt.Errorf("Severity %d out of range 1..5", a.Severity)
	}
	for name, v := range map[string]string{
		"CorrectedDescription": a.CorrectedDescription,
		"ImpactOnOperations":   a.ImpactOnOperations,
		"CorrectiveAction":     a.CorrectiveAction,
		"DeadlineSuggestion":   a.DeadlineSuggestion,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is empty", name)
		}
	}
	return nil
}

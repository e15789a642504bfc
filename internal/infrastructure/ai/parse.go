package ai

import (
	"encoding/json"
	"fmt"
	"strconv"

	"LocaleAudit/internal/domain"
)

// ParseEvaluation extracts the first balanced JSON object from the model's
// reply. Absence of any JSON object is a fatal parse error. An out-of-range
// or non-numeric score is clamped to [0,100], never rejected, and a
// malformed issues field degrades to an empty list.
func ParseEvaluation(raw string) (domain.Evaluation, error) {
	object, ok := firstJSONObject(raw)
	if !ok {
		return domain.Evaluation{}, fmt.Errorf("ai response did not contain valid JSON")
	}

	var parsed struct {
		Score  any             `json:"score"`
		Issues json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal([]byte(object), &parsed); err != nil {
		return domain.Evaluation{}, fmt.Errorf("ai response did not contain valid JSON: %w", err)
	}

	issues := []domain.Issue{}
	if len(parsed.Issues) > 0 {
		if err := json.Unmarshal(parsed.Issues, &issues); err != nil {
			issues = []domain.Issue{}
		}
	}

	return domain.Evaluation{
		Score:  clampScore(coerceScore(parsed.Score)),
		Issues: issues,
	}, nil
}

// firstJSONObject scans for the first '{' and returns the substring up to
// its balancing '}', tracking JSON string literals and escapes.
func firstJSONObject(raw string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		c := raw[i]

		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}

		switch {
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return "", false
}

func coerceScore(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func clampScore(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

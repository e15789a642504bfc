// Package rubric builds per-category evaluation prompts and combines
// category scores into one weighted final score.
package rubric

import (
	"fmt"
	"math"
	"strings"

	"LocaleAudit/internal/domain"
)

var categoryDescriptions = map[domain.Category]string{
	domain.CategoryAccuracy:     "Does the target text convey exactly the same meaning as the source? Flag any mistranslations, omissions, or additions of meaning.",
	domain.CategoryFluency:      "Does the target text read naturally and grammatically in the target language? Flag unnatural phrasing, grammar errors, or awkward constructions.",
	domain.CategoryCompleteness: "Are all source strings present in the target? Flag any untranslated strings, placeholder text left in the source language, or missing content.",
	domain.CategoryTone:         "Does the target text match the tone and style of the source (formality, voice, brand language)? Flag mismatches in register or style.",
}

// PromptParams carries everything needed to render one category prompt.
type PromptParams struct {
	Category     domain.Category
	SourceLocale string
	TargetLocale string
	SourceText   string
	TargetText   string
	CustomRules  string
}

// BuildPrompt renders the evaluator prompt for one rubric category. The
// custom-rules block is omitted entirely when the rules are blank.
func BuildPrompt(params PromptParams) string {
	rulesSection := ""
	if rules := strings.TrimSpace(params.CustomRules); rules != "" {
		rulesSection = fmt.Sprintf("Custom rules to enforce:\n%s\n\n", rules)
	}

	return fmt.Sprintf(`You are a professional translation quality evaluator.

Source language: %s
Target language: %s

Evaluation focus — %s: %s

Source text:
%s

Target text:
%s

%sRespond ONLY with a JSON object matching this exact schema:
{
  "score": <integer 0-100>,
  "issues": [
    {
      "original_text": "<exact source phrase>",
      "translated_text": "<exact target phrase as found>",
      "reason": "<why this is an issue>",
      "suggestion": "<improved translation>",
      "severity": "low" | "medium" | "high"
    }
  ]
}

Return an empty issues array if no problems found. Do not include any text outside the JSON.`,
		params.SourceLocale,
		params.TargetLocale,
		strings.ToUpper(string(params.Category)),
		categoryDescriptions[params.Category],
		params.SourceText,
		params.TargetText,
		rulesSection,
	)
}

// FinalScore normalizes the configured weights and returns the weighted
// average of the category scores, rounded half-up to the nearest integer.
// A zero total weight yields 0. Missing category scores count as 0.
func FinalScore(scores map[domain.Category]int, cfg domain.RubricConfig) int {
	totalWeight := 0
	for _, weight := range cfg {
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}

	// Canonical order keeps traces reproducible; the sum is order-independent.
	weighted := 0
	for _, category := range domain.RubricCategories {
		weighted += scores[category] * cfg[category]
	}

	return int(math.Round(float64(weighted) / float64(totalWeight)))
}

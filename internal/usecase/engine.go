package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
	"LocaleAudit/internal/rubric"
)

// ProgressDone is the sentinel category emitted after all categories finish.
const ProgressDone domain.Category = "done"

// Progress reports that a category evaluation is about to start (or, with
// ProgressDone, that the whole audit finished). Done is the 0-based index.
type Progress struct {
	Category domain.Category
	Done     int
	Total    int
}

// AuditInput carries one audit request. Progress is optional; sends to it
// never block, so a slow consumer cannot stall the audit.
type AuditInput struct {
	SourceLocale string
	TargetLocale string
	SourceText   string
	TargetText   string
	CustomRules  string
	Rubric       domain.RubricConfig
	Progress     chan<- Progress
}

// AuditResult is the outcome of one complete audit.
type AuditResult struct {
	CategoryResults []domain.CategoryResult
	CategoryScores  map[domain.Category]int
	FinalScore      int
	AllIssues       []domain.TaggedIssue
}

// ScoringEngine runs the four rubric categories through the evaluator,
// strictly one call at a time, and aggregates them into a final score.
type ScoringEngine struct {
	evaluator ports.Evaluator
	logger    *slog.Logger
}

// NewScoringEngine wires the AI evaluator into the engine.
func NewScoringEngine(evaluator ports.Evaluator, logger *slog.Logger) *ScoringEngine {
	return &ScoringEngine{evaluator: evaluator, logger: logger}
}

// RunAudit evaluates every rubric category in canonical order. Any
// evaluator failure aborts the whole audit: a half-finished rubric is not
// a valid result, so no partial output is returned.
func (e *ScoringEngine) RunAudit(ctx context.Context, input AuditInput) (*AuditResult, error) {
	if e.evaluator == nil {
		return nil, fmt.Errorf("no evaluator configured")
	}

	total := len(domain.RubricCategories)
	results := make([]domain.CategoryResult, 0, total)

	for i, category := range domain.RubricCategories {
		emitProgress(input.Progress, Progress{Category: category, Done: i, Total: total})
		e.debug("evaluate category", "category", category, "index", i)

		prompt := rubric.BuildPrompt(rubric.PromptParams{
			Category:     category,
			SourceLocale: input.SourceLocale,
			TargetLocale: input.TargetLocale,
			SourceText:   input.SourceText,
			TargetText:   input.TargetText,
			CustomRules:  input.CustomRules,
		})

		evaluation, err := e.evaluator.Evaluate(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s: %w", category, err)
		}

		results = append(results, domain.CategoryResult{
			Category: category,
			Score:    evaluation.Score,
			Issues:   evaluation.Issues,
		})
	}

	emitProgress(input.Progress, Progress{Category: ProgressDone, Done: total, Total: total})

	scores := make(map[domain.Category]int, total)
	for _, result := range results {
		scores[result.Category] = result.Score
	}

	var allIssues []domain.TaggedIssue
	for _, result := range results {
		for _, issue := range result.Issues {
			allIssues = append(allIssues, domain.TaggedIssue{Issue: issue, Category: result.Category})
		}
	}

	return &AuditResult{
		CategoryResults: results,
		CategoryScores:  scores,
		FinalScore:      rubric.FinalScore(scores, input.Rubric),
		AllIssues:       allIssues,
	}, nil
}

func emitProgress(ch chan<- Progress, p Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- p:
	default:
	}
}

func (e *ScoringEngine) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

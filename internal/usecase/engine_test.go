package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LocaleAudit/internal/domain"
)

// fakeEvaluator scripts one evaluation per call, in call order.
type fakeEvaluator struct {
	evaluations []domain.Evaluation
	failAtCall  int // 1-based; 0 disables
	calls       int
	prompts     []string
}

func (f *fakeEvaluator) Evaluate(_ context.Context, prompt string) (domain.Evaluation, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.failAtCall > 0 && f.calls == f.failAtCall {
		return domain.Evaluation{}, errors.New("transport failure")
	}
	if f.calls <= len(f.evaluations) {
		return f.evaluations[f.calls-1], nil
	}
	return domain.Evaluation{Score: 50}, nil
}

func TestRunAuditEvaluatesCategoriesInOrder(t *testing.T) {
	t.Parallel()

	evaluator := &fakeEvaluator{evaluations: []domain.Evaluation{
		{Score: 80}, {Score: 60}, {Score: 100}, {Score: 40},
	}}
	engine := NewScoringEngine(evaluator, nil)

	result, err := engine.RunAudit(context.Background(), AuditInput{
		SourceLocale: "en",
		TargetLocale: "es",
		SourceText:   "hello",
		TargetText:   "hola",
		Rubric:       domain.DefaultRubric(),
	})
	require.NoError(t, err)

	require.Len(t, result.CategoryResults, 4)
	for i, category := range domain.RubricCategories {
		assert.Equal(t, category, result.CategoryResults[i].Category)
		assert.Contains(t, evaluator.prompts[i], strings.ToUpper(string(category)))
	}

	assert.Equal(t, map[domain.Category]int{
		domain.CategoryAccuracy:     80,
		domain.CategoryFluency:      60,
		domain.CategoryCompleteness: 100,
		domain.CategoryTone:         40,
	}, result.CategoryScores)
	assert.Equal(t, 78, result.FinalScore)
}

func TestRunAuditReportsMonotonicProgress(t *testing.T) {
	t.Parallel()

	progress := make(chan Progress, 8)
	engine := NewScoringEngine(&fakeEvaluator{}, nil)

	_, err := engine.RunAudit(context.Background(), AuditInput{
		Rubric:   domain.DefaultRubric(),
		Progress: progress,
	})
	require.NoError(t, err)
	close(progress)

	var events []Progress
	for event := range progress {
		events = append(events, event)
	}

	want := []Progress{
		{Category: domain.CategoryAccuracy, Done: 0, Total: 4},
		{Category: domain.CategoryFluency, Done: 1, Total: 4},
		{Category: domain.CategoryCompleteness, Done: 2, Total: 4},
		{Category: domain.CategoryTone, Done: 3, Total: 4},
		{Category: ProgressDone, Done: 4, Total: 4},
	}
	assert.Equal(t, want, events)
}

func TestRunAuditNilProgressChannel(t *testing.T) {
	t.Parallel()

	engine := NewScoringEngine(&fakeEvaluator{}, nil)
	_, err := engine.RunAudit(context.Background(), AuditInput{Rubric: domain.DefaultRubric()})
	assert.NoError(t, err)
}

func TestRunAuditFullProgressChannelDoesNotBlock(t *testing.T) {
	t.Parallel()

	progress := make(chan Progress) // unbuffered, never drained
	engine := NewScoringEngine(&fakeEvaluator{}, nil)

	_, err := engine.RunAudit(context.Background(), AuditInput{
		Rubric:   domain.DefaultRubric(),
		Progress: progress,
	})
	assert.NoError(t, err)
}

func TestRunAuditSecondCategoryFailureAbortsAudit(t *testing.T) {
	t.Parallel()

	evaluator := &fakeEvaluator{failAtCall: 2}
	engine := NewScoringEngine(evaluator, nil)

	result, err := engine.RunAudit(context.Background(), AuditInput{Rubric: domain.DefaultRubric()})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "fluency")
	// No further categories evaluated after the failure.
	assert.Equal(t, 2, evaluator.calls)
}

func TestRunAuditFlattensIssuesWithCategories(t *testing.T) {
	t.Parallel()

	issue := func(reason string) domain.Issue {
		return domain.Issue{Reason: reason, Severity: domain.SeverityLow}
	}
	evaluator := &fakeEvaluator{evaluations: []domain.Evaluation{
		{Score: 90, Issues: []domain.Issue{issue("a1"), issue("a2")}},
		{Score: 85},
		{Score: 70, Issues: []domain.Issue{issue("c1")}},
		{Score: 95},
	}}
	engine := NewScoringEngine(evaluator, nil)

	result, err := engine.RunAudit(context.Background(), AuditInput{Rubric: domain.DefaultRubric()})
	require.NoError(t, err)

	require.Len(t, result.AllIssues, 3)
	assert.Equal(t, domain.CategoryAccuracy, result.AllIssues[0].Category)
	assert.Equal(t, "a1", result.AllIssues[0].Reason)
	assert.Equal(t, domain.CategoryAccuracy, result.AllIssues[1].Category)
	assert.Equal(t, "a2", result.AllIssues[1].Reason)
	assert.Equal(t, domain.CategoryCompleteness, result.AllIssues[2].Category)
	assert.Equal(t, "c1", result.AllIssues[2].Reason)
}

func TestRunAuditCustomRulesForwarded(t *testing.T) {
	t.Parallel()

	evaluator := &fakeEvaluator{}
	engine := NewScoringEngine(evaluator, nil)

	_, err := engine.RunAudit(context.Background(), AuditInput{
		Rubric:      domain.DefaultRubric(),
		CustomRules: "Keep product names in English.",
	})
	require.NoError(t, err)

	for i, prompt := range evaluator.prompts {
		assert.Contains(t, prompt, "Keep product names in English.", fmt.Sprintf("prompt %d", i))
	}
}

func TestRunAuditWithoutEvaluator(t *testing.T) {
	t.Parallel()

	engine := NewScoringEngine(nil, nil)
	_, err := engine.RunAudit(context.Background(), AuditInput{Rubric: domain.DefaultRubric()})
	assert.Error(t, err)
}

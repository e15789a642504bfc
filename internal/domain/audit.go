package domain

import (
	"errors"
	"time"
)

// ErrEmptyPage marks a fetched page that produced no auditable text.
var ErrEmptyPage = errors.New("page produced no auditable text")

// Frequency enumerates supported recurrence frequencies.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Category is one of the fixed rubric dimensions scored independently.
type Category string

const (
	CategoryAccuracy     Category = "accuracy"
	CategoryFluency      Category = "fluency"
	CategoryCompleteness Category = "completeness"
	CategoryTone         Category = "tone"
)

// RubricCategories lists the categories in canonical evaluation order.
var RubricCategories = []Category{
	CategoryAccuracy,
	CategoryFluency,
	CategoryCompleteness,
	CategoryTone,
}

// RubricConfig maps each category to its non-negative integer weight.
// Weights need not sum to 100; they are normalized at aggregation time.
type RubricConfig map[Category]int

// DefaultRubric returns the weighting applied to new projects.
func DefaultRubric() RubricConfig {
	return RubricConfig{
		CategoryAccuracy:     40,
		CategoryFluency:      20,
		CategoryCompleteness: 30,
		CategoryTone:         10,
	}
}

// Severity grades a single translation issue.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Issue is a single problem flagged by the evaluator within one category.
type Issue struct {
	OriginalText   string   `json:"original_text"`
	TranslatedText string   `json:"translated_text"`
	Reason         string   `json:"reason"`
	Suggestion     string   `json:"suggestion"`
	Severity       Severity `json:"severity"`
}

// TaggedIssue is an Issue annotated with its originating category.
type TaggedIssue struct {
	Issue
	Category Category `json:"category"`
}

// Evaluation is the parsed response of one AI call for one category.
type Evaluation struct {
	Score  int
	Issues []Issue
}

// CategoryResult is the stored outcome of one category evaluation.
type CategoryResult struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
	Issues   []Issue  `json:"issues"`
}

// Project owns tracked URLs, the rubric weighting, and locale settings.
type Project struct {
	ID            string
	Name          string
	BaseURL       string
	SourceLocale  string
	TargetLocales []string
	Rubric        RubricConfig
	CustomRules   string
	CreatedAt     time.Time
}

// TargetLocale returns the primary audit locale.
func (p Project) TargetLocale() string {
	if len(p.TargetLocales) == 0 {
		return "unknown"
	}
	return p.TargetLocales[0]
}

// Schedule is the per-project recurrence rule. Exactly one per project.
type Schedule struct {
	ID         string
	ProjectID  string
	Enabled    bool
	Frequency  Frequency
	DayOfWeek  *int // 0=Sunday..6=Saturday, weekly only
	DayOfMonth *int // 1..31, monthly only
	TimeOfDay  string
	LastRunAt  *time.Time
	NextRunAt  time.Time
	CreatedAt  time.Time
}

// TrackedURL is a page registered under a project for recurring audits.
// Disabled entries are skipped by batch runs but retained.
type TrackedURL struct {
	ID             string
	ProjectID      string
	URL            string
	UserAgent      string
	AcceptLanguage string
	Enabled        bool
	CreatedAt      time.Time
}

// InputKind distinguishes what an audit was run against.
type InputKind string

const (
	InputURL  InputKind = "url"
	InputFile InputKind = "file"
)

// Audit is one completed evaluation. Immutable once created.
// ScheduleRunID groups audits produced by the same batch fan-out and is
// empty for on-demand audits. RubricWeights snapshots the project config
// at audit time so historical scores stay reproducible.
type Audit struct {
	ID            string
	ProjectID     string
	InputKind     InputKind
	InputRef      string
	Results       []CategoryResult
	FinalScore    int
	HTMLSnapshot  string
	RubricWeights RubricConfig
	ScheduleRunID string
	CreatedAt     time.Time
}

// RunFailure records one URL that failed during a scheduled batch run.
type RunFailure struct {
	ID            string
	ProjectID     string
	ScheduleRunID string
	URL           string
	Reason        string
	CreatedAt     time.Time
}

// FetchOptions carries per-URL overrides for page fetching.
type FetchOptions struct {
	UserAgent      string
	AcceptLanguage string
}

// FetchedPage is the raw result of fetching one tracked URL.
type FetchedPage struct {
	HTML     string
	FinalURL string
	Title    string
}

// ExtractedText groups page text by structural role.
type ExtractedText struct {
	Navigation []string
	Headings   []string
	Body       []string
	CTAButtons []string
	AllText    string
}

// TranslationPair is one key/value entry from a JSON or CSV upload.
type TranslationPair struct {
	Key   string
	Value string
}

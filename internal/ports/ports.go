package ports

import (
	"context"
	"time"

	"LocaleAudit/internal/domain"
)

// Evaluator runs one rubric-category prompt through an AI provider.
type Evaluator interface {
	Evaluate(ctx context.Context, prompt string) (domain.Evaluation, error)
}

// PageFetcher retrieves the rendered HTML of a tracked URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, opts domain.FetchOptions) (domain.FetchedPage, error)
}

// TextExtractor pulls auditable text out of raw HTML.
type TextExtractor interface {
	Extract(html string) (domain.ExtractedText, error)
}

// FileParser reads translation pairs from uploaded JSON or CSV payloads.
type FileParser interface {
	Parse(format string, raw []byte) ([]domain.TranslationPair, error)
}

// Notifier delivers fire-and-forget completion messages.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// TickDriver owns the repeating timer that drives scheduler polls.
type TickDriver interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Store persists projects, schedules, tracked URLs, and audit history.
type Store interface {
	SaveProject(ctx context.Context, project domain.Project) error
	ProjectByID(ctx context.Context, id string) (*domain.Project, error)

	SaveSchedule(ctx context.Context, schedule domain.Schedule) error
	DueSchedules(ctx context.Context, at time.Time) ([]domain.Schedule, error)
	EnabledScheduleForProject(ctx context.Context, projectID string) (*domain.Schedule, error)
	MarkScheduleRun(ctx context.Context, scheduleID string, lastRunAt, nextRunAt time.Time) error

	SaveTrackedURL(ctx context.Context, tracked domain.TrackedURL) error
	EnabledTrackedURLs(ctx context.Context, projectID string) ([]domain.TrackedURL, error)

	InsertAudit(ctx context.Context, audit domain.Audit) error
	AuditsByProject(ctx context.Context, projectID string) ([]domain.Audit, error)
	DeleteAudit(ctx context.Context, id string) error

	InsertRunFailure(ctx context.Context, failure domain.RunFailure) error
}

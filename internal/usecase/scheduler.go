package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
	"LocaleAudit/internal/recurrence"
)

// SchedulerDeps wires all driven adapters into the scheduler. Now supplies
// the clock used to interpret schedule slots; leave nil for time.Now, or
// set it to apply the configured timezone.
type SchedulerDeps struct {
	Store     ports.Store
	Engine    *ScoringEngine
	Fetcher   ports.PageFetcher
	Extractor ports.TextExtractor
	Notifier  ports.Notifier
	Driver    ports.TickDriver
	Logger    *slog.Logger
	Now       func() time.Time
}

// Scheduler polls for due schedules and fans each one out across its
// project's enabled tracked URLs. URLs run sequentially to bound resource
// usage; one URL's failure never aborts the rest of the batch.
type Scheduler struct {
	store     ports.Store
	engine    *ScoringEngine
	fetcher   ports.PageFetcher
	extractor ports.TextExtractor
	notifier  ports.Notifier
	driver    ports.TickDriver
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	started  bool
	inFlight map[string]struct{}
}

// NewScheduler constructs the scheduler service.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:     deps.Store,
		engine:    deps.Engine,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		notifier:  deps.Notifier,
		driver:    deps.Driver,
		logger:    deps.Logger,
		now:       now,
		inFlight:  map[string]struct{}{},
	}
}

// Start registers the tick job with the driver. Starting twice is a no-op,
// so duplicate timers cannot exist.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.driver == nil {
		return nil
	}

	if err := s.driver.Start(ctx, func(at time.Time) {
		s.tick(ctx, at)
	}); err != nil {
		return fmt.Errorf("start tick driver: %w", err)
	}

	s.started = true
	return nil
}

// Stop halts future ticks. A run already in progress is not interrupted.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	driver := s.driver
	s.mu.Unlock()

	// The driver waits for a running tick, and a running tick needs s.mu
	// to release its in-flight entry, so the lock must not be held here.
	if err := driver.Stop(ctx); err != nil {
		return fmt.Errorf("stop tick driver: %w", err)
	}
	return nil
}

// RunProjectNow executes the project's enabled schedule immediately,
// independent of whether it is due. Missing schedule is a silent no-op.
func (s *Scheduler) RunProjectNow(ctx context.Context, projectID string) error {
	schedule, err := s.store.EnabledScheduleForProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("load schedule for project %s: %w", projectID, err)
	}
	if schedule == nil {
		return nil
	}
	return s.runSchedule(ctx, *schedule)
}

// tick runs every due schedule sequentially. A failing schedule is logged
// and never prevents the next one, nor future ticks.
func (s *Scheduler) tick(ctx context.Context, at time.Time) {
	due, err := s.store.DueSchedules(ctx, at)
	if err != nil {
		s.warn("load due schedules", "error", err)
		return
	}

	for _, schedule := range due {
		if err := s.runSchedule(ctx, schedule); err != nil {
			s.warn("schedule run", "schedule_id", schedule.ID, "error", err)
		}
	}
}

func (s *Scheduler) runSchedule(ctx context.Context, schedule domain.Schedule) error {
	if !s.acquire(schedule.ID) {
		// A manual run and a due tick can race; at most one run per
		// schedule may be active.
		s.warn("schedule already running, skipping", "schedule_id", schedule.ID)
		return nil
	}
	defer s.release(schedule.ID)

	trackedURLs, err := s.store.EnabledTrackedURLs(ctx, schedule.ProjectID)
	if err != nil {
		return fmt.Errorf("load tracked urls: %w", err)
	}
	if len(trackedURLs) == 0 {
		// A schedule with no active URLs never advances.
		s.debug("no enabled tracked urls", "schedule_id", schedule.ID)
		return nil
	}

	project, err := s.store.ProjectByID(ctx, schedule.ProjectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		s.warn("project missing for schedule", "schedule_id", schedule.ID, "project_id", schedule.ProjectID)
		return nil
	}

	runID := uuid.NewString()
	completed, failed := 0, 0

	for _, tracked := range trackedURLs {
		if err := s.auditTrackedURL(ctx, *project, runID, tracked); err != nil {
			failed++
			s.warn("tracked url failed", "url", tracked.URL, "run_id", runID, "error", err)
			s.recordFailure(ctx, project.ID, runID, tracked.URL, err)
			continue
		}
		completed++
	}

	// The schedule advances to its next slot even if every URL failed.
	now := s.now().Truncate(time.Second)
	nextRunAt, err := recurrence.NextRun(recurrence.RuleOf(schedule), now)
	if err != nil {
		return fmt.Errorf("compute next run: %w", err)
	}
	if err := s.store.MarkScheduleRun(ctx, schedule.ID, now, nextRunAt); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}

	s.notify(ctx, completed, failed)
	return nil
}

func (s *Scheduler) auditTrackedURL(ctx context.Context, project domain.Project, runID string, tracked domain.TrackedURL) error {
	page, err := s.fetcher.Fetch(ctx, tracked.URL, domain.FetchOptions{
		UserAgent:      tracked.UserAgent,
		AcceptLanguage: tracked.AcceptLanguage,
	})
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	extracted, err := s.extractor.Extract(page.HTML)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if strings.TrimSpace(extracted.AllText) == "" {
		return domain.ErrEmptyPage
	}

	// Scheduled runs have no separate source rendering, so the page is
	// compared against itself and judged per rubric category.
	result, err := s.engine.RunAudit(ctx, AuditInput{
		SourceLocale: project.SourceLocale,
		TargetLocale: project.TargetLocale(),
		SourceText:   extracted.AllText,
		TargetText:   extracted.AllText,
		CustomRules:  project.CustomRules,
		Rubric:       project.Rubric,
	})
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	audit := domain.Audit{
		ID:            uuid.NewString(),
		ProjectID:     project.ID,
		InputKind:     domain.InputURL,
		InputRef:      tracked.URL,
		Results:       result.CategoryResults,
		FinalScore:    result.FinalScore,
		HTMLSnapshot:  page.HTML,
		RubricWeights: project.Rubric,
		ScheduleRunID: runID,
		CreatedAt:     s.now().Truncate(time.Second),
	}
	if err := s.store.InsertAudit(ctx, audit); err != nil {
		return fmt.Errorf("persist audit: %w", err)
	}
	return nil
}

func (s *Scheduler) recordFailure(ctx context.Context, projectID, runID, url string, cause error) {
	failure := domain.RunFailure{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		ScheduleRunID: runID,
		URL:           url,
		Reason:        cause.Error(),
		CreatedAt:     s.now().Truncate(time.Second),
	}
	if err := s.store.InsertRunFailure(ctx, failure); err != nil {
		s.warn("persist run failure", "url", url, "error", err)
	}
}

func (s *Scheduler) notify(ctx context.Context, completed, failed int) {
	if s.notifier == nil {
		return
	}

	title := "Scheduled audit complete"
	if failed > 0 {
		title = "Scheduled audit finished with errors"
	}

	plural := "s"
	if completed == 1 {
		plural = ""
	}
	body := fmt.Sprintf("%d URL%s audited", completed, plural)
	if failed > 0 {
		body += fmt.Sprintf(", %d failed", failed)
	}
	body += "."

	if err := s.notifier.Notify(ctx, title, body); err != nil {
		s.warn("send notification", "error", err)
	}
}

func (s *Scheduler) acquire(scheduleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inFlight[scheduleID]; running {
		return false
	}
	s.inFlight[scheduleID] = struct{}{}
	return true
}

func (s *Scheduler) release(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, scheduleID)
}

func (s *Scheduler) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Scheduler) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

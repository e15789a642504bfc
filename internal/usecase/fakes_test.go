package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

// memStore is an in-memory ports.Store for usecase tests.
type memStore struct {
	mu          sync.Mutex
	projects    map[string]domain.Project
	schedules   map[string]domain.Schedule
	trackedURLs []domain.TrackedURL
	audits      []domain.Audit
	failures    []domain.RunFailure

	failTrackedURLs bool
}

func newMemStore() *memStore {
	return &memStore{
		projects:  map[string]domain.Project{},
		schedules: map[string]domain.Schedule{},
	}
}

func (s *memStore) SaveProject(_ context.Context, project domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = project
	return nil
}

func (s *memStore) ProjectByID(_ context.Context, id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project, ok := s.projects[id]; ok {
		return &project, nil
	}
	return nil, nil
}

func (s *memStore) SaveSchedule(_ context.Context, schedule domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *memStore) DueSchedules(_ context.Context, at time.Time) ([]domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.Schedule
	for _, schedule := range s.schedules {
		if schedule.Enabled && !schedule.NextRunAt.After(at) {
			due = append(due, schedule)
		}
	}
	return due, nil
}

func (s *memStore) EnabledScheduleForProject(_ context.Context, projectID string) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, schedule := range s.schedules {
		if schedule.ProjectID == projectID && schedule.Enabled {
			found := schedule
			return &found, nil
		}
	}
	return nil, nil
}

func (s *memStore) MarkScheduleRun(_ context.Context, scheduleID string, lastRunAt, nextRunAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schedule, ok := s.schedules[scheduleID]
	if !ok {
		return fmt.Errorf("schedule %s not found", scheduleID)
	}
	schedule.LastRunAt = &lastRunAt
	schedule.NextRunAt = nextRunAt
	s.schedules[scheduleID] = schedule
	return nil
}

func (s *memStore) SaveTrackedURL(_ context.Context, tracked domain.TrackedURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackedURLs = append(s.trackedURLs, tracked)
	return nil
}

func (s *memStore) EnabledTrackedURLs(_ context.Context, projectID string) ([]domain.TrackedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTrackedURLs {
		return nil, fmt.Errorf("store unavailable")
	}
	var enabled []domain.TrackedURL
	for _, tracked := range s.trackedURLs {
		if tracked.ProjectID == projectID && tracked.Enabled {
			enabled = append(enabled, tracked)
		}
	}
	return enabled, nil
}

func (s *memStore) InsertAudit(_ context.Context, audit domain.Audit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, audit)
	return nil
}

func (s *memStore) AuditsByProject(_ context.Context, projectID string) ([]domain.Audit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var audits []domain.Audit
	for _, audit := range s.audits {
		if audit.ProjectID == projectID {
			audits = append(audits, audit)
		}
	}
	return audits, nil
}

func (s *memStore) DeleteAudit(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.audits[:0]
	for _, audit := range s.audits {
		if audit.ID != id {
			kept = append(kept, audit)
		}
	}
	s.audits = kept
	return nil
}

func (s *memStore) InsertRunFailure(_ context.Context, failure domain.RunFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure)
	return nil
}

func (s *memStore) scheduleByID(id string) domain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedules[id]
}

func (s *memStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audits)
}

var _ ports.Store = (*memStore)(nil)

// fakeFetcher serves canned HTML per URL; missing URLs fail. An optional
// gate blocks every fetch until released, for concurrency tests.
type fakeFetcher struct {
	pages map[string]string
	gate  chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ domain.FetchOptions) (domain.FetchedPage, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	html, ok := f.pages[url]
	if !ok {
		return domain.FetchedPage{}, fmt.Errorf("connection refused")
	}
	return domain.FetchedPage{HTML: html, FinalURL: url}, nil
}

var _ ports.PageFetcher = (*fakeFetcher)(nil)

// identityExtractor passes HTML through as the extracted text.
type identityExtractor struct{}

func (identityExtractor) Extract(html string) (domain.ExtractedText, error) {
	return domain.ExtractedText{AllText: html}, nil
}

var _ ports.TextExtractor = identityExtractor{}

type fakeNotifier struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func (n *fakeNotifier) Notify(_ context.Context, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.titles = append(n.titles, title)
	n.bodies = append(n.bodies, body)
	return nil
}

var _ ports.Notifier = (*fakeNotifier)(nil)

// fakeDriver records starts/stops and exposes the registered job.
type fakeDriver struct {
	mu         sync.Mutex
	startCalls int
	stopCalls  int
	job        func(time.Time)
}

func (d *fakeDriver) Start(_ context.Context, job func(time.Time)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startCalls++
	d.job = job
	return nil
}

func (d *fakeDriver) Stop(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopCalls++
	return nil
}

var _ ports.TickDriver = (*fakeDriver)(nil)

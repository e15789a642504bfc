// Package storage persists projects, schedules, tracked URLs, and audit
// history in an embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

var scheduleColumns = []string{
	"id", "project_id", "enabled", "frequency",
	"day_of_week", "day_of_month", "time_of_day",
	"last_run_at", "next_run_at", "created_at",
}

// SQLiteStore implements the Store port on an embedded SQLite database.
type SQLiteStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Store = (*SQLiteStore)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database at %q: %w", path, err)
	}
	// Single connection avoids "database is locked" errors.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	if err := store.applySchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) applySchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS projects (
		id             TEXT PRIMARY KEY,
		name           TEXT NOT NULL,
		base_url       TEXT NOT NULL DEFAULT '',
		source_locale  TEXT NOT NULL,
		target_locales TEXT NOT NULL DEFAULT '[]',
		rubric_config  TEXT NOT NULL DEFAULT '{}',
		custom_rules   TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id            TEXT PRIMARY KEY,
		project_id    TEXT NOT NULL UNIQUE REFERENCES projects(id) ON DELETE CASCADE,
		enabled       INTEGER NOT NULL DEFAULT 1,
		frequency     TEXT NOT NULL,
		day_of_week   INTEGER,
		day_of_month  INTEGER,
		time_of_day   TEXT NOT NULL,
		last_run_at   INTEGER,
		next_run_at   INTEGER NOT NULL,
		created_at    INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tracked_urls (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		url             TEXT NOT NULL,
		user_agent      TEXT NOT NULL DEFAULT '',
		accept_language TEXT NOT NULL DEFAULT '',
		enabled         INTEGER NOT NULL DEFAULT 1,
		created_at      INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audits (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		input_type      TEXT NOT NULL CHECK(input_type IN ('url','file')),
		input_ref       TEXT NOT NULL,
		ai_results      TEXT NOT NULL DEFAULT '[]',
		final_score     INTEGER NOT NULL DEFAULT 0,
		html_snapshot   TEXT NOT NULL DEFAULT '',
		rubric_weights  TEXT NOT NULL DEFAULT '{}',
		schedule_run_id TEXT NOT NULL DEFAULT '',
		created_at      INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_failures (
		id              TEXT PRIMARY KEY,
		project_id      TEXT NOT NULL,
		schedule_run_id TEXT NOT NULL,
		url             TEXT NOT NULL,
		reason          TEXT NOT NULL,
		created_at      INTEGER NOT NULL
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SaveProject upserts the project row.
func (s *SQLiteStore) SaveProject(ctx context.Context, project domain.Project) error {
	locales, err := json.Marshal(project.TargetLocales)
	if err != nil {
		return fmt.Errorf("marshal target locales: %w", err)
	}
	rubric, err := json.Marshal(project.Rubric)
	if err != nil {
		return fmt.Errorf("marshal rubric config: %w", err)
	}

	query := s.builder.
		Insert("projects").
		Columns("id", "name", "base_url", "source_locale", "target_locales", "rubric_config", "custom_rules", "created_at").
		Values(project.ID, project.Name, project.BaseURL, project.SourceLocale, string(locales), string(rubric), project.CustomRules, project.CreatedAt.Unix()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			base_url = excluded.base_url,
			source_locale = excluded.source_locale,
			target_locales = excluded.target_locales,
			rubric_config = excluded.rubric_config,
			custom_rules = excluded.custom_rules`)

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("upsert project: %w", err)
	}
	return nil
}

// ProjectByID loads one project, or nil when absent.
func (s *SQLiteStore) ProjectByID(ctx context.Context, id string) (*domain.Project, error) {
	query := s.builder.
		Select("id", "name", "base_url", "source_locale", "target_locales", "rubric_config", "custom_rules", "created_at").
		From("projects").
		Where(sq.Eq{"id": id})

	var (
		project   domain.Project
		locales   string
		rubric    string
		createdAt int64
	)
	err := query.RunWith(s.db).QueryRowContext(ctx).Scan(
		&project.ID, &project.Name, &project.BaseURL, &project.SourceLocale,
		&locales, &rubric, &project.CustomRules, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}

	if err := json.Unmarshal([]byte(locales), &project.TargetLocales); err != nil {
		return nil, fmt.Errorf("decode target locales: %w", err)
	}
	if err := json.Unmarshal([]byte(rubric), &project.Rubric); err != nil {
		return nil, fmt.Errorf("decode rubric config: %w", err)
	}
	project.CreatedAt = time.Unix(createdAt, 0)

	return &project, nil
}

// SaveSchedule upserts the schedule row; one schedule per project.
func (s *SQLiteStore) SaveSchedule(ctx context.Context, schedule domain.Schedule) error {
	query := s.builder.
		Insert("schedules").
		Columns(scheduleColumns...).
		Values(
			schedule.ID, schedule.ProjectID, boolToInt(schedule.Enabled), string(schedule.Frequency),
			nullableInt(schedule.DayOfWeek), nullableInt(schedule.DayOfMonth), schedule.TimeOfDay,
			nullableUnix(schedule.LastRunAt), schedule.NextRunAt.Unix(), schedule.CreatedAt.Unix(),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			enabled = excluded.enabled,
			frequency = excluded.frequency,
			day_of_week = excluded.day_of_week,
			day_of_month = excluded.day_of_month,
			time_of_day = excluded.time_of_day,
			last_run_at = excluded.last_run_at,
			next_run_at = excluded.next_run_at`)

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("upsert schedule: %w", err)
	}
	return nil
}

// DueSchedules returns enabled schedules whose next run is at or before at.
func (s *SQLiteStore) DueSchedules(ctx context.Context, at time.Time) ([]domain.Schedule, error) {
	query := s.builder.
		Select(scheduleColumns...).
		From("schedules").
		Where(sq.Eq{"enabled": 1}).
		Where(sq.LtOrEq{"next_run_at": at.Unix()}).
		OrderBy("next_run_at ASC")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query due schedules: %w", err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		schedule, scanErr := scanSchedule(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return schedules, nil
}

// EnabledScheduleForProject returns the project's enabled schedule, or nil.
func (s *SQLiteStore) EnabledScheduleForProject(ctx context.Context, projectID string) (*domain.Schedule, error) {
	query := s.builder.
		Select(scheduleColumns...).
		From("schedules").
		Where(sq.Eq{"project_id": projectID, "enabled": 1})

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	schedule, err := scanSchedule(rows)
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// MarkScheduleRun advances the schedule to its next slot.
func (s *SQLiteStore) MarkScheduleRun(ctx context.Context, scheduleID string, lastRunAt, nextRunAt time.Time) error {
	query := s.builder.
		Update("schedules").
		Set("last_run_at", lastRunAt.Unix()).
		Set("next_run_at", nextRunAt.Unix()).
		Where(sq.Eq{"id": scheduleID})

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("mark schedule run: %w", err)
	}
	return nil
}

// SaveTrackedURL upserts one tracked URL row.
func (s *SQLiteStore) SaveTrackedURL(ctx context.Context, tracked domain.TrackedURL) error {
	query := s.builder.
		Insert("tracked_urls").
		Columns("id", "project_id", "url", "user_agent", "accept_language", "enabled", "created_at").
		Values(tracked.ID, tracked.ProjectID, tracked.URL, tracked.UserAgent, tracked.AcceptLanguage, boolToInt(tracked.Enabled), tracked.CreatedAt.Unix()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			url = excluded.url,
			user_agent = excluded.user_agent,
			accept_language = excluded.accept_language,
			enabled = excluded.enabled`)

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("upsert tracked url: %w", err)
	}
	return nil
}

// EnabledTrackedURLs lists the project's active URLs in creation order.
func (s *SQLiteStore) EnabledTrackedURLs(ctx context.Context, projectID string) ([]domain.TrackedURL, error) {
	query := s.builder.
		Select("id", "project_id", "url", "user_agent", "accept_language", "enabled", "created_at").
		From("tracked_urls").
		Where(sq.Eq{"project_id": projectID, "enabled": 1}).
		OrderBy("created_at ASC, id ASC")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query tracked urls: %w", err)
	}
	defer rows.Close()

	var tracked []domain.TrackedURL
	for rows.Next() {
		var (
			item      domain.TrackedURL
			enabled   int
			createdAt int64
		)
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.URL, &item.UserAgent, &item.AcceptLanguage, &enabled, &createdAt); err != nil {
			return nil, fmt.Errorf("scan tracked url: %w", err)
		}
		item.Enabled = enabled != 0
		item.CreatedAt = time.Unix(createdAt, 0)
		tracked = append(tracked, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return tracked, nil
}

// InsertAudit stores one immutable audit row.
func (s *SQLiteStore) InsertAudit(ctx context.Context, audit domain.Audit) error {
	results, err := json.Marshal(audit.Results)
	if err != nil {
		return fmt.Errorf("marshal category results: %w", err)
	}
	weights, err := json.Marshal(audit.RubricWeights)
	if err != nil {
		return fmt.Errorf("marshal rubric weights: %w", err)
	}

	query := s.builder.
		Insert("audits").
		Columns("id", "project_id", "input_type", "input_ref", "ai_results", "final_score", "html_snapshot", "rubric_weights", "schedule_run_id", "created_at").
		Values(audit.ID, audit.ProjectID, string(audit.InputKind), audit.InputRef, string(results), audit.FinalScore, audit.HTMLSnapshot, string(weights), audit.ScheduleRunID, audit.CreatedAt.Unix())

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// AuditsByProject lists a project's audit history, newest first.
func (s *SQLiteStore) AuditsByProject(ctx context.Context, projectID string) ([]domain.Audit, error) {
	query := s.builder.
		Select("id", "project_id", "input_type", "input_ref", "ai_results", "final_score", "html_snapshot", "rubric_weights", "schedule_run_id", "created_at").
		From("audits").
		Where(sq.Eq{"project_id": projectID}).
		OrderBy("created_at DESC, id ASC")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query audits: %w", err)
	}
	defer rows.Close()

	var audits []domain.Audit
	for rows.Next() {
		var (
			audit     domain.Audit
			kind      string
			results   string
			weights   string
			createdAt int64
		)
		if err := rows.Scan(&audit.ID, &audit.ProjectID, &kind, &audit.InputRef, &results, &audit.FinalScore, &audit.HTMLSnapshot, &weights, &audit.ScheduleRunID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if err := json.Unmarshal([]byte(results), &audit.Results); err != nil {
			return nil, fmt.Errorf("decode category results: %w", err)
		}
		if err := json.Unmarshal([]byte(weights), &audit.RubricWeights); err != nil {
			return nil, fmt.Errorf("decode rubric weights: %w", err)
		}
		audit.InputKind = domain.InputKind(kind)
		audit.CreatedAt = time.Unix(createdAt, 0)
		audits = append(audits, audit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return audits, nil
}

// DeleteAudit removes one audit row.
func (s *SQLiteStore) DeleteAudit(ctx context.Context, id string) error {
	query := s.builder.Delete("audits").Where(sq.Eq{"id": id})
	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("delete audit: %w", err)
	}
	return nil
}

// InsertRunFailure records one failed URL of a scheduled batch run.
func (s *SQLiteStore) InsertRunFailure(ctx context.Context, failure domain.RunFailure) error {
	query := s.builder.
		Insert("run_failures").
		Columns("id", "project_id", "schedule_run_id", "url", "reason", "created_at").
		Values(failure.ID, failure.ProjectID, failure.ScheduleRunID, failure.URL, failure.Reason, failure.CreatedAt.Unix())

	if _, err := query.RunWith(s.db).ExecContext(ctx); err != nil {
		return fmt.Errorf("insert run failure: %w", err)
	}
	return nil
}

// RunFailures lists the failures recorded under one schedule run.
func (s *SQLiteStore) RunFailures(ctx context.Context, scheduleRunID string) ([]domain.RunFailure, error) {
	query := s.builder.
		Select("id", "project_id", "schedule_run_id", "url", "reason", "created_at").
		From("run_failures").
		Where(sq.Eq{"schedule_run_id": scheduleRunID}).
		OrderBy("created_at ASC, id ASC")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query run failures: %w", err)
	}
	defer rows.Close()

	var failures []domain.RunFailure
	for rows.Next() {
		var (
			failure   domain.RunFailure
			createdAt int64
		)
		if err := rows.Scan(&failure.ID, &failure.ProjectID, &failure.ScheduleRunID, &failure.URL, &failure.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run failure: %w", err)
		}
		failure.CreatedAt = time.Unix(createdAt, 0)
		failures = append(failures, failure)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return failures, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (domain.Schedule, error) {
	var (
		schedule   domain.Schedule
		enabled    int
		frequency  string
		dayOfWeek  sql.NullInt64
		dayOfMonth sql.NullInt64
		lastRunAt  sql.NullInt64
		nextRunAt  int64
		createdAt  int64
	)
	err := row.Scan(
		&schedule.ID, &schedule.ProjectID, &enabled, &frequency,
		&dayOfWeek, &dayOfMonth, &schedule.TimeOfDay,
		&lastRunAt, &nextRunAt, &createdAt,
	)
	if err != nil {
		return domain.Schedule{}, fmt.Errorf("scan schedule: %w", err)
	}

	schedule.Enabled = enabled != 0
	schedule.Frequency = domain.Frequency(frequency)
	if dayOfWeek.Valid {
		value := int(dayOfWeek.Int64)
		schedule.DayOfWeek = &value
	}
	if dayOfMonth.Valid {
		value := int(dayOfMonth.Int64)
		schedule.DayOfMonth = &value
	}
	if lastRunAt.Valid {
		value := time.Unix(lastRunAt.Int64, 0)
		schedule.LastRunAt = &value
	}
	schedule.NextRunAt = time.Unix(nextRunAt, 0)
	schedule.CreatedAt = time.Unix(createdAt, 0)

	return schedule, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableUnix(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.Unix()
}

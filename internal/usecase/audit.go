package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

// AuditRequest describes one on-demand audit. Kind selects between a live
// URL and an uploaded file; FileFormat is "json", "csv", or "html".
type AuditRequest struct {
	ProjectID  string
	Kind       domain.InputKind
	URL        string
	FilePath   string
	FileFormat string
	Progress   chan<- Progress
}

// AuditOutcome pairs the engine result with the persisted audit id.
type AuditOutcome struct {
	AuditID string
	Result  *AuditResult
}

// AuditService runs single audits on demand. Unlike scheduled batch runs,
// any fetch, extraction, or scoring failure here propagates to the caller.
type AuditService struct {
	store     ports.Store
	engine    *ScoringEngine
	fetcher   ports.PageFetcher
	extractor ports.TextExtractor
	parser    ports.FileParser
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuditService wires the on-demand audit flow.
func NewAuditService(store ports.Store, engine *ScoringEngine, fetcher ports.PageFetcher, extractor ports.TextExtractor, parser ports.FileParser, logger *slog.Logger) *AuditService {
	return &AuditService{
		store:     store,
		engine:    engine,
		fetcher:   fetcher,
		extractor: extractor,
		parser:    parser,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one audit and persists the result with a rubric snapshot.
// An unknown project id bootstraps a default project first.
func (a *AuditService) Run(ctx context.Context, req AuditRequest) (*AuditOutcome, error) {
	project, err := a.ensureProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	var (
		text     string
		inputRef string
		snapshot string
	)

	switch req.Kind {
	case domain.InputURL:
		page, fetchErr := a.fetcher.Fetch(ctx, req.URL, domain.FetchOptions{})
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", req.URL, fetchErr)
		}
		extracted, extractErr := a.extractor.Extract(page.HTML)
		if extractErr != nil {
			return nil, fmt.Errorf("extract %s: %w", req.URL, extractErr)
		}
		text = extracted.AllText
		inputRef = req.URL
		snapshot = page.HTML

	case domain.InputFile:
		raw, readErr := os.ReadFile(req.FilePath)
		if readErr != nil {
			return nil, fmt.Errorf("read file: %w", readErr)
		}
		text, snapshot, err = a.fileText(req.FileFormat, raw)
		if err != nil {
			return nil, err
		}
		inputRef = req.FilePath

	default:
		return nil, fmt.Errorf("unknown input kind %q", req.Kind)
	}

	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyPage
	}

	result, err := a.engine.RunAudit(ctx, AuditInput{
		SourceLocale: project.SourceLocale,
		TargetLocale: project.TargetLocale(),
		SourceText:   text,
		TargetText:   text,
		CustomRules:  project.CustomRules,
		Rubric:       project.Rubric,
		Progress:     req.Progress,
	})
	if err != nil {
		return nil, err
	}

	audit := domain.Audit{
		ID:            uuid.NewString(),
		ProjectID:     project.ID,
		InputKind:     req.Kind,
		InputRef:      inputRef,
		Results:       result.CategoryResults,
		FinalScore:    result.FinalScore,
		HTMLSnapshot:  snapshot,
		RubricWeights: project.Rubric,
		CreatedAt:     a.now().Truncate(time.Second),
	}
	if err := a.store.InsertAudit(ctx, audit); err != nil {
		return nil, fmt.Errorf("persist audit: %w", err)
	}

	return &AuditOutcome{AuditID: audit.ID, Result: result}, nil
}

// History lists a project's audits, newest first.
func (a *AuditService) History(ctx context.Context, projectID string) ([]domain.Audit, error) {
	return a.store.AuditsByProject(ctx, projectID)
}

// Delete removes one audit row. Audits are immutable, never updated.
func (a *AuditService) Delete(ctx context.Context, auditID string) error {
	return a.store.DeleteAudit(ctx, auditID)
}

func (a *AuditService) fileText(format string, raw []byte) (text, snapshot string, err error) {
	switch format {
	case "json", "csv":
		pairs, parseErr := a.parser.Parse(format, raw)
		if parseErr != nil {
			return "", "", fmt.Errorf("parse %s: %w", format, parseErr)
		}
		lines := make([]string, 0, len(pairs))
		for _, pair := range pairs {
			lines = append(lines, fmt.Sprintf("%s: %s", pair.Key, pair.Value))
		}
		return strings.Join(lines, "\n"), "", nil

	default:
		// Anything else is treated as raw HTML.
		extracted, extractErr := a.extractor.Extract(string(raw))
		if extractErr != nil {
			return "", "", fmt.Errorf("extract html file: %w", extractErr)
		}
		return extracted.AllText, string(raw), nil
	}
}

func (a *AuditService) ensureProject(ctx context.Context, projectID string) (*domain.Project, error) {
	if projectID == "" {
		projectID = "default"
	}

	project, err := a.store.ProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project != nil {
		return project, nil
	}
	bootstrap := domain.Project{
		ID:            projectID,
		Name:          "Default Project",
		SourceLocale:  "en",
		TargetLocales: []string{"es"},
		Rubric:        domain.DefaultRubric(),
		CreatedAt:     a.now().Truncate(time.Second),
	}
	if err := a.store.SaveProject(ctx, bootstrap); err != nil {
		return nil, fmt.Errorf("bootstrap default project: %w", err)
	}
	a.debug("bootstrapped default project", "project_id", projectID)
	return &bootstrap, nil
}

func (a *AuditService) debug(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

// fakeParser returns canned pairs regardless of input.
type fakeParser struct {
	pairs   []domain.TranslationPair
	err     error
	formats []string
}

func (p *fakeParser) Parse(format string, _ []byte) ([]domain.TranslationPair, error) {
	p.formats = append(p.formats, format)
	if p.err != nil {
		return nil, p.err
	}
	return p.pairs, nil
}

var _ ports.FileParser = (*fakeParser)(nil)

func newTestAuditService(store *memStore, fetcher *fakeFetcher, parser ports.FileParser) *AuditService {
	return NewAuditService(
		store,
		NewScoringEngine(&fakeEvaluator{}, nil),
		fetcher,
		identityExtractor{},
		parser,
		nil,
	)
}

func TestRunURLAudit(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example": "<p>landing copy</p>",
	}}
	service := newTestAuditService(store, fetcher, &fakeParser{})

	outcome, err := service.Run(context.Background(), AuditRequest{
		ProjectID: project.ID,
		Kind:      domain.InputURL,
		URL:       "https://a.example",
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.NotEmpty(t, outcome.AuditID)

	require.Equal(t, 1, store.auditCount())
	audit := store.audits[0]
	assert.Equal(t, domain.InputURL, audit.InputKind)
	assert.Equal(t, "https://a.example", audit.InputRef)
	assert.Equal(t, "<p>landing copy</p>", audit.HTMLSnapshot)
	assert.Equal(t, project.Rubric, audit.RubricWeights)
	assert.Empty(t, audit.ScheduleRunID, "on-demand audits belong to no batch")
	assert.Len(t, audit.Results, len(domain.RubricCategories))
}

func TestRunURLAuditFetchFailurePropagates(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	service := newTestAuditService(store, &fakeFetcher{}, &fakeParser{})

	_, err := service.Run(context.Background(), AuditRequest{
		ProjectID: project.ID,
		Kind:      domain.InputURL,
		URL:       "https://down.example",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https://down.example")
	assert.Zero(t, store.auditCount())
}

func TestRunURLAuditEmptyPage(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://blank.example": "  \n\t ",
	}}
	service := newTestAuditService(store, fetcher, &fakeParser{})

	_, err := service.Run(context.Background(), AuditRequest{
		ProjectID: project.ID,
		Kind:      domain.InputURL,
		URL:       "https://blank.example",
	})
	assert.ErrorIs(t, err, domain.ErrEmptyPage)
}

func TestRunFileAuditJSON(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	path := filepath.Join(t.TempDir(), "strings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nav.home":"Startseite"}`), 0o600))

	parser := &fakeParser{pairs: []domain.TranslationPair{
		{Key: "nav.home", Value: "Startseite"},
		{Key: "nav.about", Value: "Über uns"},
	}}
	service := newTestAuditService(store, &fakeFetcher{}, parser)

	outcome, err := service.Run(context.Background(), AuditRequest{
		ProjectID:  project.ID,
		Kind:       domain.InputFile,
		FilePath:   path,
		FileFormat: "json",
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)

	assert.Equal(t, []string{"json"}, parser.formats)
	audit := store.audits[0]
	assert.Equal(t, domain.InputFile, audit.InputKind)
	assert.Equal(t, path, audit.InputRef)
	assert.Empty(t, audit.HTMLSnapshot, "pair uploads keep no page snapshot")
}

func TestRunFileAuditHTMLFallback(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<p>exported page</p>"), 0o600))

	service := newTestAuditService(store, &fakeFetcher{}, &fakeParser{})

	_, err := service.Run(context.Background(), AuditRequest{
		ProjectID:  project.ID,
		Kind:       domain.InputFile,
		FilePath:   path,
		FileFormat: "html",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>exported page</p>", store.audits[0].HTMLSnapshot)
}

func TestRunFileAuditMissingFile(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	service := newTestAuditService(store, &fakeFetcher{}, &fakeParser{})

	_, err := service.Run(context.Background(), AuditRequest{
		ProjectID:  project.ID,
		Kind:       domain.InputFile,
		FilePath:   filepath.Join(t.TempDir(), "missing.json"),
		FileFormat: "json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")
}

func TestRunBootstrapsDefaultProject(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example": "<p>landing copy</p>",
	}}
	service := newTestAuditService(store, fetcher, &fakeParser{})

	_, err := service.Run(context.Background(), AuditRequest{
		Kind: domain.InputURL,
		URL:  "https://a.example",
	})
	require.NoError(t, err)

	project, err := store.ProjectByID(context.Background(), "default")
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.Equal(t, "Default Project", project.Name)
	assert.Equal(t, "en", project.SourceLocale)
	assert.Equal(t, []string{"es"}, project.TargetLocales)
	assert.Equal(t, domain.DefaultRubric(), project.Rubric)
	assert.Equal(t, "default", store.audits[0].ProjectID)

	// A second run reuses the bootstrapped project instead of overwriting it.
	_, err = service.Run(context.Background(), AuditRequest{
		Kind: domain.InputURL,
		URL:  "https://a.example",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, store.auditCount())
}

func TestRunUnknownInputKind(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	seedProject(t, store)
	service := newTestAuditService(store, &fakeFetcher{}, &fakeParser{})

	_, err := service.Run(context.Background(), AuditRequest{
		ProjectID: "proj-1",
		Kind:      domain.InputKind("clipboard"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipboard")
}

func TestRunForwardsProgress(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example": "<p>landing copy</p>",
	}}
	service := newTestAuditService(store, fetcher, &fakeParser{})

	progress := make(chan Progress, 8)
	_, err := service.Run(context.Background(), AuditRequest{
		ProjectID: project.ID,
		Kind:      domain.InputURL,
		URL:       "https://a.example",
		Progress:  progress,
	})
	require.NoError(t, err)
	close(progress)

	var events []Progress
	for event := range progress {
		events = append(events, event)
	}
	require.Len(t, events, len(domain.RubricCategories)+1)
	assert.Equal(t, ProgressDone, events[len(events)-1].Category)
}

func TestHistoryAndDelete(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	project := seedProject(t, store)
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://a.example": "<p>landing copy</p>",
	}}
	service := newTestAuditService(store, fetcher, &fakeParser{})

	first, err := service.Run(context.Background(), AuditRequest{
		ProjectID: project.ID, Kind: domain.InputURL, URL: "https://a.example",
	})
	require.NoError(t, err)
	second, err := service.Run(context.Background(), AuditRequest{
		ProjectID: project.ID, Kind: domain.InputURL, URL: "https://a.example",
	})
	require.NoError(t, err)

	history, err := service.History(context.Background(), project.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	require.NoError(t, service.Delete(context.Background(), first.AuditID))
	history, err = service.History(context.Background(), project.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, second.AuditID, history[0].ID)
}

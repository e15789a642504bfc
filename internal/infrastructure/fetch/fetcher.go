// Package fetch retrieves tracked pages over plain HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

const defaultUserAgent = "LocaleAudit/1.0"

// HTTPFetcher implements the PageFetcher port with a shared HTTP client.
type HTTPFetcher struct {
	client *http.Client
}

var _ ports.PageFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; a 30-second timeout by default.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads one page, honoring per-URL user agent and
// accept-language overrides. Any HTTP status >= 400 is an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string, opts domain.FetchOptions) (domain.FetchedPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.FetchedPage{}, fmt.Errorf("build request: %w", err)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", opts.AcceptLanguage)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.FetchedPage{}, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.FetchedPage{}, fmt.Errorf("fetch page: HTTP %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.FetchedPage{}, fmt.Errorf("read body: %w", err)
	}

	page := domain.FetchedPage{
		HTML:     string(raw),
		FinalURL: pageURL,
	}
	if resp.Request != nil && resp.Request.URL != nil {
		page.FinalURL = resp.Request.URL.String()
	}

	if doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(page.HTML)); docErr == nil {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	return page, nil
}

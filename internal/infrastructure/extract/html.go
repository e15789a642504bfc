// Package extract turns raw page HTML and uploaded translation files into
// auditable text.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"LocaleAudit/internal/domain"
	"LocaleAudit/internal/ports"
)

const minBodyTextLen = 3

// HTMLExtractor implements the TextExtractor port with goquery selectors.
type HTMLExtractor struct{}

var _ ports.TextExtractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor returns a stateless extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract groups visible page text by structural role and joins the
// deduplicated union into AllText, preserving first-seen order.
func (e *HTMLExtractor) Extract(html string) (domain.ExtractedText, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return domain.ExtractedText{}, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, svg, img").Remove()

	var result domain.ExtractedText

	doc.Find("nav a, header a").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			result.Navigation = append(result.Navigation, text)
		}
	})

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			result.Headings = append(result.Headings, text)
		}
	})

	doc.Find(`button, [role="button"], input[type="submit"], a.btn, a.button`).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			text = strings.TrimSpace(sel.AttrOr("value", ""))
		}
		if text != "" {
			result.CTAButtons = append(result.CTAButtons, text)
		}
	})

	// Leaf elements only, so container text is not duplicated.
	doc.Find("p, li, td, th, label, span, div").Each(func(_ int, sel *goquery.Selection) {
		if sel.Children().Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); len(text) >= minBodyTextLen {
			result.Body = append(result.Body, text)
		}
	})

	seen := map[string]struct{}{}
	var unique []string
	for _, group := range [][]string{result.Navigation, result.Headings, result.Body, result.CTAButtons} {
		for _, text := range group {
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			unique = append(unique, text)
		}
	}
	result.AllText = strings.Join(unique, "\n")

	return result, nil
}

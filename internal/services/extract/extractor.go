package extract

import (
	"fmt"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
)

// Extraction is the cleaned-up outcome of running the extractor on a page.
type Extraction struct {
	Title       string
	Text        string // whitespace-normalized plain text of the article body
	Markdown    string
	Method      string // selector that yielded the body, e.g. "article"
	PublishedAt *time.Time
}

// bodySelectors are tried in order; the candidate with the most text wins.
// "body" is the fallback so pages without semantic markup still extract.
var bodySelectors = []string{"article", "main", "[role=main]", "#content", ".article-body", "body"}

// strippedSelectors is the chrome removed before the body search.
const strippedSelectors = "script, style, nav, header, footer, aside, form, iframe, noscript, figure, button, svg, .advertisement, .related-articles, .comments"

// publishedAtLayouts covers the datetime formats seen in article metadata.
var publishedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Extractor pulls article text, title and published date out of raw HTML.
type Extractor struct {
	logger arbor.ILogger
}

// NewExtractor creates an Extractor.
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract parses the page and returns the article content. Producing no
// usable text is an error, which callers treat as a failed unit.
func (e *Extractor) Extract(pageURL, html string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	result := &Extraction{
		Title:       extractTitle(doc),
		PublishedAt: extractPublishedAt(doc),
	}

	doc.Find(strippedSelectors).Remove()

	body, method := pickBody(doc)
	if body == nil {
		return nil, fmt.Errorf("page has no content element")
	}
	result.Method = method

	result.Text = NormalizeText(body.Text())
	if result.Text == "" {
		return nil, fmt.Errorf("page yielded no text")
	}

	bodyHTML, err := body.Html()
	if err != nil {
		return nil, fmt.Errorf("failed to render content element: %w", err)
	}
	converter := md.NewConverter(pageURL, true, nil)
	markdown, err := converter.ConvertString(bodyHTML)
	if err != nil {
		// Markdown is a convenience rendering; the plain text already
		// passed, so log and carry on without it.
		e.logger.Warn().Err(err).Str("url", pageURL).Msg("Markdown conversion failed")
		markdown = result.Text
	}
	result.Markdown = strings.TrimSpace(markdown)

	return result, nil
}

// pickBody returns the selector candidate containing the most text.
func pickBody(doc *goquery.Document) (*goquery.Selection, string) {
	var best *goquery.Selection
	bestMethod := ""
	bestLen := 0
	for _, selector := range bodySelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		textLen := len(NormalizeText(sel.Text()))
		if textLen > bestLen {
			best = sel
			bestMethod = selector
			bestLen = textLen
		}
	}
	return best, bestMethod
}

// extractTitle prefers structured metadata over the document title, which
// usually carries site-name suffixes.
func extractTitle(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[name="twitter:title"]`).Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v := strings.TrimSpace(doc.Find("h1").First().Text()); v != "" {
		return v
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// extractPublishedAt reads the page's own publication metadata. Returns nil
// when the page provides none; the caller falls back to the upstream
// discovery date.
func extractPublishedAt(doc *goquery.Document) *time.Time {
	var raw string
	if v, ok := doc.Find(`meta[property="article:published_time"]`).Attr("content"); ok {
		raw = v
	} else if v, ok := doc.Find(`meta[itemprop="datePublished"]`).Attr("content"); ok {
		raw = v
	} else if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		raw = v
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range publishedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// NormalizeText collapses all whitespace runs to single spaces and trims.
// Fingerprints are computed over this form, so two renderings of the same
// article hash identically regardless of layout whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package extract

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"newshub/internal/model"
)

// Default selectors used when neither the source nor its site profile
// provides one.
const (
	defaultArticleSelector     = "article"
	defaultTitleSelector       = "h1, h2, h3"
	defaultLinkSelector        = "a[href]"
	defaultDateSelector        = "time"
	defaultDescriptionSelector = "p"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02.01.2006",
}

// HTML extracts candidate items from a scraped page using CSS selector
// rules.
type HTML struct {
	baseURL string
	rules   model.ScrapingConfig
}

// NewHTML creates an HTML extractor for a page at baseURL. Empty rule
// fields fall back to the package defaults.
func NewHTML(baseURL string, rules model.ScrapingConfig) *HTML {
	if rules.ArticleSelector == "" {
		rules.ArticleSelector = defaultArticleSelector
	}
	if rules.TitleSelector == "" {
		rules.TitleSelector = defaultTitleSelector
	}
	if rules.LinkSelector == "" {
		rules.LinkSelector = defaultLinkSelector
	}
	if rules.DateSelector == "" {
		rules.DateSelector = defaultDateSelector
	}
	if rules.DescriptionSelector == "" {
		rules.DescriptionSelector = defaultDescriptionSelector
	}
	return &HTML{baseURL: baseURL, rules: rules}
}

// Extract parses the body as a DOM tree and collects one candidate per
// matched article container. Containers with no title are skipped.
func (h *HTML) Extract(body string) ([]model.CandidateItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, _ := url.Parse(h.baseURL)

	var items []model.CandidateItem
	doc.Find(h.rules.ArticleSelector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Find(h.rules.TitleSelector).First().Text())
		if title == "" {
			return
		}

		ci := model.CandidateItem{
			Title: title,
			Link:  h.extractLink(sel, base),
		}

		if raw := h.extractDate(sel); raw != "" {
			if t, ok := parseDate(raw); ok {
				ci.PublishedDate = &t
			}
		}

		desc := strings.TrimSpace(sel.Find(h.rules.DescriptionSelector).First().Text())
		ci.DescriptionSnippet = snippet(desc)

		items = append(items, ci)
	})
	return items, nil
}

func (h *HTML) extractLink(sel *goquery.Selection, base *url.URL) string {
	href, ok := sel.Find(h.rules.LinkSelector).First().Attr("href")
	if !ok {
		// The container itself may be the anchor.
		href, ok = sel.Attr("href")
		if !ok {
			return ""
		}
	}
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (h *HTML) extractDate(sel *goquery.Selection) string {
	node := sel.Find(h.rules.DateSelector).First()
	if v, ok := node.Attr("datetime"); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(node.Text())
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

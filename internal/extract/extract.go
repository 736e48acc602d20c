// Package extract turns raw fetched content into candidate article items.
package extract

import (
	"newshub/internal/model"
)

const snippetLimit = 300

// Extractor turns one source's raw content into candidate items.
// Implementations return an empty list for an empty feed or page and an
// error only when the content is structurally unparseable as its
// declared type.
type Extractor interface {
	Extract(body string) ([]model.CandidateItem, error)
}

// ForSource selects the extractor implementation matching the source's
// declared type. rules carries the already-resolved selector set and is
// only consulted for HTML sources.
func ForSource(src model.Source, rules model.ScrapingConfig) Extractor {
	if src.Type == model.TypeHTML {
		return NewHTML(src.URL, rules)
	}
	return NewRSS()
}

func snippet(s string) string {
	runes := []rune(s)
	if len(runes) <= snippetLimit {
		return s
	}
	return string(runes[:snippetLimit]) + "..."
}

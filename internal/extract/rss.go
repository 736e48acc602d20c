package extract

import (
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"newshub/internal/model"
)

// RSS extracts candidate items from an RSS or Atom feed body.
type RSS struct {
	parser *gofeed.Parser
}

// NewRSS creates an RSS extractor.
func NewRSS() *RSS {
	return &RSS{parser: gofeed.NewParser()}
}

// Extract parses the body as a feed and returns its items in feed order.
func (r *RSS) Extract(body string) ([]model.CandidateItem, error) {
	feed, err := r.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.CandidateItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		ci := model.CandidateItem{
			Title: strings.TrimSpace(item.Title),
			Link:  strings.TrimSpace(item.Link),
			GUID:  item.GUID,
		}
		// gofeed parses the ISO published field first and falls back to
		// the looser updated field.
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			ci.PublishedDate = &t
		} else if item.UpdatedParsed != nil {
			t := item.UpdatedParsed.UTC()
			ci.PublishedDate = &t
		}
		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		ci.DescriptionSnippet = snippet(strings.TrimSpace(desc))
		items = append(items, ci)
	}
	return items, nil
}

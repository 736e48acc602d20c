package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
)

const mergedFeedSize = 50

// mergedFeed republishes the newest stored articles as one RSS feed, so
// the aggregate can itself be subscribed to.
func (s *Server) mergedFeed(c *gin.Context) {
	articles, err := s.store.ListRecentArticles(c.Request.Context(), mergedFeedSize)
	if err != nil {
		s.log.Error("list recent articles", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	feed := &feeds.Feed{
		Title:       "newshub",
		Link:        &feeds.Link{Href: baseURL(c) + "/feed.xml"},
		Description: "Aggregated articles from all configured sources",
		Created:     time.Now(),
	}

	for _, a := range articles {
		item := &feeds.Item{
			Title:       a.Title,
			Link:        &feeds.Link{Href: a.Link},
			Description: a.DescriptionSnippet,
			Author:      &feeds.Author{Name: a.SourceName},
			Created:     a.FetchedAt,
		}
		if a.PublishedDate != nil {
			item.Created = *a.PublishedDate
		}
		if a.NewsCategory != "" {
			item.Description = "[" + a.NewsCategory + "] " + item.Description
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		s.log.Error("render feed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}

func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

package categorize

import (
	"context"
	"strings"

	"newshub/internal/model"
)

// KeywordClient is the offline fallback Client used when no API key is
// configured. It matches title and snippet text against keyword tables.
type KeywordClient struct{}

// NewKeywordClient creates a KeywordClient.
func NewKeywordClient() *KeywordClient {
	return &KeywordClient{}
}

var newsKeywords = []struct {
	category string
	words    []string
}{
	{"Technology", []string{"software", "startup", "app", "chip", "robot", "computer", "internet", "tech"}},
	{"Business", []string{"market", "stocks", "earnings", "acquisition", "ipo", "revenue", "economy"}},
	{"Science", []string{"study", "research", "climate", "space", "nasa", "physics", "biology"}},
	{"Politics", []string{"election", "parliament", "senate", "policy", "government", "minister"}},
	{"Sports", []string{"league", "championship", "tournament", "match", "olympic"}},
	{"Entertainment", []string{"film", "movie", "album", "series", "festival", "celebrity"}},
}

var techKeywords = []struct {
	category string
	words    []string
}{
	{"AI/ML", []string{"ai", "llm", "machine learning", "neural", "gpt", "model"}},
	{"Security", []string{"vulnerability", "breach", "exploit", "malware", "ransomware", "cve"}},
	{"Cloud", []string{"kubernetes", "aws", "azure", "cloud", "serverless", "docker"}},
	{"DevTools", []string{"compiler", "sdk", "framework", "library", "ide", "git"}},
	{"Hardware", []string{"cpu", "gpu", "chip", "semiconductor", "processor"}},
	{"Web", []string{"browser", "javascript", "css", "http", "frontend"}},
}

// Categorize assigns categories by keyword matching. It never fails;
// unmatched articles land in "Other".
func (k *KeywordClient) Categorize(_ context.Context, article model.Article) (Result, error) {
	text := strings.ToLower(article.Title + " " + article.DescriptionSnippet)

	res := Result{NewsCategory: "Other"}
	for _, group := range newsKeywords {
		if containsAny(text, group.words) {
			res.NewsCategory = group.category
			break
		}
	}
	if res.NewsCategory == "Technology" {
		res.TechCategory = "Other"
		for _, group := range techKeywords {
			if containsAny(text, group.words) {
				res.TechCategory = group.category
				break
			}
		}
	}
	return res, nil
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

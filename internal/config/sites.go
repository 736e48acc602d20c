package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newshub/internal/model"
)

// SiteProfile holds the default extraction rules for a known website.
type SiteProfile struct {
	MaxArticles         int    `yaml:"max_articles"`
	ArticleSelector     string `yaml:"article_selector"`
	TitleSelector       string `yaml:"title_selector"`
	LinkSelector        string `yaml:"link_selector"`
	DateSelector        string `yaml:"date_selector"`
	DescriptionSelector string `yaml:"description_selector"`
}

// Caps resolves the effective per-source article cap. Precedence:
// global override, then source override, then site default, then
// DefaultMaxArticles. Constructed once at startup and injected into the
// processor.
type Caps struct {
	GlobalOverride int
	SiteProfiles   map[string]SiteProfile
}

// LoadSiteProfiles reads site profiles from a YAML file. An empty path
// yields an empty profile set.
func LoadSiteProfiles(path string) (map[string]SiteProfile, error) {
	if path == "" {
		return map[string]SiteProfile{}, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read site profiles: %w", err)
	}
	var profiles map[string]SiteProfile
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse site profiles: %w", err)
	}
	if profiles == nil {
		profiles = map[string]SiteProfile{}
	}
	return profiles, nil
}

// Resolve returns the effective article cap for a source.
func (c Caps) Resolve(src model.Source) int {
	if c.GlobalOverride > 0 {
		return c.GlobalOverride
	}
	if src.ScrapingConfig != nil {
		if src.ScrapingConfig.MaxArticles > 0 {
			return src.ScrapingConfig.MaxArticles
		}
		if p, ok := c.SiteProfiles[src.ScrapingConfig.WebsiteID]; ok && p.MaxArticles > 0 {
			return p.MaxArticles
		}
	}
	return DefaultMaxArticles
}

// Selectors returns the effective extraction rules for an HTML source,
// filling empty per-source selectors from the matching site profile.
func (c Caps) Selectors(src model.Source) model.ScrapingConfig {
	var sc model.ScrapingConfig
	if src.ScrapingConfig != nil {
		sc = *src.ScrapingConfig
	}
	p, ok := c.SiteProfiles[sc.WebsiteID]
	if !ok {
		return sc
	}
	if sc.ArticleSelector == "" {
		sc.ArticleSelector = p.ArticleSelector
	}
	if sc.TitleSelector == "" {
		sc.TitleSelector = p.TitleSelector
	}
	if sc.LinkSelector == "" {
		sc.LinkSelector = p.LinkSelector
	}
	if sc.DateSelector == "" {
		sc.DateSelector = p.DateSelector
	}
	if sc.DescriptionSelector == "" {
		sc.DescriptionSelector = p.DescriptionSelector
	}
	return sc
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"newshub/internal/model"
)

var configEnvKeys = []string{
	"LISTEN_ADDR", "DATABASE_PATH", "LOG_LEVEL", "SITE_PROFILES_PATH",
	"MAX_ARTICLES_PER_SOURCE", "FETCH_CRON", "CATEGORIZE_CRON",
	"AI_API_KEY", "AI_API_URL", "AI_MODEL",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    *Config
		wantErr bool
	}{
		{
			name: "defaults applied",
			env:  map[string]string{},
			want: &Config{
				ListenAddr:   ":8080",
				DatabasePath: "./data/newshub.db",
				LogLevel:     "info",
				AIAPIURL:     "https://api.deepseek.com/v1/chat/completions",
				AIModel:      "deepseek-chat",
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"LISTEN_ADDR":             ":9090",
				"DATABASE_PATH":           "/tmp/news.db",
				"LOG_LEVEL":               "debug",
				"SITE_PROFILES_PATH":      "/etc/newshub/sites.yaml",
				"MAX_ARTICLES_PER_SOURCE": "5",
				"FETCH_CRON":              "@hourly",
				"CATEGORIZE_CRON":         "*/10 * * * *",
				"AI_API_KEY":              "sk-test",
				"AI_API_URL":              "https://llm.example.com/v1/chat/completions",
				"AI_MODEL":                "test-model",
				"TELEGRAM_BOT_TOKEN":      "tok",
				"TELEGRAM_CHAT_ID":        "-100123",
			},
			want: &Config{
				ListenAddr:        ":9090",
				DatabasePath:      "/tmp/news.db",
				LogLevel:          "debug",
				SiteProfilesPath:  "/etc/newshub/sites.yaml",
				GlobalMaxArticles: 5,
				FetchCron:         "@hourly",
				CategorizeCron:    "*/10 * * * *",
				AIAPIKey:          "sk-test",
				AIAPIURL:          "https://llm.example.com/v1/chat/completions",
				AIModel:           "test-model",
				TelegramBotToken:  "tok",
				TelegramChatID:    -100123,
			},
		},
		{
			name:    "invalid max articles",
			env:     map[string]string{"MAX_ARTICLES_PER_SOURCE": "zero"},
			wantErr: true,
		},
		{
			name:    "max articles below one",
			env:     map[string]string{"MAX_ARTICLES_PER_SOURCE": "0"},
			wantErr: true,
		},
		{
			name:    "invalid chat id",
			env:     map[string]string{"TELEGRAM_CHAT_ID": "abc"},
			wantErr: true,
		},
		{
			name:    "bot token without chat id",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear relevant env vars
			for _, key := range configEnvKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCapsResolve(t *testing.T) {
	profiles := map[string]SiteProfile{
		"technews": {MaxArticles: 10},
	}

	tests := []struct {
		name string
		caps Caps
		src  model.Source
		want int
	}{
		{
			name: "global override wins",
			caps: Caps{GlobalOverride: 3, SiteProfiles: profiles},
			src: model.Source{ScrapingConfig: &model.ScrapingConfig{
				WebsiteID: "technews", MaxArticles: 7,
			}},
			want: 3,
		},
		{
			name: "source override over site default",
			caps: Caps{SiteProfiles: profiles},
			src: model.Source{ScrapingConfig: &model.ScrapingConfig{
				WebsiteID: "technews", MaxArticles: 7,
			}},
			want: 7,
		},
		{
			name: "site default",
			caps: Caps{SiteProfiles: profiles},
			src:  model.Source{ScrapingConfig: &model.ScrapingConfig{WebsiteID: "technews"}},
			want: 10,
		},
		{
			name: "unknown site falls back to default",
			caps: Caps{SiteProfiles: profiles},
			src:  model.Source{ScrapingConfig: &model.ScrapingConfig{WebsiteID: "other"}},
			want: DefaultMaxArticles,
		},
		{
			name: "no scraping config",
			caps: Caps{SiteProfiles: profiles},
			src:  model.Source{},
			want: DefaultMaxArticles,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.caps.Resolve(tt.src); got != tt.want {
				t.Errorf("Resolve() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCapsSelectors(t *testing.T) {
	caps := Caps{SiteProfiles: map[string]SiteProfile{
		"technews": {
			ArticleSelector:     "article.story",
			TitleSelector:       "h2.headline",
			LinkSelector:        "a.permalink",
			DateSelector:        "time",
			DescriptionSelector: "p.teaser",
		},
	}}

	t.Run("profile fills empty selectors", func(t *testing.T) {
		src := model.Source{ScrapingConfig: &model.ScrapingConfig{
			WebsiteID:     "technews",
			TitleSelector: "h1",
		}}
		got := caps.Selectors(src)
		want := model.ScrapingConfig{
			WebsiteID:           "technews",
			ArticleSelector:     "article.story",
			TitleSelector:       "h1",
			LinkSelector:        "a.permalink",
			DateSelector:        "time",
			DescriptionSelector: "p.teaser",
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Selectors() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("unknown site keeps source config", func(t *testing.T) {
		src := model.Source{ScrapingConfig: &model.ScrapingConfig{
			WebsiteID:       "other",
			ArticleSelector: "div.post",
		}}
		got := caps.Selectors(src)
		want := model.ScrapingConfig{WebsiteID: "other", ArticleSelector: "div.post"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Selectors() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nil scraping config", func(t *testing.T) {
		got := caps.Selectors(model.Source{})
		if diff := cmp.Diff(model.ScrapingConfig{}, got); diff != "" {
			t.Errorf("Selectors() mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestLoadSiteProfiles(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		got, err := LoadSiteProfiles("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected empty profile set, got %d entries", len(got))
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadSiteProfiles(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := writeFile(t, `
technews:
  max_articles: 15
  article_selector: "article.story"
  title_selector: "h2"
blog:
  article_selector: "div.post"
`)
		got, err := LoadSiteProfiles(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]SiteProfile{
			"technews": {MaxArticles: 15, ArticleSelector: "article.story", TitleSelector: "h2"},
			"blog":     {ArticleSelector: "div.post"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("LoadSiteProfiles() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "technews: [broken")
		if _, err := LoadSiteProfiles(path); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

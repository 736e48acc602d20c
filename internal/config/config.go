// Package config handles application configuration from environment variables
// and the optional site-profile file.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultMaxArticles is the hardcoded fallback article cap per source.
const DefaultMaxArticles = 20

// Config holds the application configuration.
type Config struct {
	ListenAddr        string
	DatabasePath      string
	LogLevel          string
	SiteProfilesPath  string
	GlobalMaxArticles int // 0 means no global override

	FetchCron      string // empty disables scheduled runs
	CategorizeCron string // empty disables scheduled categorization sweeps

	AIAPIKey string
	AIAPIURL string
	AIModel  string

	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       envOrDefault("LISTEN_ADDR", ":8080"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/newshub.db"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		SiteProfilesPath: os.Getenv("SITE_PROFILES_PATH"),
		FetchCron:        os.Getenv("FETCH_CRON"),
		CategorizeCron:   os.Getenv("CATEGORIZE_CRON"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIAPIURL:         envOrDefault("AI_API_URL", "https://api.deepseek.com/v1/chat/completions"),
		AIModel:          envOrDefault("AI_MODEL", "deepseek-chat"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if raw := os.Getenv("MAX_ARTICLES_PER_SOURCE"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid MAX_ARTICLES_PER_SOURCE %q", raw)
		}
		cfg.GlobalMaxArticles = n
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", raw, err)
		}
		cfg.TelegramChatID = id
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"newshub/internal/api"
	"newshub/internal/categorize"
	"newshub/internal/config"
	"newshub/internal/fetcher"
	"newshub/internal/notify"
	"newshub/internal/pipeline"
	"newshub/internal/schedule"
	"newshub/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	profiles, err := config.LoadSiteProfiles(cfg.SiteProfilesPath)
	if err != nil {
		log.Error("load site profiles", "path", cfg.SiteProfilesPath, "error", err)
		os.Exit(1)
	}
	caps := config.Caps{
		GlobalOverride: cfg.GlobalMaxArticles,
		SiteProfiles:   profiles,
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	proc := pipeline.NewProcessor(fetcher.New(http.DefaultClient), store, caps, log)
	orch := pipeline.NewOrchestrator(store, proc, log)

	var client categorize.Client
	if cfg.AIAPIKey != "" {
		client = categorize.NewAPIClient(cfg.AIAPIURL, cfg.AIModel, cfg.AIAPIKey)
	} else {
		log.Info("no AI api key configured, using keyword categorization")
		client = categorize.NewKeywordClient()
	}
	worker := categorize.NewWorker(store, client, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var notifier schedule.RunNotifier
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Error("create telegram notifier", "error", err)
			os.Exit(1)
		}
		notifier = tg
	}

	sched := schedule.New(orch, worker, notifier, log)
	if cfg.FetchCron != "" {
		if err := sched.AddFetchJob(ctx, cfg.FetchCron); err != nil {
			log.Error("schedule fetch job", "cron", cfg.FetchCron, "error", err)
			os.Exit(1)
		}
		log.Info("fetch job scheduled", "cron", cfg.FetchCron)
	}
	if cfg.CategorizeCron != "" {
		if err := sched.AddCategorizeJob(ctx, cfg.CategorizeCron, 50); err != nil {
			log.Error("schedule categorize job", "cron", cfg.CategorizeCron, "error", err)
			os.Exit(1)
		}
		log.Info("categorize job scheduled", "cron", cfg.CategorizeCron)
	}
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(store, orch, worker, log)

	log.Info("starting server", "addr", cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run(cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		log.Error("server stopped", "error", err)
		os.Exit(1)
	case <-ctx.Done():
	}

	log.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

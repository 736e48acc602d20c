// Package notify sends run-summary notifications.
package notify

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newshub/internal/model"
)

// Telegram notifies a single chat about finished fetch runs.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *slog.Logger
}

// NewTelegram creates a Telegram notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return &Telegram{
		api:    api,
		chatID: chatID,
		log:    log,
	}, nil
}

// NotifyRun sends the run summary. Errors are logged, not returned; a
// notification failure never affects the run itself.
func (t *Telegram) NotifyRun(run *model.FetchRun) {
	msg := tgbotapi.NewMessage(t.chatID, FormatRun(run))
	if _, err := t.api.Send(msg); err != nil {
		t.log.Error("send run notification", "run_id", run.ID, "error", err)
	}
}

// FormatRun formats a fetch run as a notification message.
func FormatRun(run *model.FetchRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fetch run #%d: %s\n", run.ID, run.Status)
	fmt.Fprintf(&b, "%d new articles from %d sources", run.NewArticlesAdded, run.SourcesAttempted)
	if run.SourcesFailed > 0 {
		fmt.Fprintf(&b, "\n%d sources failed:", run.SourcesFailed)
		for _, s := range run.SourceSummaries {
			if s.FetchError != "" {
				fmt.Fprintf(&b, "\n- %s: %s", s.SourceName, s.FetchError)
			}
		}
	}
	if len(run.OrchestrationErrors) > 0 {
		fmt.Fprintf(&b, "\nRun errors: %s", strings.Join(run.OrchestrationErrors, "; "))
	}
	return b.String()
}

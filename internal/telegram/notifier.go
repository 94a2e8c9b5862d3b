// Package telegram tells moderators about flagged reports through a Telegram bot.
package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"modcheck/backend/internal/autocheck"
	"modcheck/backend/internal/localization"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts a message to the moderators' chat for every flagged run.
type Notifier struct {
	Bot       Sender
	ChatID    int64
	Language  string
	Localizer *localization.Localizer
}

// NewNotifier authorizes the bot and returns a notifier for chatID.
func NewNotifier(token string, chatID int64, lang string, l *localization.Localizer) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	slog.Info("telegram notifier authorized", "account", bot.Self.UserName)

	return &Notifier{Bot: bot, ChatID: chatID, Language: lang, Localizer: l}, nil
}

// NotifyFlagged implements autocheck.Notifier. Send errors are logged only.
func (n *Notifier) NotifyFlagged(ctx context.Context, run *autocheck.Run) {
	if n == nil || n.Bot == nil || n.ChatID == 0 || run == nil || run.Report == nil {
		return
	}

	msg := tgbotapi.NewMessage(n.ChatID, n.render(run))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableNotification = run.Outcome.SuppressFromQueue

	if _, err := n.Bot.Send(msg); err != nil {
		slog.Warn("failed to notify moderators", "report_id", run.Report.ID, "error", err)
	}
}

func (n *Notifier) render(run *autocheck.Run) string {
	esc := func(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }

	var b strings.Builder
	b.WriteString("*")
	b.WriteString(esc(n.Localizer.GetString(n.Language, "autocheck_flagged_title")))
	b.WriteString("*\n")
	b.WriteString(esc(n.Localizer.Format(n.Language, "autocheck_flagged_body", map[string]string{
		"report":    run.Report.ID,
		"note":      run.Report.TargetID,
		"label":     run.Score.Label,
		"score":     strconv.FormatFloat(run.Score.NormalizedScore, 'f', 2, 64),
		"threshold": strconv.FormatFloat(run.Policy.ScoreThreshold, 'f', 2, 64),
		"status":    run.Outcome.AuditStatus.String(),
	})))
	if run.DeletionErr != nil {
		b.WriteString("\n")
		b.WriteString(esc(n.Localizer.GetString(n.Language, "autocheck_deletion_failed")))
	}
	if run.Report.Resolved {
		b.WriteString("\n")
		b.WriteString(esc(n.Localizer.GetString(n.Language, "autocheck_resolved_note")))
	}
	return b.String()
}

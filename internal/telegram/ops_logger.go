package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"

	"github.com/set-night/coworker/internal/config"
	"github.com/set-night/coworker/internal/domain"
)

// OpsLogger posts operational events to topics of an operations chat. It is
// a no-op when no chat is configured.
type OpsLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewOpsLogger(b *bot.Bot, cfg *config.Config) *OpsLogger {
	return &OpsLogger{bot: b, cfg: cfg}
}

type LogType string

const (
	LogTypeError        LogType = "error"
	LogTypeEscalation   LogType = "escalation"
	LogTypeFeedback     LogType = "feedback"
	LogTypeRegistration LogType = "registration"
)

func (l *OpsLogger) Log(logType LogType, message string) {
	if l == nil || l.bot == nil || l.cfg.LogTelegramChatID == 0 {
		return
	}

	topicID := l.topicID(logType)
	if topicID == 0 {
		return
	}

	if runes := []rune(message); len(runes) > config.MaxTelegramMessageLen {
		message = string(runes[:config.MaxTelegramMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send ops log", "type", logType, "error", err)
	}
}

func (l *OpsLogger) LogError(err error, where string) {
	l.Log(LogTypeError, fmt.Sprintf("❌ Error\n\nContext: %s\nError: %s\nTime: %s",
		where, err.Error(), time.Now().Format("2006-01-02 15:04:05")))
}

func (l *OpsLogger) LogEscalation(miamID string, counter domain.MannedCounter, sessionID string) {
	l.Log(LogTypeEscalation, fmt.Sprintf("📨 Escalation\n\nUser: %s\nCounter: %s <%s>\nSession: %s",
		miamID, counter.Name, counter.Email, sessionID))
}

func (l *OpsLogger) LogFeedback(miamID, sessionID, conversationTime string, fb domain.Feedback) {
	value := string(fb)
	if fb == domain.FeedbackNone {
		value = "withdrawn"
	}
	l.Log(LogTypeFeedback, fmt.Sprintf("👍 Feedback\n\nUser: %s\nSession: %s\nTurn: %s\nValue: %s",
		miamID, sessionID, conversationTime, value))
}

func (l *OpsLogger) LogRegistration(telegramID int64, miamID string, employee *domain.EmployeeInfo) {
	msg := fmt.Sprintf("👤 Registration\n\nTelegram ID: %d\nMIAM ID: %s", telegramID, miamID)
	if employee.Complete() {
		msg += fmt.Sprintf("\nCompany: %s\nOffice: %s", employee.CompanyCode, employee.OfficeCode)
	}
	l.Log(LogTypeRegistration, msg)
}

func (l *OpsLogger) topicID(logType LogType) int {
	switch logType {
	case LogTypeError:
		return l.cfg.LogTopicError
	case LogTypeEscalation:
		return l.cfg.LogTopicEscalation
	case LogTypeFeedback:
		return l.cfg.LogTopicFeedback
	case LogTypeRegistration:
		return l.cfg.LogTopicRegistration
	default:
		return 0
	}
}

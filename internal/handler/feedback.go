package handler

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/middleware"
)

const turnGoneText = "この回答は現在のチャットにありません"

// parseFeedback splits fb_good_<id>, fb_bad_<id> and fb_undo_<id>. Undo
// yields FeedbackNone.
func parseFeedback(data string) (domain.Feedback, string, bool) {
	switch {
	case strings.HasPrefix(data, "fb_good_"):
		return domain.FeedbackGood, strings.TrimPrefix(data, "fb_good_"), true
	case strings.HasPrefix(data, "fb_bad_"):
		return domain.FeedbackBad, strings.TrimPrefix(data, "fb_bad_"), true
	case strings.HasPrefix(data, "fb_undo_"):
		return domain.FeedbackNone, strings.TrimPrefix(data, "fb_undo_"), true
	default:
		return domain.FeedbackNone, "", false
	}
}

// handleFeedback records the backend first and mutates the local turn only
// once the backend accepted it.
func (h *Handler) handleFeedback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	fb, id, ok := parseFeedback(update.CallbackQuery.Data)
	ws := middleware.GetWorkspace(ctx)
	if !ok || ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}

	turn, found := ws.Chat.FindByID(id)
	if !found {
		answerCallback(ctx, b, update, turnGoneText)
		return
	}
	sessionID := turn.SessionID
	if sessionID == "" {
		sessionID = ws.Chat.State().SessionID
	}
	key := turn.Key()

	var err error
	if fb == domain.FeedbackNone {
		_, err = h.api.DeleteFeedback(ctx, domain.DeleteFeedbackRequest{
			SessionID:        sessionID,
			ConversationTime: key,
		})
	} else {
		_, err = h.api.SubmitFeedback(ctx, domain.SubmitFeedbackRequest{
			SessionID:        sessionID,
			ConversationTime: key,
			Feedback:         fb,
		})
	}
	if err != nil {
		slog.Error("send feedback", "error", err, "session_id", sessionID, "conversation_time", key)
		answerCallback(ctx, b, update, "フィードバックの送信に失敗しました")
		return
	}

	if err := ws.Chat.SetFeedback(ctx, key, fb); err != nil {
		slog.Warn("store feedback", "error", err, "session_id", sessionID)
	}
	turn.Feedback = fb

	if fb == domain.FeedbackNone {
		answerCallback(ctx, b, update, "フィードバックを取り消しました")
	} else {
		answerCallback(ctx, b, update, "フィードバックありがとうございます")
	}

	chatID, messageID := callbackTarget(update)
	if _, kb := renderTurn(turn); kb != nil && messageID != 0 {
		if _, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:      chatID,
			MessageID:   messageID,
			ReplyMarkup: kb,
		}); err != nil {
			slog.Debug("edit feedback buttons", "error", err)
		}
	}

	h.opsLogger.LogFeedback(ws.Store.MiamID(ctx), sessionID, key, fb)
}

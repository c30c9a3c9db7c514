package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	tg "github.com/set-night/coworker/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
func (h *Handler) Register() {
	// Commands
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, h.handleStart)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/login", bot.MatchTypePrefix, h.handleLogin)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/new", bot.MatchTypePrefix, h.handleNew)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/clear", bot.MatchTypePrefix, h.handleClear)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/sessions", bot.MatchTypePrefix, h.handleSessions)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/support", bot.MatchTypePrefix, h.handleSupport)
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, "/confidential", bot.MatchTypePrefix, h.handleConfidential)

	// Terms
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "terms_accept", bot.MatchTypeExact, h.handleTermsAccept)

	// Sessions callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "new_session", bot.MatchTypeExact, h.handleNewSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "switch_session_", bot.MatchTypePrefix, h.handleSwitchSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "delete_session_", bot.MatchTypePrefix, h.handleDeleteSession)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "sessions_page_", bot.MatchTypePrefix, h.handleSessionsPage)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "cur", bot.MatchTypeExact, h.handleNoop)

	// Turn callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "fb_", bot.MatchTypePrefix, h.handleFeedback)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "src_", bot.MatchTypePrefix, h.handleSource)

	// Support escalation callbacks
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "esc_pick_", bot.MatchTypePrefix, h.handleSupportPick)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "esc_back", bot.MatchTypeExact, h.handleSupportBack)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "esc_send", bot.MatchTypeExact, h.handleSupportSend)
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "esc_cancel", bot.MatchTypeExact, h.handleSupportCancel)
}

// handleNoop is a no-op callback handler used for pagination indicators and other
// non-interactive inline buttons. It simply acknowledges the callback query.
func (h *Handler) handleNoop(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		answerCallback(ctx, b, update, "")
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
		Text:            text,
	})
	if err != nil {
		slog.Debug("answer callback query", "error", err)
	}
}

// callbackTarget returns the chat and message a callback button belongs to.
func callbackTarget(update *models.Update) (chatID int64, messageID int) {
	if msg := update.CallbackQuery.Message.Message; msg != nil {
		return msg.Chat.ID, msg.ID
	}
	return 0, 0
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		slog.Error("send reply", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) replyMarkdown(ctx context.Context, b *bot.Bot, chatID int64, text string, markup models.ReplyMarkup) {
	if _, err := tg.SendLongMessage(ctx, b, chatID, text, markup); err != nil {
		slog.Error("send reply", "error", err, "chat_id", chatID)
	}
}

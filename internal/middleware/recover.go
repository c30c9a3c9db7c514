package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const internalErrorText = "⚠️ 内部エラーが発生しました。もう一度お試しください。"

// Recover logs a handler panic with its stack and tells the chat that the
// request failed. Polling continues with the next update.
func Recover() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				kind, chatID, userID := origin(update)
				panicsRecovered.WithLabelValues(kind).Inc()
				slog.Error("panic recovered in handler",
					"update_id", update.ID,
					"type", kind,
					"chat_id", chatID,
					"user_id", userID,
					"panic", r,
					"stack", string(debug.Stack()),
				)
				if chatID == 0 || b == nil {
					return
				}
				if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: internalErrorText}); err != nil {
					slog.Error("send internal error notice", "error", err, "chat_id", chatID)
				}
			}()
			next(ctx, b, update)
		}
	}
}

package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Updates slower than this are logged at warn level.
const slowUpdate = 15 * time.Second

// Logging records how long each update took, per update type.
func Logging() bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			start := time.Now()
			kind, chatID, userID := origin(update)

			next(ctx, b, update)

			elapsed := time.Since(start)
			updatesProcessed.WithLabelValues(kind).Observe(elapsed.Seconds())

			level := slog.LevelDebug
			if elapsed > slowUpdate {
				level = slog.LevelWarn
			}
			attrs := []any{
				"update_id", update.ID,
				"type", kind,
				"chat_id", chatID,
				"user_id", userID,
				"duration", elapsed,
			}
			if update.CallbackQuery != nil {
				attrs = append(attrs, "data", update.CallbackQuery.Data)
			}
			slog.Log(ctx, level, "update processed", attrs...)
		}
	}
}

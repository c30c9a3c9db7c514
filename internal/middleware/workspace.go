package middleware

import (
	"context"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/chat"
)

type ctxKey string

const WorkspaceKey ctxKey = "workspace"

// GetWorkspace extracts the chat's workspace from context.
func GetWorkspace(ctx context.Context) *chat.Workspace {
	ws, ok := ctx.Value(WorkspaceKey).(*chat.Workspace)
	if !ok {
		return nil
	}
	return ws
}

// WithWorkspace stores ws in ctx.
func WithWorkspace(ctx context.Context, ws *chat.Workspace) context.Context {
	return context.WithValue(ctx, WorkspaceKey, ws)
}

// Owner is the storage scope of a Telegram chat.
func Owner(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

// Workspace loads the chat's workspace into context. Every private chat has
// its own sessions, preferences and employee cache.
func Workspace(reg *chat.Registry) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if _, chatID, _ := origin(update); chatID != 0 {
				ctx = WithWorkspace(ctx, reg.Get(Owner(chatID)))
			}
			next(ctx, b, update)
		}
	}
}

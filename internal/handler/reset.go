package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/middleware"
)

// handleNew starts a fresh conversation. The stored one stays in /sessions.
func (h *Handler) handleNew(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	ws.Chat.ResetSession()
	h.flows.Get(ws.Owner).Reset()
	h.reply(ctx, b, update.Message.Chat.ID, "🆕 新しいチャットを開始しました。質問をどうぞ。")
}

// handleClear deletes the current conversation from storage.
func (h *Handler) handleClear(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	ws.Chat.ClearMessages(ctx)
	h.flows.Get(ws.Owner).Reset()
	h.reply(ctx, b, update.Message.Chat.ID, "🗑 現在のチャットを削除しました。")
}

package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/middleware"
	tg "github.com/set-night/coworker/internal/telegram"
)

// handleLogin registers the MIAM ID the chat asks on behalf of. The employee
// cache is dropped so the new identity's company and office are looked up.
func (h *Handler) handleLogin(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}
	chatID := update.Message.Chat.ID

	fields := strings.Fields(update.Message.Text)
	if len(fields) < 2 {
		text := "使い方: /login <MIAM ID>"
		if current := ws.Store.MiamID(ctx); current != "" {
			text += "\n現在のMIAM ID: " + current
		}
		h.reply(ctx, b, chatID, text)
		return
	}
	miamID := fields[1]

	ws.Store.SetMiamID(ctx, miamID)
	h.profiles.Invalidate(ctx, ws.Store)

	p, err := h.profiles.Resolve(ctx, ws.Store, miamID)
	if err != nil || !p.Employee.Complete() {
		h.reply(ctx, b, chatID, "MIAM IDを登録しましたが、"+noEmployeeText)
		return
	}

	var from int64
	if update.Message.From != nil {
		from = update.Message.From.ID
	}
	h.opsLogger.LogRegistration(from, miamID, p.Employee)

	h.replyMarkdown(ctx, b, chatID, fmt.Sprintf("✅ *%s* として登録しました。\n会社: %s / 事業所: %s\n\n%s",
		tg.EscapeMarkdown(miamID),
		tg.EscapeMarkdown(p.Employee.CompanyCode),
		tg.EscapeMarkdown(p.Employee.OfficeCode),
		confidentialBanner(ws.Store.Confidential(ctx)),
	), nil)
}

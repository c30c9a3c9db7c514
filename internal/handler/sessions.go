package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/chat"
	"github.com/set-night/coworker/internal/config"
	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/history"
	"github.com/set-night/coworker/internal/middleware"
	tg "github.com/set-night/coworker/internal/telegram"
)

func (h *Handler) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	h.sendSessionsPage(ctx, b, update.Message.Chat.ID, ws, 0, 0)
}

// sessionsPage lays out one page of stored sessions, newest first.
func sessionsPage(sessions []history.SessionSummary, current string, page int) (string, *models.InlineKeyboardMarkup) {
	totalPages := (len(sessions) + config.SessionsPerPage - 1) / config.SessionsPerPage
	if totalPages == 0 {
		totalPages = 1
	}
	page = max(0, min(page, totalPages-1))

	var sb strings.Builder
	fmt.Fprintf(&sb, "📂 *チャット履歴* (%d件)", len(sessions))
	if len(sessions) == 0 {
		sb.WriteString("\n\nまだ履歴はありません。")
	}

	var rows [][]models.InlineKeyboardButton
	start := page * config.SessionsPerPage
	end := min(start+config.SessionsPerPage, len(sessions))
	for _, s := range sessions[start:end] {
		label := s.Title
		if s.Status == domain.StatusClosed {
			label = "🔒 " + label
		}
		if s.ID == current {
			label += " ✅"
		}
		short := tg.ShortID(s.ID)
		rows = append(rows, tg.ButtonRow(
			tg.InlineButton(label, "switch_session_"+short),
			tg.InlineButton("🗑", "delete_session_"+short),
		))
	}

	rows = append(rows, tg.ButtonRow(tg.InlineButton("➕ 新しいチャット", "new_session")))
	rows = append(rows, tg.PaginationRow(page, totalPages, "sessions_page_"))
	return sb.String(), tg.InlineKeyboard(rows...)
}

// sendSessionsPage sends the page, or edits messageID in place when it is
// set.
func (h *Handler) sendSessionsPage(ctx context.Context, b *bot.Bot, chatID int64, ws *chat.Workspace, page, messageID int) {
	text, kb := sessionsPage(ws.Store.Sessions(ctx), ws.Chat.State().SessionID, page)

	if messageID != 0 {
		if err := tg.EditLongMessage(ctx, b, chatID, messageID, text, kb); err != nil {
			slog.Debug("edit sessions page", "error", err)
		}
		return
	}
	h.replyMarkdown(ctx, b, chatID, text, kb)
}

// findSession resolves the short id carried in callback data.
func findSession(ctx context.Context, ws *chat.Workspace, short string) (history.SessionSummary, bool) {
	for _, s := range ws.Store.Sessions(ctx) {
		if tg.ShortID(s.ID) == short {
			return s, true
		}
	}
	return history.SessionSummary{}, false
}

func (h *Handler) handleNewSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "新しいチャットを開始しました")

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	ws.Chat.ResetSession()
	h.flows.Get(ws.Owner).Reset()

	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, ws, 0, messageID)
}

func (h *Handler) handleSwitchSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}

	s, ok := findSession(ctx, ws, strings.TrimPrefix(update.CallbackQuery.Data, "switch_session_"))
	if !ok {
		answerCallback(ctx, b, update, "チャットが見つかりません")
		return
	}
	answerCallback(ctx, b, update, "")

	ws.Chat.LoadSession(ctx, s.ID)
	h.flows.Get(ws.Owner).Reset()

	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, ws, 0, messageID)

	text := fmt.Sprintf("🔄 「%s」を開きました。(%d件のやり取り)", s.Title, s.Turns)
	if s.Status == domain.StatusClosed {
		text += "\n" + closedText
	}
	h.reply(ctx, b, chatID, text)

	// Re-send the last answer so its buttons work in this conversation.
	if msgs := ws.Chat.State().Messages; len(msgs) > 0 {
		if body, kb := renderTurn(msgs[len(msgs)-1]); body != "" {
			h.replyMarkdown(ctx, b, chatID, body, markup(kb))
		}
	}
}

func (h *Handler) handleDeleteSession(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}

	s, ok := findSession(ctx, ws, strings.TrimPrefix(update.CallbackQuery.Data, "delete_session_"))
	if !ok {
		answerCallback(ctx, b, update, "チャットが見つかりません")
		return
	}
	answerCallback(ctx, b, update, "削除しました")

	if ws.Chat.State().SessionID == s.ID {
		ws.Chat.ClearMessages(ctx)
		h.flows.Get(ws.Owner).Reset()
	} else {
		ws.Store.Delete(ctx, s.ID)
	}

	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, ws, 0, messageID)
}

func (h *Handler) handleSessionsPage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	page, _ := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "sessions_page_"))
	chatID, messageID := callbackTarget(update)
	h.sendSessionsPage(ctx, b, chatID, ws, page, messageID)
}

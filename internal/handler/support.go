package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/chat"
	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/escalation"
	"github.com/set-night/coworker/internal/middleware"
	tg "github.com/set-night/coworker/internal/telegram"
)

const (
	noCountersText    = "お問い合わせ可能な窓口が見つかりませんでした。"
	countersErrorText = "❌ 窓口情報の取得に失敗しました。"
	staleSupportText  = "この操作は現在のお問い合わせでは使えません"
	sendMailErrorText = "❌ メールの送信に失敗しました。"
)

// supportView renders the escalation at its current step.
func supportView(s escalation.Snapshot) (string, *models.InlineKeyboardMarkup) {
	cancel := tg.InlineButton("✖️ キャンセル", "esc_cancel")
	back := tg.InlineButton("⬅️ 戻る", "esc_back")

	switch s.Step {
	case escalation.StepList:
		var sb strings.Builder
		sb.WriteString("🧑‍💼 *有人窓口へのお問い合わせ*\n\n問い合わせ先の窓口を選択してください。")
		rows := make([][]models.InlineKeyboardButton, 0, len(s.Counters)+1)
		for i, c := range s.Counters {
			fmt.Fprintf(&sb, "\n\n*%d. %s*", i+1, tg.EscapeMarkdown(c.Name))
			if c.Description != "" {
				sb.WriteString("\n" + tg.EscapeMarkdown(c.Description))
			}
			rows = append(rows, tg.ButtonRow(tg.InlineButton(c.Name, "esc_pick_"+strconv.Itoa(i))))
		}
		rows = append(rows, tg.ButtonRow(cancel))
		return sb.String(), tg.InlineKeyboard(rows...)

	case escalation.StepForm:
		text := fmt.Sprintf("📝 *%s* へのお問い合わせ\n\nお問い合わせ内容をメッセージで送信してください。チャット履歴は自動で添付されます。",
			tg.EscapeMarkdown(s.Selected.Name))
		return text, tg.InlineKeyboard(tg.ButtonRow(back, cancel))

	case escalation.StepConfirm:
		text := fmt.Sprintf("📨 *送信内容の確認*\n\n*宛先:* %s\n\n*お問い合わせ内容:*\n%s",
			tg.EscapeMarkdown(s.Selected.Name), tg.EscapeMarkdown(s.Message))
		return text, tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton("✅ 送信", "esc_send")),
			tg.ButtonRow(back, cancel),
		)

	case escalation.StepSending:
		return fmt.Sprintf("📨 *%s* に送信中…", tg.EscapeMarkdown(s.Selected.Name)), nil

	case escalation.StepSent:
		text := "✅ *送信しました*"
		if s.SentText != "" {
			text += "\n\n" + tg.EscapeMarkdown(s.SentText)
		}
		return text + "\n\n" + tg.EscapeMarkdown(closedText), nil

	default:
		return "お問い合わせをキャンセルしました。", nil
	}
}

// showSupport edits the escalation message in place, or sends a new one when
// messageID is zero.
func (h *Handler) showSupport(ctx context.Context, b *bot.Bot, chatID int64, messageID int, s escalation.Snapshot) {
	text, kb := supportView(s)
	if messageID == 0 {
		h.replyMarkdown(ctx, b, chatID, text, markup(kb))
		return
	}
	if err := tg.EditLongMessage(ctx, b, chatID, messageID, text, markup(kb)); err != nil {
		slog.Debug("edit support message", "error", err)
	}
}

// recentHistory is the backend's latest view of the conversation and the
// counters it suggested for it.
func recentHistory(state chat.State) ([]domain.ChatMessage, []string) {
	if len(state.Messages) == 0 {
		return nil, []string{}
	}
	last := state.Messages[len(state.Messages)-1]
	names := last.PriorityMannedCounterNames
	if names == nil {
		names = []string{}
	}
	return last.ChatHistory, names
}

func (h *Handler) handleSupport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}
	chatID := update.Message.Chat.ID

	p, ok := h.profile(ctx, b, chatID, ws)
	if !ok {
		return
	}

	history, names := recentHistory(ws.Chat.State())
	resp, err := h.counters.GetMannedCounters(ctx, domain.GetMannedCounterRequest{
		PriorityMannedCounterNames: names,
		Company:                    p.Employee.CompanyCode,
		Office:                     p.Employee.OfficeCode,
	})
	if err != nil {
		slog.Error("get manned counters", "error", err, "owner", ws.Owner)
		h.reply(ctx, b, chatID, countersErrorText)
		return
	}

	flow := h.flows.Get(ws.Owner)
	flow.Reset()
	if err := flow.Start(resp.MannedCounterInfo, history); err != nil {
		if !errors.Is(err, escalation.ErrNoCounters) {
			slog.Error("start escalation", "error", err, "owner", ws.Owner)
		}
		h.reply(ctx, b, chatID, noCountersText)
		return
	}
	h.showSupport(ctx, b, chatID, 0, flow.Snapshot())
}

// handleSupportMessage takes the inquiry text while the form is open.
func (h *Handler) handleSupportMessage(ctx context.Context, b *bot.Bot, chatID int64, ws *chat.Workspace, text string) {
	flow := h.flows.Get(ws.Owner)
	if err := flow.Write(text); err != nil {
		if errors.Is(err, escalation.ErrEmptyMessage) {
			h.reply(ctx, b, chatID, "お問い合わせ内容を入力してください。")
			return
		}
		slog.Warn("write inquiry", "error", err, "owner", ws.Owner)
		return
	}
	h.showSupport(ctx, b, chatID, 0, flow.Snapshot())
}

func (h *Handler) handleSupportPick(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	i, err := strconv.Atoi(strings.TrimPrefix(update.CallbackQuery.Data, "esc_pick_"))
	if ws == nil || err != nil {
		answerCallback(ctx, b, update, "")
		return
	}

	flow := h.flows.Get(ws.Owner)
	if err := flow.Pick(i); err != nil {
		answerCallback(ctx, b, update, staleSupportText)
		return
	}
	answerCallback(ctx, b, update, "")
	chatID, messageID := callbackTarget(update)
	h.showSupport(ctx, b, chatID, messageID, flow.Snapshot())
}

func (h *Handler) handleSupportBack(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}

	flow := h.flows.Get(ws.Owner)
	if err := flow.Back(); err != nil {
		answerCallback(ctx, b, update, staleSupportText)
		return
	}
	answerCallback(ctx, b, update, "")
	chatID, messageID := callbackTarget(update)
	h.showSupport(ctx, b, chatID, messageID, flow.Snapshot())
}

func (h *Handler) handleSupportCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}

	flow := h.flows.Get(ws.Owner)
	if err := flow.Cancel(); err != nil {
		answerCallback(ctx, b, update, staleSupportText)
		return
	}
	answerCallback(ctx, b, update, "")
	chatID, messageID := callbackTarget(update)
	h.showSupport(ctx, b, chatID, messageID, flow.Snapshot())
}

// handleSupportSend mails the inquiry and closes the chat it was about.
func (h *Handler) handleSupportSend(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}
	chatID, messageID := callbackTarget(update)

	flow := h.flows.Get(ws.Owner)
	if flow.Step() != escalation.StepConfirm {
		answerCallback(ctx, b, update, staleSupportText)
		return
	}

	p, ok := h.profile(ctx, b, chatID, ws)
	if !ok {
		answerCallback(ctx, b, update, "")
		return
	}
	// A second tap that got past the step check above loses here.
	req, err := flow.BeginSend(p.MiamID, *p.Employee)
	if err != nil {
		slog.Debug("begin send", "error", err, "owner", ws.Owner)
		answerCallback(ctx, b, update, staleSupportText)
		return
	}
	answerCallback(ctx, b, update, "")
	h.showSupport(ctx, b, chatID, messageID, flow.Snapshot())

	resp, err := h.api.SendMail(ctx, req)
	if err != nil {
		slog.Error("send mail", "error", err, "owner", ws.Owner, "counter", req.MannedCounterName)
		h.opsLogger.LogError(err, "send mail")
		if err := flow.AbortSend(); err != nil {
			slog.Warn("abort escalation send", "error", err, "owner", ws.Owner)
		}
		h.reply(ctx, b, chatID, sendMailErrorText)
		h.showSupport(ctx, b, chatID, messageID, flow.Snapshot())
		return
	}
	if err := flow.MarkSent(resp.SentText); err != nil {
		slog.Warn("mark escalation sent", "error", err, "owner", ws.Owner)
	}

	snap := flow.Snapshot()
	ws.Chat.CloseChat(ctx)
	if snap.Selected != nil {
		h.opsLogger.LogEscalation(p.MiamID, *snap.Selected, ws.Chat.State().SessionID)
	}
	h.showSupport(ctx, b, chatID, messageID, snap)
}

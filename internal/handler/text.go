package handler

import (
	"context"
	"errors"
	"log/slog"
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
	busyText         = "⏳ 前の質問に回答中です。しばらくお待ちください。"
	closedText       = "🔒 このチャットは終了しています。/new で新しいチャットを開始してください。"
	termsFirstText   = "ご利用の前に /start から利用規約への同意をお願いします。"
	loginFirstText   = "MIAM IDが登録されていません。/login <MIAM ID> で登録してください。"
	noEmployeeText   = "従業員情報を取得できませんでした。MIAM IDを確認して /login で再登録してください。"
	answerFailedText = "回答の取得に失敗しました"
)

// HandleText routes a private text message: to the support form while one
// is open, otherwise to the chat as a question.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") || strings.TrimSpace(msg.Text) == "" {
		return
	}

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	if h.flows.Get(ws.Owner).Step() == escalation.StepForm {
		h.handleSupportMessage(ctx, b, msg.Chat.ID, ws, msg.Text)
		return
	}
	h.ask(ctx, b, msg.Chat.ID, ws, msg.Text)
}

// profile returns the sender's profile when they may ask questions, and
// otherwise tells them what is missing.
func (h *Handler) profile(ctx context.Context, b *bot.Bot, chatID int64, ws *chat.Workspace) (*domain.Profile, bool) {
	if !ws.Store.TermsAccepted(ctx) {
		h.reply(ctx, b, chatID, termsFirstText)
		return nil, false
	}

	p, err := h.profiles.Resolve(ctx, ws.Store, ws.Store.MiamID(ctx))
	if errors.Is(err, domain.ErrNotLoggedIn) {
		h.reply(ctx, b, chatID, loginFirstText)
		return nil, false
	}
	if err != nil {
		slog.Error("resolve profile", "error", err, "owner", ws.Owner)
		h.reply(ctx, b, chatID, noEmployeeText)
		return nil, false
	}
	if !p.Employee.Complete() {
		h.reply(ctx, b, chatID, noEmployeeText)
		return nil, false
	}
	return p, true
}

func (h *Handler) ask(ctx context.Context, b *bot.Bot, chatID int64, ws *chat.Workspace, question string) {
	state := ws.Chat.State()
	if state.Loading {
		h.reply(ctx, b, chatID, busyText)
		return
	}
	if state.Status == domain.StatusClosed {
		h.reply(ctx, b, chatID, closedText)
		return
	}

	p, ok := h.profile(ctx, b, chatID, ws)
	if !ok {
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID)
	turn, err := ws.Chat.SendMessage(ctx, question, p.RequestBase())
	stopTyping()

	switch {
	case errors.Is(err, chat.ErrStaleResponse):
		slog.Debug("dropped stale answer", "owner", ws.Owner)
		return
	case err != nil:
		slog.Error("answer question", "error", err, "owner", ws.Owner)
		msg := ws.Chat.State().Error
		if msg == "" {
			msg = answerFailedText
		}
		h.reply(ctx, b, chatID, "❌ "+msg)
		if !errors.Is(err, domain.ErrValidation) {
			h.opsLogger.LogError(err, "answer question")
		}
		return
	}

	text, kb := renderTurn(turn)
	if text == "" {
		slog.Warn("turn not rendered", "error", domain.ErrUnrecognizedShape, "session_id", turn.SessionID)
		return
	}
	h.replyMarkdown(ctx, b, chatID, text, markup(kb))
}

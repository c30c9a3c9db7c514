package handler

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/chat"
	"github.com/set-night/coworker/internal/middleware"
	tg "github.com/set-night/coworker/internal/telegram"
)

var termsText = strings.Join([]string{
	"📜 *利用にあたって*",
	"• 本サービスはムラタ社員向けのヘルプチャットボットサービスです。",
	"• ムラタのエンタープライズID（MIAM ID）を持っている方が利用可能です。",
	"• 会社の就業規則および情報セキュリティ基準等を遵守してください。",
	"",
	"⚠️ *入力・出力に関する注意事項*",
	"• 「個人情報」、「他社の著作物及び権利物」は入力しないでください。",
	"• 出力を利用する前に、企業機密の含有、正確性、権利侵害・法令違反がないことを確認してください。",
	"",
	"🔐 *個人情報の取り扱い*",
	"• 利用履歴情報と社内メールアドレス・所属・氏名等を組み合わせ、サービス改善のため社内で利用します。",
	"• 同意いただけない場合は本サービスをご利用いただけません。",
}, "\n")

const welcomeText = "👋 *Murata Coworker* へようこそ。\n\n" +
	"質問を送信すると、社内FAQとドキュメントから回答します。\n\n" +
	"📋 *コマンド:*\n" +
	"/login <MIAM ID> — MIAM IDを登録\n" +
	"/new — 新しいチャットを開始\n" +
	"/clear — 現在のチャットを削除\n" +
	"/sessions — チャット履歴\n" +
	"/support — 有人窓口へ問い合わせ\n" +
	"/confidential — 機密情報モードの切り替え"

const (
	confidentialOnText  = "🔐 入力内容は機密情報扱いとなります。"
	confidentialOffText = "🚫 機密情報を入力しないモードです。"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}
	chatID := update.Message.Chat.ID

	if !ws.Store.TermsAccepted(ctx) {
		h.replyMarkdown(ctx, b, chatID, termsText, tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton("✅ 同意して利用を開始", "terms_accept")),
		))
		return
	}
	h.sendWelcome(ctx, b, chatID, ws)
}

func (h *Handler) sendWelcome(ctx context.Context, b *bot.Bot, chatID int64, ws *chat.Workspace) {
	text := welcomeText
	if ws.Store.MiamID(ctx) == "" {
		text += "\n\nまずは /login <MIAM ID> でMIAM IDを登録してください。"
	}
	h.replyMarkdown(ctx, b, chatID, text, nil)
}

func (h *Handler) handleTermsAccept(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	answerCallback(ctx, b, update, "")

	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}
	chatID, messageID := callbackTarget(update)

	ws.Store.AcceptTerms(ctx)
	if messageID != 0 {
		_, _ = b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:      chatID,
			MessageID:   messageID,
			ReplyMarkup: tg.InlineKeyboard(tg.ButtonRow(tg.InlineButton("✅ 同意済み", "cur"))),
		})
	}
	h.sendWelcome(ctx, b, chatID, ws)
}

func (h *Handler) handleConfidential(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	ws := middleware.GetWorkspace(ctx)
	if ws == nil {
		return
	}

	on := !ws.Store.Confidential(ctx)
	ws.Store.SetConfidential(ctx, on)
	h.reply(ctx, b, update.Message.Chat.ID, confidentialBanner(on))
}

func confidentialBanner(on bool) string {
	if on {
		return confidentialOnText
	}
	return confidentialOffText
}

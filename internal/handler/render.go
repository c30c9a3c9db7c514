package handler

import (
	"fmt"
	"path"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/chat"
	"github.com/set-night/coworker/internal/domain"
	tg "github.com/set-night/coworker/internal/telegram"
)

const (
	noIndexFallback  = "該当する情報が見つかりませんでした。"
	sourceButtonsRow = 5
)

// renderTurn formats an assistant turn as legacy Markdown. RAG answers get
// feedback and citation buttons. A turn of unknown shape renders as nothing.
func renderTurn(t domain.Turn) (string, *models.InlineKeyboardMarkup) {
	switch t.Shape() {
	case domain.ShapeNoIndex:
		msg := strings.TrimSpace(t.Message)
		if msg == "" {
			msg = noIndexFallback
		}
		return "ℹ️ " + tg.EscapeMarkdown(msg), nil
	case domain.ShapeFAQ:
		return renderFAQ(t.FAQ), nil
	case domain.ShapeRAG:
		text, cited := renderRAG(t.RAG)
		return text, turnKeyboard(t, cited)
	case domain.ShapeFAQAndRAG:
		text, cited := renderRAG(t.RAG)
		return renderFAQ(t.FAQ) + "\n\n" + text, turnKeyboard(t, cited)
	default:
		return "", nil
	}
}

func renderFAQ(faq *domain.FaqResult) string {
	var sb strings.Builder
	sb.WriteString("📚 *関連FAQ*")
	for i, item := range chat.FaqItems(faq) {
		sb.WriteString("\n\n")
		if item.Question != "" {
			fmt.Fprintf(&sb, "*Q%d.* %s\n", i+1, tg.EscapeMarkdown(item.Question))
		}
		sb.WriteString(item.Answer)
		if item.SourceFile != "" {
			fmt.Fprintf(&sb, "\n_%s_", tg.EscapeMarkdown(path.Base(item.SourceFile)))
		}
	}
	return sb.String()
}

// renderRAG returns the answer with its footnotes and the zero-based
// indexes of the cited sources, in order of first citation.
func renderRAG(rag *domain.RagResult) (string, []int) {
	var (
		sb    strings.Builder
		cited []int
		seen  = map[int]bool{}
	)
	sb.WriteString("💬 *回答*\n")
	for _, seg := range chat.ParseCitations(rag.Answer, rag.SourceFiles, rag.SourceTexts) {
		if seg.Citation == nil {
			sb.WriteString(seg.Text)
			continue
		}
		sb.WriteString(tg.EscapeMarkdown(seg.Text))
		if !seen[seg.Citation.Index] {
			seen[seg.Citation.Index] = true
			cited = append(cited, seg.Citation.Index)
		}
	}

	if len(cited) > 0 {
		sb.WriteString("\n\n📎 *参照*")
		for _, i := range cited {
			fmt.Fprintf(&sb, "\n\\[%d] %s", i+1, tg.EscapeMarkdown(path.Base(rag.SourceFiles[i])))
		}
	}
	return sb.String(), cited
}

// turnID is the short form of a turn's feedback key used in callback data.
func turnID(t domain.Turn) string {
	key := t.Key()
	if i := strings.LastIndexByte(key, '_'); i >= 0 {
		return key[i+1:]
	}
	return key
}

func turnKeyboard(t domain.Turn, cited []int) *models.InlineKeyboardMarkup {
	id := turnID(t)
	if id == "" {
		return nil
	}

	var feedback []models.InlineKeyboardButton
	switch t.Feedback {
	case domain.FeedbackGood:
		feedback = tg.ButtonRow(
			tg.InlineButton("👍 送信済み", "cur"),
			tg.InlineButton("↩️ 取り消す", "fb_undo_"+id),
		)
	case domain.FeedbackBad:
		feedback = tg.ButtonRow(
			tg.InlineButton("👎 送信済み", "cur"),
			tg.InlineButton("↩️ 取り消す", "fb_undo_"+id),
		)
	default:
		feedback = tg.ButtonRow(
			tg.InlineButton("👍", "fb_good_"+id),
			tg.InlineButton("👎", "fb_bad_"+id),
		)
	}

	rows := [][]models.InlineKeyboardButton{feedback}
	var row []models.InlineKeyboardButton
	for _, i := range cited {
		data := fmt.Sprintf("src_%s_%d", id, i+1)
		if !tg.FitsCallback(data) {
			continue
		}
		row = append(row, tg.InlineButton(fmt.Sprintf("📄 [%d]", i+1), data))
		if len(row) == sourceButtonsRow {
			rows = append(rows, row)
			row = nil
		}
	}
	rows = append(rows, row)
	return tg.InlineKeyboard(rows...)
}

// markup keeps a missing keyboard a nil interface.
func markup(kb *models.InlineKeyboardMarkup) models.ReplyMarkup {
	if kb == nil {
		return nil
	}
	return kb
}

package handler

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/middleware"
	"github.com/set-night/coworker/internal/service"
	tg "github.com/set-night/coworker/internal/telegram"
)

const excerptFallbackRunes = 600

// parseSource splits src_<id>_<n>; n is one-based.
func parseSource(data string) (id string, n int, ok bool) {
	rest := strings.TrimPrefix(data, "src_")
	i := strings.LastIndexByte(rest, '_')
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(rest[i+1:])
	if err != nil || n < 1 {
		return "", 0, false
	}
	return rest[:i], n, true
}

// handleSource previews a cited source: the chunk the answer was built from,
// highlighted in its document.
func (h *Handler) handleSource(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	id, n, ok := parseSource(update.CallbackQuery.Data)
	ws := middleware.GetWorkspace(ctx)
	if !ok || ws == nil {
		answerCallback(ctx, b, update, "")
		return
	}

	turn, found := ws.Chat.FindByID(id)
	if !found || turn.RAG == nil || n > len(turn.RAG.SourceFiles) {
		answerCallback(ctx, b, update, turnGoneText)
		return
	}
	answerCallback(ctx, b, update, "")

	file := turn.RAG.SourceFiles[n-1]
	var chunk string
	if n <= len(turn.RAG.SourceTexts) {
		chunk = turn.RAG.SourceTexts[n-1]
	}

	excerpt := h.highlight(ctx, file, chunk)
	chatID, _ := callbackTarget(update)
	h.replyMarkdown(ctx, b, chatID, fmt.Sprintf("📄 *[%d] %s*\n\n%s",
		n, tg.EscapeMarkdown(path.Base(file)), tg.EscapeMarkdown(excerpt)), nil)
}

// highlight asks the backend to highlight chunk within file. Without a
// usable answer the raw chunk is shown.
func (h *Handler) highlight(ctx context.Context, file, chunk string) string {
	resp, err := h.api.HighlightChunks(ctx, domain.ChunkHighlighterRequest{
		SourceFileList: []string{file},
		ChunkList:      []string{chunk},
	})
	if err == nil && len(resp.HTML) > 0 {
		excerpt, err := service.HighlightExcerpt(resp.HTML[0])
		if err == nil && excerpt != "" {
			return excerpt
		}
		if err != nil {
			slog.Warn("parse highlighted html", "error", err, "file", file)
		}
	} else if err != nil {
		slog.Warn("highlight chunk", "error", err, "file", file)
	}

	if r := []rune(strings.TrimSpace(chunk)); len(r) > excerptFallbackRunes {
		return string(r[:excerptFallbackRunes]) + "…"
	}
	return strings.TrimSpace(chunk)
}

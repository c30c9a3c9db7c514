package handler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/escalation"
	"github.com/set-night/coworker/internal/history"
)

const testKey = "2025-12-11T10:30:00+09:00_2b1f6a4e-7f0c-4c1e-9d55-3f2a8b7c6d10"

func ragTurn() domain.Turn {
	return domain.Turn{
		ConversationTime: testKey,
		RAG: &domain.RagResult{
			Answer:      "Restart the client [1]. See [2] and [1] again, not [7].",
			SourceFiles: []string{"manual/vpn_guide.pdf", "manual/net_contacts.pdf"},
			SourceTexts: []string{"chunk one", "chunk two"},
		},
	}
}

func TestRenderTurnShapes(t *testing.T) {
	text, kb := renderTurn(domain.Turn{NoIndexAvailable: true, Message: "no index for office_x"})
	assert.Equal(t, `ℹ️ no index for office\_x`, text)
	assert.Nil(t, kb)

	text, kb = renderTurn(domain.Turn{NoIndexAvailable: true})
	assert.Equal(t, "ℹ️ "+noIndexFallback, text)
	assert.Nil(t, kb)

	faq := &domain.FaqResult{
		Answer:       []string{"A1"},
		SourceFiles:  []string{"faq/vpn.md"},
		ChunkIDs:     []string{"c1"},
		SourceTexts:  []string{"質問: How? 回答: Like this."},
		MetadataList: []string{"{}"},
	}
	text, kb = renderTurn(domain.Turn{FAQ: faq})
	assert.Contains(t, text, "*Q1.* How?\nLike this.")
	assert.Contains(t, text, "_vpn.md_")
	assert.Nil(t, kb, "FAQ-only answers take no feedback")

	text, kb = renderTurn(domain.Turn{})
	assert.Empty(t, text)
	assert.Nil(t, kb)
}

func TestRenderRAGFootnotes(t *testing.T) {
	text, kb := renderTurn(ragTurn())

	assert.Contains(t, text, `Restart the client \[1]. See \[2] and \[1] again, not [7].`)
	assert.Contains(t, text, "\\[1] vpn\\_guide.pdf\n\\[2] net\\_contacts.pdf")
	assert.Equal(t, 1, strings.Count(text, "vpn\\_guide.pdf"), "each source is listed once")

	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	id := turnID(ragTurn())
	assert.Equal(t, "fb_good_"+id, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "fb_bad_"+id, kb.InlineKeyboard[0][1].CallbackData)
	assert.Equal(t, "src_"+id+"_1", kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "src_"+id+"_2", kb.InlineKeyboard[1][1].CallbackData)
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			assert.LessOrEqual(t, len(btn.CallbackData), 64)
		}
	}
}

func TestTurnKeyboardAfterFeedback(t *testing.T) {
	turn := ragTurn()
	turn.Feedback = domain.FeedbackBad
	_, kb := renderTurn(turn)
	require.NotNil(t, kb)
	assert.Equal(t, "cur", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "fb_undo_"+turnID(turn), kb.InlineKeyboard[0][1].CallbackData)
}

func TestTurnID(t *testing.T) {
	assert.Equal(t, "2b1f6a4e-7f0c-4c1e-9d55-3f2a8b7c6d10", turnID(ragTurn()))
	assert.Equal(t, "2025-12-11T01:30:00.000Z", turnID(domain.Turn{Timestamp: "2025-12-11T01:30:00.000Z"}))
	assert.Empty(t, turnID(domain.Turn{}))
}

func TestParseCallbacks(t *testing.T) {
	fb, id, ok := parseFeedback("fb_good_abc")
	assert.True(t, ok)
	assert.Equal(t, domain.FeedbackGood, fb)
	assert.Equal(t, "abc", id)

	fb, id, ok = parseFeedback("fb_undo_abc")
	assert.True(t, ok)
	assert.Equal(t, domain.FeedbackNone, fb)
	assert.Equal(t, "abc", id)

	_, _, ok = parseFeedback("fb_meh_abc")
	assert.False(t, ok)

	id, n, ok := parseSource("src_abc-def_3")
	assert.True(t, ok)
	assert.Equal(t, "abc-def", id)
	assert.Equal(t, 3, n)

	for _, bad := range []string{"src_", "src_abc", "src_abc_0", "src_abc_x", "src__1"} {
		_, _, ok := parseSource(bad)
		assert.False(t, ok, bad)
	}
}

func TestSessionsPage(t *testing.T) {
	var sessions []history.SessionSummary
	for i := 0; i < 7; i++ {
		sessions = append(sessions, history.SessionSummary{
			ID:     fmt.Sprintf("s%d", i),
			Title:  fmt.Sprintf("question %d", i),
			Status: domain.StatusOpen,
			Turns:  1,
		})
	}
	sessions[1].Status = domain.StatusClosed

	text, kb := sessionsPage(sessions, "s1", 0)
	assert.Contains(t, text, "(7件)")
	// 5 sessions, the new-chat row, pagination.
	require.Len(t, kb.InlineKeyboard, 7)
	assert.Equal(t, "🔒 question 1 ✅", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "new_session", kb.InlineKeyboard[5][0].CallbackData)
	assert.Equal(t, "sessions_page_1", kb.InlineKeyboard[6][1].CallbackData)

	_, kb = sessionsPage(sessions, "", 9)
	require.Len(t, kb.InlineKeyboard, 4, "clamped to the last page")
	assert.Equal(t, "question 5", kb.InlineKeyboard[0][0].Text)

	text, kb = sessionsPage(nil, "", 0)
	assert.Contains(t, text, "まだ履歴はありません")
	require.Len(t, kb.InlineKeyboard, 1)
}

func TestSupportView(t *testing.T) {
	counters := []domain.MannedCounter{
		{Name: "IT_desk", Description: "PCs"},
		{Name: "Network"},
	}

	text, kb := supportView(escalation.Snapshot{Step: escalation.StepList, Counters: counters})
	assert.Contains(t, text, `*1. IT\_desk*`)
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "esc_pick_1", kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "esc_cancel", kb.InlineKeyboard[2][0].CallbackData)

	sel := counters[1]
	text, kb = supportView(escalation.Snapshot{Step: escalation.StepConfirm, Selected: &sel, Message: "help me"})
	assert.Contains(t, text, "help me")
	assert.Equal(t, "esc_send", kb.InlineKeyboard[0][0].CallbackData)

	text, kb = supportView(escalation.Snapshot{Step: escalation.StepSending, Selected: &sel, Message: "help me"})
	assert.Contains(t, text, "送信中")
	assert.Nil(t, kb, "no buttons while the mail is in flight")

	text, kb = supportView(escalation.Snapshot{Step: escalation.StepSent, Selected: &sel, SentText: "ok"})
	assert.Contains(t, text, "ok")
	assert.Nil(t, kb)
}

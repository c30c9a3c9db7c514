package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/coworker/internal/domain"
)

func TestMockBackendAnswer(t *testing.T) {
	m := NewMockBackend()
	ctx := context.Background()

	first, err := m.Answer(ctx, domain.RagRequest{Query: "VPN"})
	require.NoError(t, err)
	assert.Equal(t, domain.ShapeFAQAndRAG, first.Shape())
	assert.True(t, strings.HasPrefix(first.SessionID, "mock-"))
	assert.True(t, first.FAQ.Aligned())
	assert.Equal(t, "VPN", first.ChatHistory[0].Content)

	next, err := m.Answer(ctx, domain.RagRequest{Query: "again", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, next.SessionID)
}

func TestMockBackendFixtures(t *testing.T) {
	m := NewMockBackend()
	ctx := context.Background()

	emp, err := m.GetEmployee(ctx, "anyone")
	require.NoError(t, err)
	assert.Equal(t, "MMC", emp.Employee.CompanyCode)

	counters, err := m.GetMannedCounters(ctx, domain.GetMannedCounterRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, counters.MannedCounterInfo)

	mail, err := m.SendMail(ctx, domain.SendMailRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, mail.SentText)

	raw, err := m.SubmitFeedback(ctx, domain.SubmitFeedbackRequest{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "submitted")

	raw, err = m.DeleteFeedback(ctx, domain.DeleteFeedbackRequest{})
	require.NoError(t, err)
	assert.Contains(t, string(raw), "deleted")

	hl, err := m.HighlightChunks(ctx, domain.ChunkHighlighterRequest{})
	require.NoError(t, err)
	require.Len(t, hl.HTML, 1)

	u, err := MockUser()
	require.NoError(t, err)
	assert.Equal(t, "taro.murata@example.com", u.UniqueName)
}

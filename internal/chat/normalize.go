package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/set-night/coworker/internal/domain"
)

const (
	timestampLayout        = "2006-01-02T15:04:05.000Z07:00"
	conversationTimeLayout = "2006-01-02T15:04:05-07:00"
)

var jst = time.FixedZone("JST", 9*60*60)

// NormalizeTurn adds the fields known only to the client: the literal query,
// the receipt time and, unless the backend already set one, a
// conversation_time of the form "<JST RFC 3339>_<uuid>".
func NormalizeTurn(raw domain.Turn, query string, now time.Time) domain.Turn {
	t := raw
	t.UserQuery = query
	t.Timestamp = now.UTC().Format(timestampLayout)
	if t.ConversationTime == "" {
		t.ConversationTime = NewConversationTime(now)
	}
	return t
}

func NewConversationTime(now time.Time) string {
	return now.In(jst).Format(conversationTimeLayout) + "_" + uuid.NewString()
}

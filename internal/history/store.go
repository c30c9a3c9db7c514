package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/storage"
)

const (
	messagePrefix  = "message_"
	titleMaxRunes  = 30
	untitledPrefix = "Chat "
)

// Store persists transcripts keyed by session. Persistence is best effort:
// storage failures and corrupt values are logged and degrade to "no history".
type Store struct {
	storage storage.Storage
}

func NewStore(s storage.Storage) *Store {
	return &Store{storage: s}
}

func messageKey(sessionID string) string {
	return messagePrefix + sessionID
}

// Save overwrites the transcript stored for sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, messages []domain.Turn, status domain.Status) {
	if sessionID == "" {
		slog.Warn("skip saving chat history without session id")
		return
	}
	if status == "" {
		status = domain.StatusOpen
	}
	if messages == nil {
		messages = []domain.Turn{}
	}
	data, err := json.Marshal(domain.Transcript{Messages: messages, Status: status})
	if err != nil {
		slog.Error("encode chat history", "error", err, "session_id", sessionID)
		return
	}
	if err := s.storage.Set(ctx, messageKey(sessionID), string(data)); err != nil {
		slog.Error("save chat history", "error", err, "session_id", sessionID)
	}
}

// Load returns the stored transcript, or an empty open transcript when the
// key is missing or unreadable. A bare JSON array is read as an open
// transcript.
func (s *Store) Load(ctx context.Context, sessionID string) domain.Transcript {
	empty := domain.Transcript{Messages: []domain.Turn{}, Status: domain.StatusOpen}

	raw, err := s.storage.Get(ctx, messageKey(sessionID))
	if errors.Is(err, storage.ErrNotFound) {
		return empty
	}
	if err != nil {
		slog.Error("load chat history", "error", err, "session_id", sessionID)
		return empty
	}

	tr, err := decodeTranscript([]byte(raw))
	if err != nil {
		slog.Error("decode chat history", "error", err, "session_id", sessionID)
		return empty
	}
	return tr
}

func decodeTranscript(data []byte) (domain.Transcript, error) {
	data = bytes.TrimSpace(data)
	var tr domain.Transcript

	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &tr.Messages); err != nil {
			return domain.Transcript{}, err
		}
	} else if err := json.Unmarshal(data, &tr); err != nil {
		return domain.Transcript{}, err
	}

	if tr.Messages == nil {
		tr.Messages = []domain.Turn{}
	}
	if tr.Status == "" {
		tr.Status = domain.StatusOpen
	}
	return tr, nil
}

// Delete removes the transcript. Deleting a missing session is a no-op.
func (s *Store) Delete(ctx context.Context, sessionID string) {
	if err := s.storage.Delete(ctx, messageKey(sessionID)); err != nil {
		slog.Error("delete chat history", "error", err, "session_id", sessionID)
	}
}

// ListSessionIDs returns the ids of every stored transcript in storage order.
func (s *Store) ListSessionIDs(ctx context.Context) []string {
	keys, err := s.storage.Keys(ctx, messagePrefix)
	if err != nil {
		slog.Error("list chat sessions", "error", err)
		return []string{}
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, strings.TrimPrefix(k, messagePrefix))
	}
	return ids
}

// UpdateFeedback sets the feedback of the turn whose key (conversation_time,
// else timestamp) matches. The whole transcript is loaded, changed and saved
// back. It returns the updated transcript.
func (s *Store) UpdateFeedback(ctx context.Context, sessionID, key string, fb domain.Feedback) (domain.Transcript, error) {
	tr := s.Load(ctx, sessionID)
	i := FindTurn(tr.Messages, key)
	if i < 0 {
		return tr, domain.ErrTurnNotFound
	}
	tr.Messages[i].Feedback = fb
	s.Save(ctx, sessionID, tr.Messages, tr.Status)
	return tr, nil
}

// FindTurn returns the index of the turn correlated with key, or -1.
func FindTurn(turns []domain.Turn, key string) int {
	if key == "" {
		return -1
	}
	for i := range turns {
		if turns[i].Key() == key {
			return i
		}
	}
	return -1
}

type SessionSummary struct {
	ID         string
	Title      string
	LastUpdate time.Time
	Status     domain.Status
	Turns      int
}

// Sessions summarizes every stored, non-empty transcript, most recently
// updated first.
func (s *Store) Sessions(ctx context.Context) []SessionSummary {
	ids := s.ListSessionIDs(ctx)
	out := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		tr := s.Load(ctx, id)
		if len(tr.Messages) == 0 {
			continue
		}
		out = append(out, summarize(id, tr))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdate.After(out[j].LastUpdate)
	})
	return out
}

func summarize(id string, tr domain.Transcript) SessionSummary {
	sum := SessionSummary{ID: id, Status: tr.Status, Turns: len(tr.Messages)}
	for i := len(tr.Messages) - 1; i >= 0; i-- {
		if ts, err := time.Parse(time.RFC3339Nano, tr.Messages[i].Timestamp); err == nil {
			sum.LastUpdate = ts
			break
		}
	}
	sum.Title = title(tr.Messages[0])
	if sum.Title == "" {
		sum.Title = untitledPrefix + id
	}
	return sum
}

func title(t domain.Turn) string {
	q := strings.TrimSpace(t.UserQuery)
	if q == "" {
		for _, m := range t.ChatHistory {
			if m.Role == domain.RoleUser {
				q = strings.TrimSpace(m.Content)
				break
			}
		}
	}
	q = strings.Join(strings.Fields(q), " ")
	r := []rune(q)
	if len(r) > titleMaxRunes {
		return string(r[:titleMaxRunes]) + "…"
	}
	return q
}

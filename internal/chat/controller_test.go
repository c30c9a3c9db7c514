package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/history"
	"github.com/set-night/coworker/internal/service"
	"github.com/set-night/coworker/internal/storage"
)

type answerFunc func(ctx context.Context, req domain.RagRequest) (domain.Turn, error)

func (f answerFunc) Answer(ctx context.Context, req domain.RagRequest) (domain.Turn, error) {
	return f(ctx, req)
}

var testContext = domain.RagRequest{Company: "MMC", Office: "MM00", MiamID: "u@x.com"}

func faqTurn(sessionID string) domain.Turn {
	return domain.Turn{
		SessionID:                  sessionID,
		ChatHistory:                []domain.ChatMessage{{Role: domain.RoleUser, Content: "Q1"}},
		BusinessSubCategories:      []string{},
		PriorityMannedCounterNames: []string{},
		FAQ: &domain.FaqResult{
			Answer:       []string{"a"},
			SourceFiles:  []string{"f"},
			ChunkIDs:     []string{"c"},
			SourceTexts:  []string{"t"},
			MetadataList: []string{"m"},
		},
	}
}

func newTestController(t *testing.T, a Answerer) (*Controller, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	return NewController(a, history.NewStore(mem)), mem
}

func TestSendMessageEndToEnd(t *testing.T) {
	var got domain.RagRequest
	c, mem := newTestController(t, answerFunc(func(_ context.Context, req domain.RagRequest) (domain.Turn, error) {
		got = req
		return faqTurn("s1"), nil
	}))

	turn, err := c.SendMessage(context.Background(), "Q1", testContext)
	require.NoError(t, err)

	st := c.State()
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "Q1", st.Messages[0].UserQuery)
	assert.Equal(t, "s1", st.SessionID)
	assert.False(t, st.Loading)
	assert.Empty(t, st.LastUserMessage)
	assert.Empty(t, st.Error)
	assert.Equal(t, turn, st.Messages[0])

	assert.Equal(t, "Q1", got.Query)
	assert.Equal(t, "ja", got.Language)
	assert.Empty(t, got.SessionID)

	raw, err := mem.Get(context.Background(), "message_s1")
	require.NoError(t, err)
	var tr domain.Transcript
	require.NoError(t, json.Unmarshal([]byte(raw), &tr))
	assert.Equal(t, domain.StatusOpen, tr.Status)
	require.Len(t, tr.Messages, 1)
	assert.Equal(t, turn.ConversationTime, tr.Messages[0].ConversationTime)
}

func TestSendMessageAdoptsServerSession(t *testing.T) {
	var calls []domain.RagRequest
	ids := []string{"s1", "s2"}
	c, _ := newTestController(t, answerFunc(func(_ context.Context, req domain.RagRequest) (domain.Turn, error) {
		calls = append(calls, req)
		return faqTurn(ids[len(calls)-1]), nil
	}))
	ctx := context.Background()

	_, err := c.SendMessage(ctx, "Q1", testContext)
	require.NoError(t, err)
	_, err = c.SendMessage(ctx, "Q2", testContext)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, "s1", calls[1].SessionID)
	assert.Equal(t, "s2", c.State().SessionID)
	assert.Len(t, c.State().Messages, 2)
}

func TestSendMessageOverrides(t *testing.T) {
	var got domain.RagRequest
	c, _ := newTestController(t, answerFunc(func(_ context.Context, req domain.RagRequest) (domain.Turn, error) {
		got = req
		return faqTurn("s1"), nil
	}))
	req := testContext
	req.Language = "en"
	req.SessionID = "explicit"

	_, err := c.SendMessage(context.Background(), "Q", req)
	require.NoError(t, err)
	assert.Equal(t, "en", got.Language)
	assert.Equal(t, "explicit", got.SessionID)
}

func TestSendMessageValidation(t *testing.T) {
	var calls atomic.Int32
	c, mem := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		calls.Add(1)
		return faqTurn("s1"), nil
	}))
	ctx := context.Background()

	_, err := c.SendMessage(ctx, "Q", domain.RagRequest{})
	require.ErrorIs(t, err, domain.ErrValidation)

	st := c.State()
	assert.Empty(t, st.Messages)
	assert.False(t, st.Loading)
	assert.Equal(t, "company, office, and miam_id are required", st.Error)

	_, err = c.SendMessage(ctx, "   ", testContext)
	require.ErrorIs(t, err, domain.ErrValidation)

	assert.Zero(t, calls.Load())
	keys, _ := mem.Keys(ctx, "")
	assert.Empty(t, keys)
}

func TestSendMessageFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend message", &service.APIError{StatusCode: 500, Message: "index unavailable"}, "index unavailable"},
		{"timeout", &service.APIError{Message: "Request timeout"}, "Request timeout"},
		{"transport", errors.New("connection refused"), "Failed to send message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mem := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
				return domain.Turn{}, tt.err
			}))

			_, err := c.SendMessage(context.Background(), "Q", testContext)
			require.ErrorIs(t, err, tt.err)

			st := c.State()
			assert.Equal(t, tt.want, st.Error)
			assert.False(t, st.Loading)
			assert.Empty(t, st.LastUserMessage)
			assert.Empty(t, st.Messages)
			keys, _ := mem.Keys(context.Background(), "message_")
			assert.Empty(t, keys)
		})
	}
}

func TestSendMessageClearsPreviousError(t *testing.T) {
	fail := true
	c, _ := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		if fail {
			return domain.Turn{}, errors.New("boom")
		}
		return faqTurn("s1"), nil
	}))
	ctx := context.Background()

	_, err := c.SendMessage(ctx, "Q", testContext)
	require.Error(t, err)
	assert.NotEmpty(t, c.State().Error)

	fail = false
	_, err = c.SendMessage(ctx, "Q", testContext)
	require.NoError(t, err)
	assert.Empty(t, c.State().Error)
}

func TestSendMessageLoadingState(t *testing.T) {
	var states []State
	release := make(chan struct{})
	entered := make(chan State, 1)
	var c *Controller
	c = NewController(answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		entered <- c.State()
		<-release
		return faqTurn("s1"), nil
	}), history.NewStore(storage.NewMemory()), WithOnChange(func(s State) { states = append(states, s) }))

	done := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(context.Background(), "Q1", testContext)
		done <- err
	}()

	inFlight := <-entered
	assert.True(t, inFlight.Loading)
	assert.Equal(t, "Q1", inFlight.LastUserMessage)
	close(release)
	require.NoError(t, <-done)

	require.Len(t, states, 2)
	assert.True(t, states[0].Loading)
	assert.False(t, states[1].Loading)
}

func TestStaleResponseAfterReset(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	c, mem := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		close(entered)
		<-release
		return faqTurn("late"), nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(context.Background(), "Q1", testContext)
		done <- err
	}()

	<-entered
	c.ResetSession()
	close(release)

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrStaleResponse)
	case <-time.After(5 * time.Second):
		t.Fatal("SendMessage did not return")
	}

	st := c.State()
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.SessionID)
	assert.False(t, st.Loading)
	_, err := mem.Get(context.Background(), "message_late")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResetLoadCloseClear(t *testing.T) {
	c, mem := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		return faqTurn("s1"), nil
	}))
	ctx := context.Background()

	_, err := c.SendMessage(ctx, "Q1", testContext)
	require.NoError(t, err)

	c.CloseChat(ctx)
	assert.Equal(t, domain.StatusClosed, c.State().Status)

	c.ResetSession()
	st := c.State()
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.SessionID)
	assert.Equal(t, domain.StatusOpen, st.Status)
	_, err = mem.Get(ctx, "message_s1")
	require.NoError(t, err, "reset must keep stored history")

	c.LoadSession(ctx, "s1")
	st = c.State()
	assert.Equal(t, "s1", st.SessionID)
	assert.Equal(t, domain.StatusClosed, st.Status)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, "Q1", st.Messages[0].UserQuery)

	c.ClearMessages(ctx)
	st = c.State()
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.SessionID)
	_, err = mem.Get(ctx, "message_s1")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCloseChatWithoutSession(t *testing.T) {
	c, mem := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		return faqTurn("s1"), nil
	}))
	c.CloseChat(context.Background())

	assert.Equal(t, domain.StatusClosed, c.State().Status)
	keys, _ := mem.Keys(context.Background(), "")
	assert.Empty(t, keys)
}

func TestClearError(t *testing.T) {
	c, _ := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		return domain.Turn{}, errors.New("boom")
	}))
	_, _ = c.SendMessage(context.Background(), "Q", testContext)
	require.NotEmpty(t, c.State().Error)

	c.ClearError()
	assert.Empty(t, c.State().Error)
}

func TestSetFeedbackByConversationTime(t *testing.T) {
	c, mem := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		return faqTurn("s1"), nil
	}))
	ctx := context.Background()

	var turns []domain.Turn
	for _, q := range []string{"Q1", "Q2", "Q3"} {
		turn, err := c.SendMessage(ctx, q, testContext)
		require.NoError(t, err)
		turns = append(turns, turn)
	}
	target := turns[1].ConversationTime

	store := history.NewStore(mem)
	require.NoError(t, c.SetFeedback(ctx, target, domain.FeedbackBad))

	for _, m := range store.Load(ctx, "s1").Messages {
		if m.ConversationTime == target {
			assert.Equal(t, domain.FeedbackBad, m.Feedback)
		} else {
			assert.Equal(t, domain.FeedbackNone, m.Feedback)
		}
	}
	assert.Equal(t, domain.FeedbackBad, c.State().Messages[1].Feedback)

	require.NoError(t, c.SetFeedback(ctx, target, domain.FeedbackNone))
	assert.Equal(t, domain.FeedbackNone, c.State().Messages[1].Feedback)

	require.ErrorIs(t, c.SetFeedback(ctx, "unknown", domain.FeedbackGood), domain.ErrTurnNotFound)
	require.ErrorIs(t, c.SetFeedback(ctx, target, domain.Feedback("meh")), domain.ErrInvalidFeedback)
}

// gatedStorage parks the next Set after arm until release is closed.
type gatedStorage struct {
	*storage.Memory
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStorage() *gatedStorage {
	return &gatedStorage{
		Memory:  storage.NewMemory(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedStorage) Set(ctx context.Context, key, value string) error {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.Memory.Set(ctx, key, value)
}

func TestSetFeedbackDuringSendKeepsNewTurn(t *testing.T) {
	gs := newGatedStorage()
	secondAnswer := make(chan struct{})
	var calls atomic.Int32
	c := NewController(answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		if calls.Add(1) == 2 {
			<-secondAnswer
		}
		return faqTurn("s1"), nil
	}), history.NewStore(gs))
	ctx := context.Background()

	first, err := c.SendMessage(ctx, "Q1", testContext)
	require.NoError(t, err)

	sendDone := make(chan error, 1)
	go func() {
		_, err := c.SendMessage(ctx, "Q2", testContext)
		sendDone <- err
	}()
	require.Eventually(t, func() bool { return c.State().Loading }, time.Second, 5*time.Millisecond)

	gs.armed.Store(true)
	fbDone := make(chan error, 1)
	go func() { fbDone <- c.SetFeedback(ctx, first.ConversationTime, domain.FeedbackGood) }()
	<-gs.entered

	// Readers are not blocked by a parked storage write.
	stateDone := make(chan State, 1)
	go func() { stateDone <- c.State() }()
	select {
	case st := <-stateDone:
		assert.True(t, st.Loading)
	case <-time.After(time.Second):
		t.Fatal("State blocked behind a storage write")
	}

	close(secondAnswer)
	time.Sleep(20 * time.Millisecond)
	close(gs.release)
	require.NoError(t, <-fbDone)
	require.NoError(t, <-sendDone)

	stored := history.NewStore(gs.Memory).Load(ctx, "s1").Messages
	require.Len(t, stored, 2)
	assert.Equal(t, "Q1", stored[0].UserQuery)
	assert.Equal(t, domain.FeedbackGood, stored[0].Feedback)
	assert.Equal(t, "Q2", stored[1].UserQuery)
	assert.Equal(t, c.State().Messages, stored)
}

func TestFindByID(t *testing.T) {
	c, _ := newTestController(t, answerFunc(func(context.Context, domain.RagRequest) (domain.Turn, error) {
		return faqTurn("s1"), nil
	}))
	turn, err := c.SendMessage(context.Background(), "Q", testContext)
	require.NoError(t, err)

	id := turn.ConversationTime[len(turn.ConversationTime)-36:]
	got, ok := c.FindByID(id)
	require.True(t, ok)
	assert.Equal(t, turn.ConversationTime, got.ConversationTime)

	_, ok = c.FindByID("missing")
	assert.False(t, ok)
}

func TestControllerWithHTTPBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/automated_answer", r.URL.Path)
		var req domain.RagRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		if req.Query == "fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"retrieval index is warming up"}`))
			return
		}
		body, _ := json.Marshal(faqTurn("s-http"))
		env, _ := json.Marshal(map[string]any{"statusCode": 200, "body": string(body)})
		_, _ = w.Write(env)
	}))
	defer srv.Close()

	c, _ := newTestController(t, service.NewBackend(srv.URL, "", 5*time.Second))
	ctx := context.Background()

	_, err := c.SendMessage(ctx, "Q1", testContext)
	require.NoError(t, err)
	assert.Equal(t, "s-http", c.State().SessionID)
	assert.Equal(t, domain.ShapeFAQ, c.State().Messages[0].Shape())

	_, err = c.SendMessage(ctx, "fail", testContext)
	require.Error(t, err)
	assert.Equal(t, "retrieval index is warming up", c.State().Error)
	assert.Len(t, c.State().Messages, 1)
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/set-night/coworker/internal/chat"
	"github.com/set-night/coworker/internal/config"
	"github.com/set-night/coworker/internal/escalation"
	"github.com/set-night/coworker/internal/middleware"
	"github.com/set-night/coworker/internal/service"
	"github.com/set-night/coworker/internal/storage"
)

const (
	testChatID    = int64(42)
	testMessageID = 100
	testMiamID    = "taro.murata@example.com"
)

type tgCall struct {
	Method string
	Params map[string]string
}

// fakeTelegram records Bot API calls and answers them with a minimal
// successful result.
type fakeTelegram struct {
	mu     sync.Mutex
	calls  []tgCall
	nextID int
}

func (f *fakeTelegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	params := map[string]string{}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(ct, "multipart/"):
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}
	case strings.HasPrefix(ct, "application/json"):
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		for k, v := range raw {
			if s, ok := v.(string); ok {
				params[k] = s
				continue
			}
			data, _ := json.Marshal(v)
			params[k] = string(data)
		}
	}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.calls = append(f.calls, tgCall{Method: method, Params: params})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage", "editMessageText", "editMessageReplyMarkup":
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%d,"type":"private"}}}`, id, testChatID)
	default:
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeTelegram) byMethod(method string) []tgCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// last returns the most recent call of method, failing the test if there is
// none.
func (f *fakeTelegram) last(t *testing.T, method string) tgCall {
	t.Helper()
	calls := f.byMethod(method)
	require.NotEmpty(t, calls, "no %s call", method)
	return calls[len(calls)-1]
}

func (f *fakeTelegram) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

type testEnv struct {
	h   *Handler
	b   *bot.Bot
	tg  *fakeTelegram
	ws  *chat.Workspace
	ctx context.Context
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	ft := &fakeTelegram{}
	srv := httptest.NewServer(ft)
	t.Cleanup(srv.Close)

	b, err := bot.New("123:TEST", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)

	api := service.NewMockBackend()
	reg := chat.NewRegistry(api, storage.NewMemoryProvider())
	h := New(Deps{
		Bot:      b,
		Cfg:      &config.Config{},
		API:      api,
		Profiles: service.NewProfileService(api),
		Flows:    escalation.NewFlows(),
	})

	ws := reg.Get(middleware.Owner(testChatID))
	return &testEnv{
		h:   h,
		b:   b,
		tg:  ft,
		ws:  ws,
		ctx: middleware.WithWorkspace(context.Background(), ws),
	}
}

func (e *testEnv) login() {
	e.ws.Store.AcceptTerms(e.ctx)
	e.ws.Store.SetMiamID(e.ctx, testMiamID)
}

// ask sends a question and requires that it added a turn.
func (e *testEnv) ask(t *testing.T, q string) {
	t.Helper()
	before := len(e.ws.Chat.State().Messages)
	e.h.HandleText(e.ctx, e.b, message(q))
	require.Len(t, e.ws.Chat.State().Messages, before+1)
}

func message(text string) *models.Update {
	return &models.Update{Message: &models.Message{
		ID:   1,
		Chat: models.Chat{ID: testChatID, Type: "private"},
		From: &models.User{ID: 7},
		Text: text,
	}}
}

func callback(data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:   "cb",
		From: models.User{ID: 7},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: testMessageID, Chat: models.Chat{ID: testChatID, Type: "private"}},
		},
	}}
}

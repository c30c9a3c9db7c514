package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/set-night/coworker/internal/domain"
	"github.com/set-night/coworker/internal/history"
	"github.com/set-night/coworker/internal/service"
)

const (
	DefaultLanguage = "ja"

	msgMissingContext = "company, office, and miam_id are required"
	msgMissingQuery   = "query is required"
	msgSendFailed     = "Failed to send message"
)

// ErrStaleResponse is returned by SendMessage when the conversation was
// reset, reloaded or cleared while the request was in flight. The response
// is dropped.
var ErrStaleResponse = errors.New("response belongs to a conversation that is no longer current")

type Answerer interface {
	Answer(ctx context.Context, req domain.RagRequest) (domain.Turn, error)
}

// State is a snapshot of the conversation shown to the user.
type State struct {
	Messages        []domain.Turn
	Loading         bool
	Error           string
	SessionID       string
	LastUserMessage string
	Status          domain.Status
}

func initialState() State {
	return State{Messages: []domain.Turn{}, Status: domain.StatusOpen}
}

type Option func(*Controller)

func WithLanguage(lang string) Option {
	return func(c *Controller) {
		if lang != "" {
			c.language = lang
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithOnChange registers fn to be called with a fresh snapshot after every
// state change.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// Controller owns one user's current conversation. The state mutex is never
// held across the backend call or a storage write, so concurrent sends are
// possible; responses are appended in the order they resolve.
//
// Every change that is persisted holds persistMu from the state change until
// the write returns, so stored transcripts are written in the same order the
// state changed. Lock order is persistMu, then mu.
type Controller struct {
	answerer Answerer
	store    *history.Store
	language string
	now      func() time.Time
	onChange func(State)

	persistMu sync.Mutex

	mu         sync.Mutex
	state      State
	generation uint64
}

func NewController(answerer Answerer, store *history.Store, opts ...Option) *Controller {
	c := &Controller{
		answerer: answerer,
		store:    store,
		language: DefaultLanguage,
		now:      time.Now,
		state:    initialState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() State {
	s := c.state
	s.Messages = append([]domain.Turn(nil), c.state.Messages...)
	return s
}

func (c *Controller) notify(s State) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

// SendMessage sends query with the identity and options in req. Company,
// Office and MiamID must be set. An empty SessionID is filled with the
// current one and an empty Language with the controller default.
func (c *Controller) SendMessage(ctx context.Context, query string, req domain.RagRequest) (domain.Turn, error) {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.state.LastUserMessage = query
	gen := c.generation

	if msg := validate(query, req); msg != "" {
		snap := c.fail(msg)
		c.mu.Unlock()
		c.notify(snap)
		return domain.Turn{}, fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}

	req.Query = query
	if req.SessionID == "" {
		req.SessionID = c.state.SessionID
	}
	if req.Language == "" {
		req.Language = c.language
	}
	loading := c.snapshot()
	c.mu.Unlock()
	c.notify(loading)

	raw, err := c.answerer.Answer(ctx, req)

	c.persistMu.Lock()
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.persistMu.Unlock()
		return domain.Turn{}, ErrStaleResponse
	}
	if err != nil {
		snap := c.fail(errorMessage(err))
		c.mu.Unlock()
		c.persistMu.Unlock()
		c.notify(snap)
		return domain.Turn{}, fmt.Errorf("send message: %w", err)
	}

	turn := NormalizeTurn(raw, query, c.now())
	c.state.Messages = append(c.snapshot().Messages, turn)
	if turn.SessionID != "" {
		c.state.SessionID = turn.SessionID
	}
	c.state.Loading = false
	c.state.LastUserMessage = ""
	snap := c.snapshot()
	c.mu.Unlock()

	c.store.Save(ctx, snap.SessionID, snap.Messages, snap.Status)
	c.persistMu.Unlock()

	c.notify(snap)
	return turn, nil
}

func validate(query string, req domain.RagRequest) string {
	if req.Company == "" || req.Office == "" || req.MiamID == "" {
		return msgMissingContext
	}
	if strings.TrimSpace(query) == "" {
		return msgMissingQuery
	}
	return ""
}

// fail records msg as the turn's error. c.mu must be held.
func (c *Controller) fail(msg string) State {
	c.state.Loading = false
	c.state.LastUserMessage = ""
	c.state.Error = msg
	return c.snapshot()
}

func errorMessage(err error) string {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return msgSendFailed
}

// ResetSession starts a new local conversation. Stored history is kept.
func (c *Controller) ResetSession() {
	c.mu.Lock()
	c.generation++
	c.state = initialState()
	snap := c.snapshot()
	c.mu.Unlock()
	c.notify(snap)
}

// LoadSession replaces the conversation with the stored transcript of
// sessionID.
func (c *Controller) LoadSession(ctx context.Context, sessionID string) {
	tr := c.store.Load(ctx, sessionID)

	c.mu.Lock()
	c.generation++
	c.state = State{
		Messages:  tr.Messages,
		SessionID: sessionID,
		Status:    tr.Status,
	}
	snap := c.snapshot()
	c.mu.Unlock()
	c.notify(snap)
}

// CloseChat marks the conversation closed and persists it.
func (c *Controller) CloseChat(ctx context.Context) {
	c.persistMu.Lock()
	c.mu.Lock()
	c.state.Status = domain.StatusClosed
	snap := c.snapshot()
	c.mu.Unlock()

	if snap.SessionID != "" {
		c.store.Save(ctx, snap.SessionID, snap.Messages, domain.StatusClosed)
	}
	c.persistMu.Unlock()
	c.notify(snap)
}

// ClearMessages deletes the stored transcript and starts over.
func (c *Controller) ClearMessages(ctx context.Context) {
	c.persistMu.Lock()
	c.mu.Lock()
	sessionID := c.state.SessionID
	c.generation++
	c.state = initialState()
	snap := c.snapshot()
	c.mu.Unlock()

	if sessionID != "" {
		c.store.Delete(ctx, sessionID)
	}
	c.persistMu.Unlock()
	c.notify(snap)
}

func (c *Controller) ClearError() {
	c.mu.Lock()
	c.state.Error = ""
	snap := c.snapshot()
	c.mu.Unlock()
	c.notify(snap)
}

// SetFeedback sets the feedback of the turn correlated with key in the
// current conversation and saves the conversation as held in memory.
func (c *Controller) SetFeedback(ctx context.Context, key string, fb domain.Feedback) error {
	if fb != domain.FeedbackNone && !fb.Valid() {
		return domain.ErrInvalidFeedback
	}

	c.persistMu.Lock()
	c.mu.Lock()
	i := history.FindTurn(c.state.Messages, key)
	if i < 0 {
		c.mu.Unlock()
		c.persistMu.Unlock()
		return domain.ErrTurnNotFound
	}
	msgs := c.snapshot().Messages
	msgs[i].Feedback = fb
	c.state.Messages = msgs
	snap := c.snapshot()
	c.mu.Unlock()

	if snap.SessionID != "" {
		c.store.Save(ctx, snap.SessionID, snap.Messages, snap.Status)
	}
	c.persistMu.Unlock()
	c.notify(snap)
	return nil
}

// FindByID returns the turn of the current conversation whose
// conversation_time ends with id.
func (c *Controller) FindByID(id string) (domain.Turn, bool) {
	if id == "" {
		return domain.Turn{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.state.Messages {
		if strings.HasSuffix(t.Key(), "_"+id) || t.Key() == id {
			return t, true
		}
	}
	return domain.Turn{}, false
}

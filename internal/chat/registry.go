package chat

import (
	"sync"

	"github.com/set-night/coworker/internal/history"
	"github.com/set-night/coworker/internal/storage"
)

// Workspace is one user's storage scope and live conversation.
type Workspace struct {
	Owner string
	Store *history.Store
	Chat  *Controller
}

// Registry creates workspaces lazily and keeps them for the life of the
// process.
type Registry struct {
	answerer Answerer
	provider storage.Provider
	opts     []Option

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewRegistry(answerer Answerer, provider storage.Provider, opts ...Option) *Registry {
	return &Registry{
		answerer:   answerer,
		provider:   provider,
		opts:       opts,
		workspaces: make(map[string]*Workspace),
	}
}

func (r *Registry) Get(owner string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[owner]; ok {
		return ws
	}
	store := history.NewStore(r.provider.Scope(owner))
	ws := &Workspace{
		Owner: owner,
		Store: store,
		Chat:  NewController(r.answerer, store, r.opts...),
	}
	r.workspaces[owner] = ws
	return ws
}

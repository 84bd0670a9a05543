package stream

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// Registry tracks live sessions by id. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers a new session in the connecting state with a fresh
// buffer built from cfg.
func (r *Registry) Create(cfg BufferConfig, language, profile string) *Session {
	s := &Session{
		ID:        xid.New().String(),
		CreatedAt: time.Now(),
		Language:  language,
		Profile:   profile,
		state:     StateConnecting,
		buffer:    NewBuffer(cfg),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session with the given id, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Remove drops the session from the registry. Removing an unknown id is
// a no-op, so teardown paths may race without harm.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

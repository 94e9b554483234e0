package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poagraph/poagraph/pkg/poa"
)

// Session is one live graph handle. The zero value is not usable; sessions
// are created through Registry.Create and identified by a uuid.
//
// Access to the graph goes through Read and Write. Writes are exclusive,
// reads are shared, and the cached topological order is rebuilt before a
// write lock is released so shared readers never touch graph internals.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	graph     *poa.Graph
	updatedAt time.Time
}

// Read calls fn with the session's graph under a shared lock. The graph
// must not be mutated or retained by fn.
func (s *Session) Read(fn func(g *poa.Graph) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.graph)
}

// Write calls fn with the session's graph under an exclusive lock. The
// topological order cache is rebuilt before the lock is released, even
// when fn fails partway, so later readers share it without writing.
func (s *Session) Write(fn func(g *poa.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.graph)
	s.graph.TopologicalOrder()
	if err == nil {
		s.updatedAt = time.Now().UTC()
	}
	return err
}

// Registry holds the live graph sessions, keyed by handle id. All methods
// are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create registers g under a fresh handle and returns the session. The
// caller hands over ownership of g; all further access goes through the
// session's Read and Write.
func (r *Registry) Create(g *poa.Graph) *Session {
	g.TopologicalOrder()
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		graph:     g,
		updatedAt: now,
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for id, or false if the handle is unknown or
// already destroyed.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

// Delete destroys the handle for id. Operations already running against
// the session finish; new lookups fail. Returns false if the handle is
// unknown.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// List returns all live sessions ordered by creation time, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

package server

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/voice-agent-builder/internal/session"
)

// entry guards one session. Steps hold mu for their whole run.
type entry struct {
	mu   sync.Mutex
	sess *session.Session
}

// registry holds the sessions served by this process. Sessions saved by an
// earlier process are loaded from the store on first access.
type registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	store   *session.Store
}

func newRegistry(store *session.Store) *registry {
	return &registry{
		entries: make(map[uuid.UUID]*entry),
		store:   store,
	}
}

func (r *registry) add(sess *session.Session) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &entry{sess: sess}
	r.entries[sess.ID] = e
	return e
}

func (r *registry) get(id uuid.UUID) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		return e, nil
	}
	if r.store == nil {
		return nil, &ErrSessionNotFound{SessionID: id}
	}

	sess, err := r.store.Load(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, &ErrSessionNotFound{SessionID: id}
		}
		return nil, err
	}
	e := &entry{sess: sess}
	r.entries[id] = e
	return e, nil
}

// acquire locks the session named by the request's {id}. It fails instead of
// waiting when another step holds the session. Callers must call release.
func (s *Server) acquire(r *http.Request) (*entry, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, &ErrValidation{Field: "id", Message: "invalid session ID"}
	}
	e, err := s.sessions.get(id)
	if err != nil {
		return nil, err
	}
	if !e.mu.TryLock() {
		return nil, &ErrSessionBusy{SessionID: id}
	}
	return e, nil
}

func (e *entry) release() {
	e.mu.Unlock()
}

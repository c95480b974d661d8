package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

var errNoStreaming = errors.New("response writer cannot stream")

// eventStream writes Server-Sent Events. Progress callbacks may fire from
// several crawl workers, so writes are serialized. After the first failed
// write (the client went away) every later event is dropped.
type eventStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	nextID  int
	err     error
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errNoStreaming
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &eventStream{w: w, flusher: flusher, nextID: 1}, nil
}

// Send writes one event with data encoded as JSON.
func (s *eventStream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.nextID, event, payload); err != nil {
		s.err = err
		return err
	}
	s.nextID++
	s.flusher.Flush()
	return nil
}

// Fail sends an "error" event.
func (s *eventStream) Fail(err error) {
	_ = s.Send("error", map[string]string{"error": err.Error()})
}

// Done sends the closing "complete" event for a step.
func (s *eventStream) Done(sessionID, step, status string) {
	_ = s.Send("complete", map[string]string{
		"session_id": sessionID,
		"step":       step,
		"status":     status,
	})
}

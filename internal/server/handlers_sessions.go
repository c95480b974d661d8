package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/pipeline/steps"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	SeedURL string `json:"seed_url" validate:"omitempty,url"`
}

// StepsStatus groups step names by state.
type StepsStatus struct {
	Completed []string `json:"completed"`
	Available []string `json:"available"`
	Blocked   []string `json:"blocked"`
}

// SessionResponse summarizes a session.
type SessionResponse struct {
	ID         string      `json:"id"`
	SeedURL    string      `json:"seed_url,omitempty"`
	CreatedAt  string      `json:"created_at"`
	Discovered int         `json:"discovered"`
	Failed     int         `json:"failed"`
	Scraped    int         `json:"scraped"`
	Documents  int         `json:"documents"`
	Processed  int         `json:"processed"`
	Combined   bool        `json:"combined"`
	Steps      StepsStatus `json:"steps"`
}

// TreeResponse is the site tree of a session.
type TreeResponse struct {
	SessionID string               `json:"session_id"`
	Pages     int                  `json:"pages"`
	Roots     []*crawling.TreeNode `json:"roots"`
	// Selected lists the URLs at or above min_importance, when requested.
	Selected []string `json:"selected,omitempty"`
}

func stepsStatus(sess *session.Session) StepsStatus {
	status := StepsStatus{
		Completed: []string{},
		Available: steps.GetAvailableSteps(sess),
		Blocked:   steps.GetBlockedSteps(sess),
	}
	for name := range steps.StepRegistry {
		if steps.Completed(sess, name) {
			status.Completed = append(status.Completed, name)
		}
	}
	sort.Strings(status.Completed)
	return status
}

func newSessionResponse(sess *session.Session) SessionResponse {
	resp := SessionResponse{
		ID:        sess.ID.String(),
		SeedURL:   sess.SeedURL,
		CreatedAt: sess.CreatedAt.Format(time.RFC3339),
		Scraped:   len(sess.SiteContent),
		Documents: len(sess.Documents),
		Processed: len(sess.Processed),
		Combined:  sess.Combined != nil,
		Steps:     stepsStatus(sess),
	}
	if sess.Discovery != nil {
		resp.Discovered = len(sess.Discovery.Discovered)
		resp.Failed = len(sess.Discovery.Failed)
	}
	return resp
}

// save writes the session file when the runner has a store.
func (s *Server) save(ctx context.Context, sess *session.Session) error {
	if s.runner.Store == nil {
		return nil
	}
	if _, err := s.runner.Store.Save(ctx, sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// handleCreateSession handles POST /sessions
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	sess := session.New(req.SeedURL)
	if err := s.save(r.Context(), sess); err != nil {
		s.writeError(w, err)
		return
	}
	s.sessions.add(sess)
	s.logger.Info("session created", "session", sess.ID, "seed", sess.SeedURL)

	jsonResponse(w, http.StatusCreated, newSessionResponse(sess))
}

// handleGetSession handles GET /sessions/{id}
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	e, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer e.release()

	jsonResponse(w, http.StatusOK, newSessionResponse(e.sess))
}

// handleTree handles GET /sessions/{id}/tree
func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	e, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer e.release()

	tree := e.sess.Tree()
	if tree == nil {
		s.writeError(w, &steps.DependencyError{Step: "tree", MissingDependencies: []string{pipeline.StepDiscover}})
		return
	}

	resp := TreeResponse{
		SessionID: e.sess.ID.String(),
		Pages:     tree.Len(),
		Roots:     tree.Roots,
	}
	if raw := r.URL.Query().Get("min_importance"); raw != "" {
		minImportance, err := strconv.Atoi(raw)
		if err != nil || minImportance < 1 || minImportance > 3 {
			s.writeError(w, &ErrValidation{Field: "min_importance", Message: "must be 1, 2 or 3"})
			return
		}
		resp.Selected = tree.Select(minImportance)
	}
	if resp.Roots == nil {
		resp.Roots = []*crawling.TreeNode{}
	}

	jsonResponse(w, http.StatusOK, resp)
}

// handleDiscoverStream handles POST /sessions/{id}/discover. Status messages
// are streamed as SSE "status" events, followed by a "discovery" summary and
// a "complete" event. Clients without streaming support get the JSON result.
func (s *Server) handleDiscoverStream(w http.ResponseWriter, r *http.Request) {
	e, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer e.release()

	var req DiscoverRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.SeedURL == "" && e.sess.SeedURL == "" {
		s.writeError(w, &ErrValidation{Field: "seed_url", Message: "required"})
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		result, err := s.runDiscover(r.Context(), e.sess, req, nil)
		if err != nil {
			s.writeError(w, err)
			return
		}
		jsonResponse(w, http.StatusOK, result)
		return
	}

	progress := func(event pipeline.ProgressEvent) {
		_ = stream.Send("status", event)
	}
	result, err := s.runDiscover(r.Context(), e.sess, req, progress)
	if err != nil {
		stream.Fail(err)
		stream.Done(e.sess.ID.String(), pipeline.StepDiscover, "failed")
		return
	}
	_ = stream.Send("discovery", result)
	stream.Done(e.sess.ID.String(), pipeline.StepDiscover, "completed")
}

// handleExport handles GET /sessions/{id}/export/{format}
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := pipeline.Format(r.PathValue("format"))
	if !validFormat(format) {
		s.writeError(w, &ErrValidation{Field: "format", Message: fmt.Sprintf("must be one of %v", pipeline.Formats())})
		return
	}

	e, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer e.release()

	doc := e.sess.Combined
	if doc == nil {
		s.writeError(w, &steps.DependencyError{Step: pipeline.StepExport, MissingDependencies: []string{pipeline.StepCombine}})
		return
	}

	data, err := pipeline.Render(doc, format)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(doc.AgentType, format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func validFormat(format pipeline.Format) bool {
	for _, f := range pipeline.Formats() {
		if f == format {
			return true
		}
	}
	return false
}

package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/pipeline/steps"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// DiscoverRequest is the body of the discover step. SeedURL defaults to the
// session's seed.
type DiscoverRequest struct {
	SeedURL  string `json:"seed_url" validate:"omitempty,url"`
	MaxPages int    `json:"max_pages" validate:"min=0"`
	Workers  int    `json:"workers" validate:"min=0,max=64"`
}

// ScrapeRequest is the body of the scrape step. Explicit URLs win over
// selection by importance.
type ScrapeRequest struct {
	URLs          []string `json:"urls" validate:"omitempty,dive,url"`
	MinImportance int      `json:"min_importance" validate:"omitempty,min=1,max=3"`
	MaxScrape     int      `json:"max_scrape" validate:"min=0"`
}

// DocumentRequest uploads one document. Content is plain text unless
// Encoding is "base64", which binary formats such as DOCX need.
type DocumentRequest struct {
	Filename string `json:"filename" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Encoding string `json:"encoding" validate:"omitempty,oneof=text base64"`
}

// ProcessRequest is the body of the process step.
type ProcessRequest struct {
	Mode      string `json:"mode" validate:"omitempty,oneof=all batch"`
	BatchSize int    `json:"batch_size" validate:"min=0,max=50"`
}

// CombineRequest is the body of the combine step.
type CombineRequest struct {
	AgentType string `json:"agent_type" validate:"omitempty,oneof=voice text"`
}

// DiscoveryResponse summarizes a discovery run.
type DiscoveryResponse struct {
	SeedURL    string         `json:"seed_url"`
	Discovered int            `json:"discovered"`
	Failed     []string       `json:"failed"`
	Truncated  bool           `json:"truncated,omitempty"`
	ByType     map[string]int `json:"by_type"`
	Artifact   string         `json:"artifact,omitempty"`
}

// ScrapeResponse summarizes a scrape run.
type ScrapeResponse struct {
	Requested int      `json:"requested"`
	Scraped   int      `json:"scraped"`
	Failed    []string `json:"failed"`
	Artifact  string   `json:"artifact,omitempty"`
}

// DocumentResponse describes an uploaded document.
type DocumentResponse struct {
	Filename   string `json:"filename"`
	Title      string `json:"title"`
	Format     string `json:"format"`
	Characters int    `json:"characters"`
	Documents  int    `json:"documents"`
	Artifact   string `json:"artifact,omitempty"`
}

// ProcessResponse summarizes a processing run.
type ProcessResponse struct {
	Items     int    `json:"items"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
	Artifact  string `json:"artifact,omitempty"`
}

// CombineResponse carries the combined knowledge document.
type CombineResponse struct {
	Document *knowledge.Document `json:"document"`
	Artifact string              `json:"artifact,omitempty"`
}

// ExportResponse lists the files written by the export step.
type ExportResponse struct {
	Files map[pipeline.Format]string `json:"files"`
}

// StepExecuteResponse represents the response for executing a step
type StepExecuteResponse struct {
	Step      string      `json:"step"`
	SessionID string      `json:"session_id"`
	Status    string      `json:"status"`
	Result    any         `json:"result"`
	Steps     StepsStatus `json:"steps"`
}

// stepFunc runs one step against a locked session, decoding its own body.
type stepFunc func(ctx context.Context, sess *session.Session, r *http.Request) (any, error)

func (s *Server) stepFuncs() map[string]stepFunc {
	return map[string]stepFunc{
		pipeline.StepDiscover: func(ctx context.Context, sess *session.Session, r *http.Request) (any, error) {
			var req DiscoverRequest
			if err := decodeRequest(r, &req); err != nil {
				return nil, err
			}
			return s.runDiscover(ctx, sess, req, nil)
		},
		pipeline.StepScrape:  s.runScrape,
		pipeline.StepIngest:  s.runIngest,
		pipeline.StepProcess: s.runProcess,
		pipeline.StepCombine: s.runCombine,
		pipeline.StepExport:  s.runExport,
	}
}

// executeStep checks the dependencies of step and runs it.
func (s *Server) executeStep(ctx context.Context, step string, sess *session.Session, r *http.Request) (any, error) {
	if err := steps.ValidateDependencies(sess, step); err != nil {
		return nil, err
	}
	run, ok := s.stepFuncs()[step]
	if !ok {
		return nil, &ErrValidation{Field: "step", Message: fmt.Sprintf("unknown step %q", step)}
	}
	s.logger.Info("running step", "session", sess.ID, "step", step)
	return run(ctx, sess, r)
}

// handleStep serves the dedicated route of one step.
func (s *Server) handleStep(step string) http.HandlerFunc {
	status := http.StatusOK
	if step == pipeline.StepIngest {
		status = http.StatusCreated
	}
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := s.acquire(r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		defer e.release()

		result, err := s.executeStep(r.Context(), step, e.sess, r)
		if err != nil {
			s.writeError(w, err)
			return
		}
		jsonResponse(w, status, result)
	}
}

// handleExecuteStep handles POST /sessions/{id}/steps/{step}
func (s *Server) handleExecuteStep(w http.ResponseWriter, r *http.Request) {
	step := r.PathValue("step")
	if _, ok := steps.StepRegistry[step]; !ok {
		s.writeError(w, &ErrValidation{Field: "step", Message: fmt.Sprintf("unknown step %q", step)})
		return
	}

	e, err := s.acquire(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer e.release()

	result, err := s.executeStep(r.Context(), step, e.sess, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, StepExecuteResponse{
		Step:      step,
		SessionID: e.sess.ID.String(),
		Status:    "completed",
		Result:    result,
		Steps:     stepsStatus(e.sess),
	})
}

func (s *Server) runDiscover(ctx context.Context, sess *session.Session, req DiscoverRequest, progress pipeline.ProgressCallback) (*DiscoveryResponse, error) {
	seed := req.SeedURL
	if seed == "" {
		seed = sess.SeedURL
	}
	if seed == "" {
		return nil, &ErrValidation{Field: "seed_url", Message: "required"}
	}

	runner := s.runner
	if req.MaxPages > 0 {
		runner.MaxPages = req.MaxPages
	}
	if req.Workers > 0 {
		runner.Workers = req.Workers
	}

	result, err := runner.Discover(ctx, seed, progress)
	if err != nil {
		if errors.Is(err, crawling.ErrInvalidSeed) || errors.Is(err, crawling.ErrNoSeed) {
			return nil, &ErrValidation{Field: "seed_url", Message: err.Error()}
		}
		return nil, err
	}

	sess.SetDiscovery(result)
	artifact, err := runner.Persist(ctx, sess.ID, db.StepDiscovery, result)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	resp := &DiscoveryResponse{
		SeedURL:    result.SeedURL,
		Discovered: len(result.Discovered),
		Failed:     result.Failed,
		Truncated:  result.Truncated,
		ByType:     make(map[string]int),
		Artifact:   artifact,
	}
	if resp.Failed == nil {
		resp.Failed = []string{}
	}
	for _, page := range result.Discovered {
		resp.ByType[string(page.Type)]++
	}
	return resp, nil
}

func (s *Server) runScrape(ctx context.Context, sess *session.Session, r *http.Request) (any, error) {
	var req ScrapeRequest
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}

	urls := req.URLs
	if len(urls) == 0 {
		minImportance := req.MinImportance
		if minImportance == 0 {
			minImportance = 1
		}
		urls = pipeline.Select(sess.Discovery, minImportance, req.MaxScrape)
	}
	if len(urls) == 0 {
		return nil, &ErrValidation{Field: "urls", Message: "no pages selected"}
	}

	content, err := s.runner.Scrape(ctx, urls, nil)
	if err != nil {
		return nil, err
	}

	sess.SiteContent = content
	sess.Processed = nil
	sess.Combined = nil

	artifact, err := s.runner.Persist(ctx, sess.ID, db.StepScrapedContent, content)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	resp := &ScrapeResponse{
		Requested: len(urls),
		Scraped:   len(content),
		Failed:    []string{},
		Artifact:  artifact,
	}
	for _, u := range urls {
		normalized, err := crawling.Normalize(u)
		if _, ok := content[normalized]; err != nil || !ok {
			resp.Failed = append(resp.Failed, u)
		}
	}
	return resp, nil
}

func (s *Server) runIngest(ctx context.Context, sess *session.Session, r *http.Request) (any, error) {
	var req DocumentRequest
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}

	data := []byte(req.Content)
	if req.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		if err != nil {
			return nil, &ErrValidation{Field: "content", Message: "invalid base64"}
		}
		data = decoded
	}

	name := filepath.Base(req.Filename)
	doc, err := ingestion.ParseBytes(name, data)
	if err != nil {
		var unsupported *ingestion.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return nil, &ErrValidation{Field: "filename", Message: err.Error()}
		}
		return nil, err
	}

	sess.AddDocuments(ingestion.Documents{name: *doc})

	artifact, err := s.runner.Persist(ctx, sess.ID, db.StepDocumentContent, sess.Documents)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	return &DocumentResponse{
		Filename:   name,
		Title:      doc.Metadata.Title,
		Format:     string(doc.Metadata.Format),
		Characters: len(doc.Content),
		Documents:  len(sess.Documents),
		Artifact:   artifact,
	}, nil
}

func (s *Server) runProcess(ctx context.Context, sess *session.Session, r *http.Request) (any, error) {
	var req ProcessRequest
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}

	mode := knowledge.ModeAll
	if req.Mode != "" {
		mode = knowledge.Mode(req.Mode)
	}
	runner := s.runner
	if req.BatchSize > 0 {
		runner.BatchSize = req.BatchSize
	}

	items := sess.ContentItems()
	results, err := runner.Process(ctx, items, mode, nil)
	if err != nil {
		return nil, err
	}

	sess.Processed = results
	sess.Combined = nil

	artifact, err := runner.Persist(ctx, sess.ID, db.StepProcessedContent, results)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	return &ProcessResponse{
		Items:     len(items),
		Processed: len(results),
		Failed:    len(items) - len(results),
		Artifact:  artifact,
	}, nil
}

func (s *Server) runCombine(ctx context.Context, sess *session.Session, r *http.Request) (any, error) {
	var req CombineRequest
	if err := decodeRequest(r, &req); err != nil {
		return nil, err
	}

	agent := knowledge.AgentVoice
	if req.AgentType != "" {
		agent = knowledge.AgentType(req.AgentType)
	}

	doc, err := s.runner.Combine(ctx, sess.Processed, agent)
	if err != nil {
		return nil, err
	}
	sess.Combined = doc

	var artifact string
	if s.runner.Store != nil {
		artifact, err = s.runner.Store.SaveArtifact(ctx, sess.ID, db.StepKnowledge, pipeline.KnowledgePrefix(agent), doc)
		if err != nil {
			return nil, err
		}
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	return &CombineResponse{Document: doc, Artifact: artifact}, nil
}

func (s *Server) runExport(ctx context.Context, sess *session.Session, _ *http.Request) (any, error) {
	if s.runner.Store == nil {
		return nil, &ErrValidation{Field: "step", Message: "export needs a data directory; use GET /sessions/{id}/export/{format}"}
	}
	files, err := s.runner.Export(ctx, sess.ID, sess.Combined)
	if err != nil {
		return nil, err
	}
	return &ExportResponse{Files: files}, nil
}

// exportFilename names the download of doc in format.
func exportFilename(agent knowledge.AgentType, format pipeline.Format) string {
	switch format {
	case pipeline.FormatText:
		return "knowledge_base.txt"
	case pipeline.FormatElevenLabsJSON:
		return "elevenlabs_knowledge_base.json"
	case pipeline.FormatElevenLabsText:
		return "elevenlabs_knowledge_base.txt"
	default:
		return pipeline.KnowledgePrefix(agent) + ".json"
	}
}

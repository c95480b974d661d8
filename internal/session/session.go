// Package session holds the state of one knowledge-base build and persists
// its artifacts as timestamped JSON files, optionally mirrored to Postgres.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
)

// Session is the explicit state of one build. Each field is filled by the
// step that produces it and is nil or empty until then.
type Session struct {
	ID          uuid.UUID                             `json:"id"`
	CreatedAt   time.Time                             `json:"created_at"`
	SeedURL     string                                `json:"seed_url,omitempty"`
	Discovery   *crawling.DiscoveryResult             `json:"discovery,omitempty"`
	SiteContent crawling.ScrapedContent               `json:"site_content,omitempty"`
	Documents   ingestion.Documents                   `json:"documents,omitempty"`
	Processed   map[string]knowledge.ProcessedContent `json:"processed,omitempty"`
	Combined    *knowledge.Document                   `json:"combined,omitempty"`
}

// New returns an empty session for seedURL.
func New(seedURL string) *Session {
	return &Session{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		SeedURL:   seedURL,
	}
}

// Tree builds the site tree from the discovery result, or returns nil when
// discovery has not run.
func (s *Session) Tree() *crawling.Tree {
	if s.Discovery == nil {
		return nil
	}
	return crawling.BuildTree(s.Discovery.Discovered)
}

// SetDiscovery records a discovery run and clears everything derived from
// an earlier one.
func (s *Session) SetDiscovery(result *crawling.DiscoveryResult) {
	s.Discovery = result
	if result != nil && result.SeedURL != "" {
		s.SeedURL = result.SeedURL
	}
	s.SiteContent = nil
	s.Processed = nil
	s.Combined = nil
}

// AddDocuments merges docs into the session's documents. Later uploads
// replace earlier ones with the same filename.
func (s *Session) AddDocuments(docs ingestion.Documents) {
	if len(docs) == 0 {
		return
	}
	if s.Documents == nil {
		s.Documents = make(ingestion.Documents, len(docs))
	}
	for name, doc := range docs {
		s.Documents[name] = doc
	}
}

// ContentItems returns the site content and documents merged for processing.
func (s *Session) ContentItems() map[string]knowledge.ContentItem {
	return knowledge.Merge(knowledge.FromScraped(s.SiteContent), knowledge.FromDocuments(s.Documents), nil)
}

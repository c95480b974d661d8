package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/db"
)

// ErrNotFound is returned by Load when no session file exists.
var ErrNotFound = errors.New("session not found")

// timestampLayout is appended to artifact file names.
const timestampLayout = "20060102_150405"

const sessionsDir = "sessions"

// Artifact categories recorded alongside mirrored artifacts.
const (
	CategoryDiscovery = "discovery"
	CategoryContent   = "content"
	CategoryKnowledge = "knowledge"
	CategoryExport    = "export"
)

var stepCategories = map[string]string{
	db.StepDiscovery:        CategoryDiscovery,
	db.StepScrapedContent:   CategoryContent,
	db.StepDocumentContent:  CategoryContent,
	db.StepProcessedContent: CategoryKnowledge,
	db.StepKnowledge:        CategoryKnowledge,
	db.StepPlainText:        CategoryExport,
	db.StepElevenLabsJSON:   CategoryExport,
	db.StepElevenLabsText:   CategoryExport,
}

// Mirror receives copies of sessions and artifacts. *db.DB satisfies it.
type Mirror interface {
	SaveSession(ctx context.Context, s *db.Session) error
	SaveArtifact(ctx context.Context, sessionID uuid.UUID, step, category string, content any) error
	SaveTextArtifact(ctx context.Context, sessionID uuid.UUID, step, category, text string) error
}

// Store writes artifacts under Dir. Mirror failures are logged, never returned.
type Store struct {
	Dir    string
	Mirror Mirror

	logger *log.Logger
	now    func() time.Time
}

// NewStore returns a Store rooted at dir. mirror may be nil.
func NewStore(dir string, mirror Mirror, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{Dir: dir, Mirror: mirror, logger: logger, now: time.Now}
}

func (s *Store) stampedPath(prefix, ext string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s%s", prefix, s.now().Format(timestampLayout), ext))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SaveJSON writes v as indented JSON to <Dir>/<prefix>_<YYYYMMDD_HHMMSS>.json
// and returns the path.
func (s *Store) SaveJSON(prefix string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", prefix, err)
	}
	path := s.stampedPath(prefix, ".json")
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// SaveText writes text to <Dir>/<prefix>_<YYYYMMDD_HHMMSS><ext> and returns the path.
func (s *Store) SaveText(prefix, ext, text string) (string, error) {
	path := s.stampedPath(prefix, ext)
	if err := writeFile(path, []byte(text)); err != nil {
		return "", err
	}
	return path, nil
}

// SaveArtifact writes v with SaveJSON under prefix and mirrors it as step
// of the session.
func (s *Store) SaveArtifact(ctx context.Context, sessionID uuid.UUID, step, prefix string, v any) (string, error) {
	path, err := s.SaveJSON(prefix, v)
	if err != nil {
		return "", err
	}
	if s.Mirror != nil {
		if err := s.Mirror.SaveArtifact(ctx, sessionID, step, stepCategories[step], v); err != nil {
			s.logger.Warn("failed to mirror artifact", "step", step, "err", err)
		}
	}
	return path, nil
}

// SaveTextArtifact writes text with SaveText and mirrors it as step of the session.
func (s *Store) SaveTextArtifact(ctx context.Context, sessionID uuid.UUID, step, prefix, ext, text string) (string, error) {
	path, err := s.SaveText(prefix, ext, text)
	if err != nil {
		return "", err
	}
	if s.Mirror != nil {
		if err := s.Mirror.SaveTextArtifact(ctx, sessionID, step, stepCategories[step], text); err != nil {
			s.logger.Warn("failed to mirror text artifact", "step", step, "err", err)
		}
	}
	return path, nil
}

func (s *Store) sessionPath(id uuid.UUID) string {
	return filepath.Join(s.Dir, sessionsDir, id.String()+".json")
}

// Save writes the whole session to <Dir>/sessions/<id>.json.
func (s *Store) Save(ctx context.Context, sess *Session) (string, error) {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}
	path := s.sessionPath(sess.ID)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	if s.Mirror != nil {
		record := &db.Session{
			ID:        sess.ID,
			SeedURL:   sess.SeedURL,
			Status:    db.SessionStatusOpen,
			CreatedAt: sess.CreatedAt,
		}
		if sess.Combined != nil {
			record.Status = db.SessionStatusCompleted
			now := s.now().UTC()
			record.CompletedAt = &now
		}
		if err := s.Mirror.SaveSession(ctx, record); err != nil {
			s.logger.Warn("failed to mirror session", "session", sess.ID, "err", err)
		}
	}
	return path, nil
}

// Load reads a session saved by Save.
func (s *Store) Load(id uuid.UUID) (*Session, error) {
	var sess Session
	if err := LoadJSON(s.sessionPath(id), &sess); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &sess, nil
}

// List returns the IDs of all saved sessions.
func (s *Store) List() ([]uuid.UUID, error) {
	entries, err := os.ReadDir(filepath.Join(s.Dir, sessionsDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var ids []uuid.UUID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id, err := uuid.Parse(name[:len(name)-len(".json")])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadJSON decodes the JSON file at path into v.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// LoadScraped loads a file written from a crawling.ScrapedContent.
func LoadScraped(path string) (crawling.ScrapedContent, error) {
	var content crawling.ScrapedContent
	if err := LoadJSON(path, &content); err != nil {
		return nil, err
	}
	return content, nil
}

// LoadDiscovery loads a file written from a crawling.DiscoveryResult.
func LoadDiscovery(path string) (*crawling.DiscoveryResult, error) {
	var result crawling.DiscoveryResult
	if err := LoadJSON(path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

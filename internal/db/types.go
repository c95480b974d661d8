package db

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Session is the database copy of a knowledge-base build session.
type Session struct {
	ID          uuid.UUID  `json:"id"`
	SeedURL     string     `json:"seed_url"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

const (
	SessionStatusOpen      = "open"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// Artifact steps. JSON steps carry content, exports carry text_content.
const (
	StepDiscovery        = "discovered_urls"
	StepScrapedContent   = "scraped_content"
	StepDocumentContent  = "document_content"
	StepProcessedContent = "processed_content"
	StepKnowledge        = "knowledge_document"
	StepPlainText        = "knowledge_base"
	StepElevenLabsJSON   = "elevenlabs_json"
	StepElevenLabsText   = "elevenlabs_knowledge_base"
)

// ArtifactSummary lists an artifact without its payload.
type ArtifactSummary struct {
	ID        uuid.UUID `json:"id"`
	Step      string    `json:"step"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	HasJSON   bool      `json:"has_json"`
	HasText   bool      `json:"has_text"`
}

// Page cache outcomes stored in crawled_pages.status.
const (
	PageStatusOK      = "ok"
	PageStatusMissing = "missing" // 404, 410, 451
	PageStatusBlocked = "blocked" // 401, 403, 429
	PageStatusFailed  = "failed"
)

// DefaultPageCacheTTL is how long a fetched page is served from the cache.
const DefaultPageCacheTTL = 7 * 24 * time.Hour

// Failure backoff: BaseBackoff * 5^(attempts-1), capped at MaxBackoff.
const (
	BaseBackoff = time.Minute
	MaxBackoff  = 2 * time.Hour
)

// CachedPage is one row of the page cache. Failed fetches are stored too,
// with Body nil, so a URL in backoff is not requested again.
type CachedPage struct {
	ID          uuid.UUID
	URL         string
	PageType    string
	Body        *string
	ContentHash string
	HTTPStatus  int
	Status      string
	LastError   string
	Permanent   bool
	Attempts    int
	RetryAfter  *time.Time
	FetchedAt   time.Time
	ExpiresAt   *time.Time
}

// PageStatus maps an HTTP status code to a cache status. Zero means the
// request never got a response.
func PageStatus(code int) string {
	switch code {
	case http.StatusNotFound, http.StatusGone, http.StatusUnavailableForLegalReasons:
		return PageStatusMissing
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return PageStatusBlocked
	}
	if code >= 200 && code < 300 {
		return PageStatusOK
	}
	return PageStatusFailed
}

// IsPermanentHTTPStatus reports whether retrying code can never succeed.
func IsPermanentHTTPStatus(code int) bool {
	return PageStatus(code) == PageStatusMissing
}

// Backoff returns the wait before retrying after the given number of
// consecutive failures.
func Backoff(attempts int) time.Duration {
	d := BaseBackoff
	for i := 1; i < attempts && d < MaxBackoff; i++ {
		d *= 5
	}
	return min(d, MaxBackoff)
}

// HashContent returns the hex SHA-256 of a page body.
func HashContent(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Servable reports whether the page can be returned from the cache at now.
func (p *CachedPage) Servable(maxAge time.Duration, now time.Time) bool {
	if p.Status != PageStatusOK || p.Body == nil {
		return false
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return false
	}
	return now.Sub(p.FetchedAt) < maxAge
}

// RetryBlocked reports whether a failed page must not be fetched at now.
func (p *CachedPage) RetryBlocked(now time.Time) bool {
	if p.Status == PageStatusOK {
		return false
	}
	if p.Permanent {
		return true
	}
	return p.RetryAfter != nil && now.Before(*p.RetryAfter)
}

package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jonathan/voice-agent-builder/internal/llm"
	"github.com/jonathan/voice-agent-builder/internal/prompts"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
)

// Combiner merges processed content into one knowledge base document.
type Combiner struct {
	client llm.Client
	logger *log.Logger
	now    func() time.Time
}

// NewCombiner returns a Combiner backed by client, wrapped with the default
// retry policy unless it already is a *llm.RetryClient.
func NewCombiner(client llm.Client, logger *log.Logger) *Combiner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Combiner{
		client: withRetry(client, logger),
		logger: logger,
		now:    time.Now,
	}
}

// Combine builds the knowledge document for agent from the successfully
// processed entries. It returns ErrNoValidContent when there are none.
func (c *Combiner) Combine(ctx context.Context, processed map[string]ProcessedContent, agent AgentType) (*Document, error) {
	if !agent.Valid() {
		return nil, fmt.Errorf("unknown agent type %q", agent)
	}

	valid := Successful(processed)
	if len(valid) == 0 {
		c.logger.Warn("no valid content to combine")
		return nil, ErrNoValidContent
	}

	prompt, err := combinePrompt(valid, agent)
	if err != nil {
		return nil, err
	}

	c.logger.Info("combining content", "agent", agent, "sources", len(valid))
	raw, err := c.client.GenerateJSON(ctx, prompt, llm.TierAdvanced)
	if err != nil {
		return nil, &ProcessingError{Message: "language model request failed", Cause: err}
	}
	raw = llm.CleanJSONBlock(raw)

	if err := schemas.ValidateBytes(schemas.KnowledgeDocument, []byte(raw)); err != nil {
		return nil, &ProcessingError{Message: "invalid knowledge document", Cause: err}
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ProcessingError{Message: "failed to parse knowledge document", Cause: err}
	}

	doc.Processed = true
	doc.AgentType = agent
	doc.ProcessedAt = c.now().Format(time.RFC3339)
	doc.SourceCount = len(valid)

	c.logger.Info("combined content", "title", doc.Title, "sections", len(doc.Sections))
	return &doc, nil
}

func combinePrompt(valid map[string]ProcessedContent, agent AgentType) (string, error) {
	content, err := json.Marshal(valid)
	if err != nil {
		return "", fmt.Errorf("failed to marshal processed content: %w", err)
	}

	guidance := "combine_text"
	if agent == AgentVoice {
		guidance = "combine_voice"
	}

	system := prompts.MustGet(promptFile, "combine_system_base") + "\n\n" + prompts.MustGet(promptFile, guidance)
	user := prompts.Format(prompts.MustGet(promptFile, "combine_user"), map[string]string{
		"OutputType": string(agent),
		"Content":    string(content),
	})
	return system + "\n\n" + user, nil
}

package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

func TestStepRegistry(t *testing.T) {
	expectedSteps := []string{"discover", "scrape", "ingest", "process", "combine", "export"}

	require.Len(t, StepRegistry, len(expectedSteps))
	for _, stepName := range expectedSteps {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.NotEmpty(t, def.Category)
	}
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{Step: "combine", MissingDependencies: []string{"process"}}
	assert.Equal(t, "missing dependencies: [process]", err.Error())

	err = &DependencyError{Step: "process", OneOf: []string{"scrape", "ingest"}}
	assert.Equal(t, "process needs one of: [scrape ingest]", err.Error())
}

func TestValidateDependencies_UnknownStep(t *testing.T) {
	err := ValidateDependencies(session.New(""), "unknown_step")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestValidateDependencies_Progression(t *testing.T) {
	sess := session.New("https://shop.example.com")

	assert.Equal(t, []string{"discover", "ingest"}, GetAvailableSteps(sess))
	assert.Equal(t, []string{"combine", "export", "process", "scrape"}, GetBlockedSteps(sess))

	var depErr *DependencyError
	require.ErrorAs(t, ValidateDependencies(sess, "process"), &depErr)
	assert.Equal(t, []string{"scrape", "ingest"}, depErr.OneOf)

	sess.SetDiscovery(&crawling.DiscoveryResult{SeedURL: "https://shop.example.com"})
	assert.NoError(t, ValidateDependencies(sess, "scrape"))
	assert.Error(t, ValidateDependencies(sess, "process"))

	sess.AddDocuments(ingestion.Documents{"faq.txt": {Content: "Q&A"}})
	assert.NoError(t, ValidateDependencies(sess, "process"))

	require.ErrorAs(t, ValidateDependencies(sess, "combine"), &depErr)
	assert.Equal(t, []string{"process"}, depErr.MissingDependencies)

	// Failed results do not count as processed.
	sess.Processed = map[string]knowledge.ProcessedContent{"faq.txt": {ContentID: "faq.txt", Error: "boom"}}
	assert.Error(t, ValidateDependencies(sess, "combine"))

	sess.Processed["faq.txt"] = knowledge.ProcessedContent{ContentID: "faq.txt", Processed: true}
	assert.NoError(t, ValidateDependencies(sess, "combine"))
	assert.Error(t, ValidateDependencies(sess, "export"))

	sess.Combined = &knowledge.Document{Title: "KB", Processed: true}
	assert.NoError(t, ValidateDependencies(sess, "export"))
	assert.Empty(t, GetBlockedSteps(sess))
}

func TestCompleted_NilSession(t *testing.T) {
	for stepName := range StepRegistry {
		assert.False(t, Completed(nil, stepName))
	}
}

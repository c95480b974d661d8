package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/voice-agent-builder/internal/config"
	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/server"
)

// resetFlags restores every flag to its default so commands can run again
// in the same process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, child := range cmd.Commands() {
		resetFlags(child)
	}
}

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvDataDir, "")

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func writeJSON(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func savedPaths(output string) []string {
	var paths []string
	for _, line := range strings.Split(output, "\n") {
		if path, ok := strings.CutPrefix(line, "Saved: "); ok {
			paths = append(paths, path)
		}
	}
	return paths
}

func testDocument() knowledge.Document {
	return knowledge.Document{
		Title:       "Acme Support",
		Description: "Answers for Acme customers",
		Sections: []knowledge.DocumentSection{{
			Heading: "Billing",
			Subheadings: []knowledge.Subsection{
				{Heading: "Refunds", Content: "Refunds take five business days."},
			},
		}},
		SystemPrompt: "You are the Acme support agent.",
		Processed:    true,
		AgentType:    knowledge.AgentVoice,
		SourceCount:  1,
	}
}

func TestIngestPaths(t *testing.T) {
	got := ingestPaths([]string{"docs", " "}, []string{"faq.md", "docs"}, []string{"extra.txt"})
	assert.Equal(t, []string{"docs", "faq.md", "extra.txt"}, got)
	assert.Empty(t, ingestPaths(nil, nil))
}

func TestParseFormat(t *testing.T) {
	all, err := parseFormat("all")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Formats(), all)

	one, err := parseFormat(" ElevenLabs-TXT ")
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Format{pipeline.FormatElevenLabsText}, one)

	_, err = parseFormat("pdf")
	assert.ErrorContains(t, err, `unknown format "pdf"`)
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "short", shorten("short", 10))
	assert.Equal(t, "abcdefg...", shorten("abcdefghijklmnop", 10))
}

func TestValidateCommand_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("data_dir: from-file\nworkers: 4\nfetch_timeout: 10s\n"), 0o644))
	t.Setenv(config.EnvAPIKey, "secret-key")

	out, err := execute(t, "", "validate", "--config", cfgPath, "--data-dir", "from-flag", "--show")
	require.NoError(t, err)
	assert.Contains(t, out, `"data_dir": "from-flag"`)
	assert.Contains(t, out, `"workers": 4`)
	assert.Contains(t, out, `"fetch_timeout": "10s"`)
	assert.Contains(t, out, `"process_mode": "all"`)
	assert.NotContains(t, out, "secret-key")
	assert.Contains(t, out, "Configuration OK")
}

func TestValidateCommand_InvalidConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"min_importance": 7}`), 0o644))

	_, err := execute(t, "", "validate", "--config", cfgPath)
	assert.ErrorContains(t, err, "min_importance")
}

func TestTreeCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeJSON(t, dir, "discovered.json", crawling.DiscoveryResult{
		SeedURL:    "https://help.example",
		TargetHost: "help.example",
		Discovered: []crawling.DiscoveredPage{
			{URL: "https://help.example", Title: "Help Center", Type: crawling.PageType("home"), Importance: 3},
			{URL: "https://help.example/blog/news/2019/launch", Title: "Launch", Type: crawling.PageType("blog"), Importance: 1},
		},
	})

	out, err := execute(t, "", "tree", "--in", in, "--min-importance", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Help Center")
	assert.Contains(t, out, "Launch [blog] (skipped)")
	assert.Contains(t, out, "1 of 2 pages selected")

	_, err = execute(t, "", "tree", "--in", in, "--min-importance", "5")
	assert.ErrorContains(t, err, "between 1 and 3")
}

func TestIngestCommand(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "faq.md"), []byte("# Shipping FAQ\n\nOrders ship within two days.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.txt"), []byte("Returns are accepted for 30 days.\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "logo.png"), []byte{0x89, 'P', 'N', 'G'}, 0o644))
	dataDir := t.TempDir()

	out, err := execute(t, "", "ingest", "--dir", docs, "--data-dir", dataDir, "-q")
	require.NoError(t, err)

	paths := savedPaths(out)
	require.Len(t, paths, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(paths[0]), "document_content_"))

	var saved map[string]json.RawMessage
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Len(t, saved, 2)
	assert.Contains(t, saved, "faq.md")
}

func TestIngestCommand_NoPaths(t *testing.T) {
	_, err := execute(t, "", "ingest")
	assert.ErrorContains(t, err, "at least one --dir")
}

func TestExportCommand_Stdout(t *testing.T) {
	doc := writeJSON(t, t.TempDir(), "final.json", testDocument())

	out, err := execute(t, "", "export", "--doc", doc, "--format", "text", "--stdout")
	require.NoError(t, err)
	assert.Contains(t, out, "ACME SUPPORT")
	assert.Contains(t, out, "Refunds take five business days.")
	assert.Contains(t, out, "SYSTEM PROMPT:")

	_, err = execute(t, "", "export", "--doc", doc, "--stdout")
	assert.ErrorContains(t, err, "single --format")
}

func TestExportCommand_AllFormats(t *testing.T) {
	doc := writeJSON(t, t.TempDir(), "final.json", testDocument())
	dataDir := t.TempDir()

	out, err := execute(t, "", "export", "--doc", doc, "--data-dir", dataDir)
	require.NoError(t, err)

	paths := savedPaths(out)
	require.Len(t, paths, 4)
	for _, path := range paths {
		assert.FileExists(t, path)
		assert.Equal(t, dataDir, filepath.Dir(path))
	}
}

func TestExportCommand_Unprocessed(t *testing.T) {
	draft := testDocument()
	draft.Processed = false
	doc := writeJSON(t, t.TempDir(), "draft.json", draft)

	_, err := execute(t, "", "export", "--doc", doc, "--format", "elevenlabs-json", "--data-dir", t.TempDir())
	assert.ErrorIs(t, err, knowledge.ErrUnprocessed)
}

func TestProcessCommand_RequiresAPIKey(t *testing.T) {
	dir := t.TempDir()
	scraped := writeJSON(t, dir, "scraped.json", crawling.ScrapedContent{
		"https://help.example/faq": {Content: "Orders ship within two days."},
	})
	t.Setenv(config.EnvAPIKey, "")

	_, err := execute(t, "", "process", "--scraped", scraped, "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, config.EnvAPIKey)
}

func TestProcessCommand_InvalidMode(t *testing.T) {
	scraped := writeJSON(t, t.TempDir(), "scraped.json", crawling.ScrapedContent{})

	_, err := execute(t, "", "process", "--scraped", scraped, "--mode", "interactive", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "unknown processing mode")
}

func TestRunCommand_RequiresInput(t *testing.T) {
	_, err := execute(t, "", "run", "--data-dir", t.TempDir())
	assert.ErrorIs(t, err, pipeline.ErrNoInput)
}

func TestHashPasswordCommand(t *testing.T) {
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("PASSWORD_PEPPER", "")

	passwords, err := config.NewPasswordConfig()
	require.NoError(t, err)

	out, err := execute(t, "", "hash-password", "hunter2")
	require.NoError(t, err)
	assert.True(t, passwords.VerifyPassword("hunter2", strings.TrimSpace(out)))

	out, err = execute(t, "from-stdin\n", "hash-password")
	require.NoError(t, err)
	assert.True(t, passwords.VerifyPassword("from-stdin", strings.TrimSpace(out)))

	_, err = execute(t, "", "hash-password")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-that-is-long-enough-for-hs256")
	t.Setenv("JWT_EXPIRATION_HOURS", "1")
	t.Setenv("JWT_ISSUER", "")

	out, err := execute(t, "", "token")
	require.NoError(t, err)

	jwtConfig, err := config.NewJWTConfig()
	require.NoError(t, err)
	claims, err := server.NewJWTService(jwtConfig).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, server.AdminSubject, claims.Subject)
}

func TestTokenCommand_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := execute(t, "", "token")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestCachePruneCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	cacheDir := filepath.Join(t.TempDir(), "pages")
	data, err := json.Marshal(map[string]string{"cache_dir": cacheDir})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cfgPath, data, 0o644))

	out, err := execute(t, "", "cache", "prune", "--config", cfgPath, "--data-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 expired pages")
}

func TestCachePruneCommand_NoCache(t *testing.T) {
	_, err := execute(t, "", "cache", "prune", "--data-dir", t.TempDir())
	assert.ErrorContains(t, err, "no page cache configured")
}

func TestValidateCommand_Artifact(t *testing.T) {
	dir := t.TempDir()
	valid := writeJSON(t, dir, "final.json", testDocument())
	invalid := writeJSON(t, dir, "bad.json", map[string]any{"title": 42})

	out, err := execute(t, "", "validate", "--schema", "knowledge_document", "--json", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "Validation passed")

	out, err = execute(t, "", "validate", "--schema", "knowledge_document", "--json", invalid)
	assert.ErrorContains(t, err, "does not match the knowledge_document schema")
	assert.Contains(t, out, "Validation failed")

	_, err = execute(t, "", "validate", "--json", valid)
	assert.Error(t, err)
}

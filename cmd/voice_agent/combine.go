package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

var (
	combineProcessed string
	combineAgent     string
)

var combineCmd = &cobra.Command{
	Use:   "combine",
	Short: "Merge processed content into one knowledge document",
	Long: `Combine every successfully processed item into a single knowledge document
with a system prompt for the agent. Voice agents get short spoken answers;
text agents get fuller formatting. Requires GEMINI_API_KEY. Saves
final_<agent>_agent_<time>.json.`,
	RunE: runCombine,
}

func init() {
	combineCmd.Flags().StringVarP(&combineProcessed, "processed", "p", "", "Processed content JSON from the process command (required)")
	combineCmd.Flags().StringVarP(&combineAgent, "agent", "a", "", "Agent type: voice or text (default voice)")
	_ = combineCmd.MarkFlagRequired("processed")
	rootCmd.AddCommand(combineCmd)
}

func runCombine(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("agent") {
		a.cfg.AgentType = combineAgent
	}
	agent := knowledge.AgentType(a.cfg.AgentType)
	if !agent.Valid() {
		return fmt.Errorf("unknown agent type %q (use voice or text)", a.cfg.AgentType)
	}

	var processed map[string]knowledge.ProcessedContent
	if err := session.LoadJSON(combineProcessed, &processed); err != nil {
		return err
	}

	ctx := cmd.Context()
	client, err := a.llmClient(ctx)
	if err != nil {
		return err
	}

	onProgress, stop := a.progress(fmt.Sprintf("Combining %d sources for a %s agent...", len(processed), agent))
	onProgress(pipeline.ProgressEvent{Step: pipeline.StepCombine, Message: "Waiting for the language model..."})
	doc, err := a.runner(nil, client).Combine(ctx, processed, agent)
	stop()
	if err != nil {
		return err
	}
	a.printer.PrintKnowledgeDocument(doc)

	sess, err := a.newSession(ctx, "")
	if err != nil {
		return err
	}
	sess.Processed = processed
	sess.Combined = doc
	path, err := a.store.SaveArtifact(ctx, sess.ID, db.StepKnowledge, pipeline.KnowledgePrefix(agent), doc)
	if err != nil {
		return err
	}
	a.saved(path)
	a.checkSchema(schemas.KnowledgeDocument, path)
	a.saveSession(ctx, sess)
	return nil
}

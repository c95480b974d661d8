package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

var (
	processScraped   string
	processDocuments string
	processMode      string
	processBatchSize int
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Structure scraped pages and documents with the language model",
	Long: `Send every scraped page and ingested document to the language model, which
splits it into titled sections with key points. Items that fail are kept with
their error so the rest of the build can continue.

Mode "all" sends items one at a time; "batch" sends --batch-size items
concurrently. Requires GEMINI_API_KEY. Saves processed_content_<time>.json.`,
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVarP(&processScraped, "scraped", "s", "", "Scraped content JSON from the scrape command")
	processCmd.Flags().StringVarP(&processDocuments, "documents", "d", "", "Document content JSON from the ingest command")
	processCmd.Flags().StringVarP(&processMode, "mode", "m", "", "Processing mode: all or batch (default all)")
	processCmd.Flags().IntVar(&processBatchSize, "batch-size", 0, "Items per batch in batch mode (default 3)")
	processCmd.MarkFlagsOneRequired("scraped", "documents")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("mode") {
		a.cfg.ProcessMode = processMode
	}
	if cmd.Flags().Changed("batch-size") {
		a.cfg.BatchSize = processBatchSize
	}
	mode := knowledge.Mode(a.cfg.ProcessMode)
	if !mode.Valid() {
		return fmt.Errorf("unknown processing mode %q (use all or batch)", a.cfg.ProcessMode)
	}
	if a.cfg.BatchSize < 1 {
		return fmt.Errorf("--batch-size must be positive")
	}

	ctx := cmd.Context()
	sess, err := a.newSession(ctx, "")
	if err != nil {
		return err
	}
	if processScraped != "" {
		content, err := session.LoadScraped(processScraped)
		if err != nil {
			return err
		}
		sess.SiteContent = content
	}
	if processDocuments != "" {
		var docs ingestion.Documents
		if err := session.LoadJSON(processDocuments, &docs); err != nil {
			return err
		}
		sess.AddDocuments(docs)
	}

	items := sess.ContentItems()
	if len(items) == 0 {
		return knowledge.ErrNoValidContent
	}

	client, err := a.llmClient(ctx)
	if err != nil {
		return err
	}

	onProgress, stop := a.progress(fmt.Sprintf("Processing %d items...", len(items)))
	processed, processErr := a.runner(nil, client).Process(ctx, items, mode, onProgress)
	stop()

	a.printer.PrintProcessed(processed)
	if len(processed) > 0 {
		sess.Processed = processed
		path, err := a.store.SaveArtifact(ctx, sess.ID, db.StepProcessedContent, db.StepProcessedContent, processed)
		if err != nil {
			return err
		}
		a.saved(path)
		a.checkSchema(schemas.ProcessedContent, path)
		a.saveSession(ctx, sess)
	}
	return processErr
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
)

var (
	runURL           string
	runDirs          []string
	runFiles         []string
	runMinImportance int
	runMaxScrape     int
	runMode          string
	runAgent         string
	runWorkers       int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Build a knowledge base end to end",
	Long: `Run the whole build: discover and scrape the site while ingesting documents,
then process, combine and export. Every intermediate artifact is saved, so a
failed run can be resumed with the individual step commands.

Requires GEMINI_API_KEY and at least one of --url, --dir or --file.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().StringVarP(&runURL, "url", "u", "", "Seed URL of the support site")
	runCmd.Flags().StringSliceVarP(&runDirs, "dir", "d", nil, "Directories of documents to include")
	runCmd.Flags().StringSliceVarP(&runFiles, "file", "f", nil, "Document files to include")
	runCmd.Flags().IntVarP(&runMinImportance, "min-importance", "m", 0, "Lowest page importance to scrape, 1-3 (default 1)")
	runCmd.Flags().IntVar(&runMaxScrape, "max-scrape", 0, "Scrape at most this many pages (0 = no limit)")
	runCmd.Flags().StringVar(&runMode, "mode", "", "Processing mode: all or batch (default all)")
	runCmd.Flags().StringVarP(&runAgent, "agent", "a", "", "Agent type: voice or text (default voice)")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "Concurrent page fetches during discovery (default 1)")
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	flags := cmd.Flags()
	if flags.Changed("url") {
		a.cfg.SeedURL = runURL
	}
	if flags.Changed("min-importance") {
		a.cfg.MinImportance = runMinImportance
	}
	if flags.Changed("max-scrape") {
		a.cfg.MaxScrape = runMaxScrape
	}
	if flags.Changed("mode") {
		a.cfg.ProcessMode = runMode
	}
	if flags.Changed("agent") {
		a.cfg.AgentType = runAgent
	}
	if flags.Changed("workers") {
		a.cfg.Workers = runWorkers
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	docPaths := ingestPaths(runDirs, runFiles, args)
	if a.cfg.SeedURL == "" && len(docPaths) == 0 {
		return pipeline.ErrNoInput
	}

	ctx := cmd.Context()
	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	client, err := a.llmClient(ctx)
	if err != nil {
		return err
	}

	onProgress, stop := a.progress("Starting build...")
	sess, runErr := pipeline.Run(ctx, pipeline.RunOptions{
		Runner:        *a.runner(fetcher, client),
		SeedURL:       a.cfg.SeedURL,
		DocumentPaths: docPaths,
		MinImportance: a.cfg.MinImportance,
		MaxScrape:     a.cfg.MaxScrape,
		Mode:          knowledge.Mode(a.cfg.ProcessMode),
		AgentType:     knowledge.AgentType(a.cfg.AgentType),
		OnProgress: func(event pipeline.ProgressEvent) {
			onProgress(event)
			if event.Artifact != "" {
				a.logger.Debug("artifact written", "step", event.Step, "path", event.Artifact)
			}
		},
	})
	stop()

	if sess.Discovery != nil {
		a.printer.PrintDiscoverySummary(sess.Discovery)
	}
	if len(sess.SiteContent) > 0 {
		a.printer.PrintScraped(sess.SiteContent)
	}
	if len(sess.Documents) > 0 {
		a.printer.PrintDocuments(sess.Documents)
	}
	if len(sess.Processed) > 0 {
		a.printer.PrintProcessed(sess.Processed)
	}
	a.printer.PrintKnowledgeDocument(sess.Combined)

	if runErr != nil {
		// Keep what finished so the step commands can pick up from here.
		a.saveSession(ctx, sess)
		return runErr
	}
	_, _ = fmt.Fprintf(a.out, "Session %s complete; artifacts in %s\n", sess.ID, a.cfg.DataDir)
	return nil
}

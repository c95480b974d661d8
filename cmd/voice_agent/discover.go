package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
)

var (
	discoverURL      string
	discoverWorkers  int
	discoverMaxPages int
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Crawl a website and rank its pages by importance",
	Long: `Crawl every page reachable from the seed URL on the same host, classify
each page and score its importance for a support knowledge base. Prints a
summary and the site tree, then saves the result as discovered_urls_<time>.json.

Interrupting the crawl keeps the pages found so far.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVarP(&discoverURL, "url", "u", "", "Seed URL to start crawling from (or seed_url in config)")
	discoverCmd.Flags().IntVarP(&discoverWorkers, "workers", "w", 0, "Concurrent page fetches (default 1)")
	discoverCmd.Flags().IntVar(&discoverMaxPages, "max-pages", 0, "Stop after this many pages (0 = no limit)")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("url") {
		a.cfg.SeedURL = discoverURL
	}
	if cmd.Flags().Changed("workers") {
		a.cfg.Workers = discoverWorkers
	}
	if cmd.Flags().Changed("max-pages") {
		a.cfg.MaxPages = discoverMaxPages
	}
	if a.cfg.SeedURL == "" {
		return fmt.Errorf("--url is required (or set seed_url in config)")
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	sess, err := a.newSession(ctx, a.cfg.SeedURL)
	if err != nil {
		return err
	}

	onProgress, stop := a.progress("Discovering pages...")
	result, discoverErr := a.runner(fetcher, nil).Discover(ctx, a.cfg.SeedURL, onProgress)
	stop()
	if result == nil {
		return discoverErr
	}

	a.printer.PrintDiscoverySummary(result)
	sess.SetDiscovery(result)
	a.printer.PrintTree(sess.Tree(), a.cfg.MinImportance)

	path, err := a.store.SaveArtifact(ctx, sess.ID, db.StepDiscovery, db.StepDiscovery, result)
	if err != nil {
		return err
	}
	a.saved(path)
	a.checkSchema(schemas.Discovery, path)
	a.saveSession(ctx, sess)

	return discoverErr
}

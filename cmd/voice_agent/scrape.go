package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

var (
	scrapeInput         string
	scrapeURLs          []string
	scrapeMinImportance int
	scrapeMax           int
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Extract the text of selected pages",
	Long: `Fetch pages and extract their main text and metadata. Pages come either from
a discovery result filtered by --min-importance, or from an explicit --urls
list. Saves the result as scraped_content_<time>.json.`,
	RunE: runScrape,
}

func init() {
	scrapeCmd.Flags().StringVarP(&scrapeInput, "in", "i", "", "Discovery result JSON to select pages from")
	scrapeCmd.Flags().StringSliceVar(&scrapeURLs, "urls", nil, "Comma-separated URLs to scrape instead of a discovery result")
	scrapeCmd.Flags().IntVarP(&scrapeMinImportance, "min-importance", "m", 0, "Lowest importance to scrape, 1-3 (default 1)")
	scrapeCmd.Flags().IntVar(&scrapeMax, "max-scrape", 0, "Scrape at most this many pages (0 = no limit)")
	scrapeCmd.MarkFlagsMutuallyExclusive("in", "urls")
	scrapeCmd.MarkFlagsOneRequired("in", "urls")
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("min-importance") {
		a.cfg.MinImportance = scrapeMinImportance
	}
	if cmd.Flags().Changed("max-scrape") {
		a.cfg.MaxScrape = scrapeMax
	}
	if a.cfg.MinImportance < 1 || a.cfg.MinImportance > 3 {
		return fmt.Errorf("--min-importance must be between 1 and 3, got %d", a.cfg.MinImportance)
	}

	urls := scrapeURLs
	seedURL := ""
	if scrapeInput != "" {
		result, err := session.LoadDiscovery(scrapeInput)
		if err != nil {
			return err
		}
		seedURL = result.SeedURL
		urls = pipeline.Select(result, a.cfg.MinImportance, a.cfg.MaxScrape)
		_, _ = fmt.Fprintf(a.out, "Selected %d of %d pages with importance >= %d\n", len(urls), len(result.Discovered), a.cfg.MinImportance)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no pages to scrape")
	}

	fetcher, err := a.fetcher()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	sess, err := a.newSession(ctx, seedURL)
	if err != nil {
		return err
	}

	onProgress, stop := a.progress(fmt.Sprintf("Scraping %d pages...", len(urls)))
	content, scrapeErr := a.runner(fetcher, nil).Scrape(ctx, urls, onProgress)
	stop()

	a.printer.PrintScraped(content)
	if len(content) > 0 {
		sess.SiteContent = content
		path, err := a.store.SaveArtifact(ctx, sess.ID, db.StepScrapedContent, db.StepScrapedContent, content)
		if err != nil {
			return err
		}
		a.saved(path)
		a.checkSchema(schemas.ScrapedContent, path)
		a.saveSession(ctx, sess)
	}

	return scrapeErr
}

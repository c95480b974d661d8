package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/crawling"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

var (
	treeInput         string
	treeMinImportance int
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show the site tree of a discovery result",
	Long: `Print the page hierarchy from a discovered_urls file with the importance
of each page. Pages at or above --min-importance are marked as selected for
scraping.`,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringVarP(&treeInput, "in", "i", "", "Discovery result JSON (required)")
	treeCmd.Flags().IntVarP(&treeMinImportance, "min-importance", "m", 0, "Lowest importance to select, 1-3 (default 1)")
	_ = treeCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	minImportance := cfg.MinImportance
	if cmd.Flags().Changed("min-importance") {
		minImportance = treeMinImportance
	}
	if minImportance < 1 || minImportance > 3 {
		return fmt.Errorf("--min-importance must be between 1 and 3, got %d", minImportance)
	}

	result, err := session.LoadDiscovery(treeInput)
	if err != nil {
		return err
	}
	tree := crawling.BuildTree(result.Discovered)
	printerFor(cmd).PrintTree(tree, minImportance)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d pages selected\n", len(tree.Select(minImportance)), tree.Len())
	return nil
}

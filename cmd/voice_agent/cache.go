package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/fetch"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the page cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cached pages",
	Long: `Remove pages older than cache_ttl from the page cache: the crawled_pages
table when DATABASE_URL is set, otherwise the LevelDB cache in cache_dir.`,
	RunE: runCachePrune,
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePrune(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	var removed int64
	switch {
	case a.database != nil:
		removed, err = a.database.DeleteExpiredPages(cmd.Context())
	case a.cfg.CacheDir != "":
		cache, openErr := fetch.OpenLevelDBCache(a.cfg.CacheDir, a.cfg.CacheTTL.Std())
		if openErr != nil {
			return openErr
		}
		defer func() { _ = cache.Close() }()
		var n int
		n, err = cache.Prune()
		removed = int64(n)
	default:
		return fmt.Errorf("no page cache configured (set cache_dir or DATABASE_URL)")
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Removed %d expired pages\n", removed)
	return nil
}

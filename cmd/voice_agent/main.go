// Package main provides the voice_agent command line tool, which builds
// customer-service knowledge bases from a website and uploaded documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	quiet      bool
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "voice_agent",
	Short: "Build knowledge bases for voice and text support agents",
	Long: `voice_agent discovers the pages of a customer-service website, scrapes the
important ones, ingests documents, structures everything with a language model
and exports a knowledge base ready to upload to a voice agent.

Run the steps one at a time (discover, scrape, ingest, process, combine, export),
all at once with run, or through the HTTP API with serve.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file (flags override its values)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print debug logs instead of progress spinners")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors and saved file paths")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory for artifacts and sessions (default \"data\")")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

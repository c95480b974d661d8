package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/db"
	"github.com/jonathan/voice-agent-builder/internal/ingestion"
	"github.com/jonathan/voice-agent-builder/internal/schemas"
)

var (
	ingestDirs  []string
	ingestFiles []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Parse local documents into knowledge-base content",
	Long: `Read documents from files and directories and extract their text, title and
description. Supported extensions: ` + strings.Join(ingestion.SupportedExtensions(), ", ") + `.
Directories are read one level deep. Saves the result as document_content_<time>.json.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVarP(&ingestDirs, "dir", "d", nil, "Directories of documents")
	ingestCmd.Flags().StringSliceVarP(&ingestFiles, "file", "f", nil, "Individual document files")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths := ingestPaths(ingestDirs, ingestFiles, args)
	if len(paths) == 0 {
		return fmt.Errorf("at least one --dir, --file or path argument is required")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	onProgress, stop := a.progress(fmt.Sprintf("Ingesting %d paths...", len(paths)))
	docs, err := a.runner(nil, nil).Ingest(paths, onProgress)
	stop()
	if err != nil {
		return err
	}

	a.printer.PrintDocuments(docs)
	if len(docs) == 0 {
		return fmt.Errorf("no supported documents found")
	}

	sess, err := a.newSession(ctx, "")
	if err != nil {
		return err
	}
	sess.AddDocuments(docs)
	path, err := a.store.SaveArtifact(ctx, sess.ID, db.StepDocumentContent, db.StepDocumentContent, docs)
	if err != nil {
		return err
	}
	a.saved(path)
	a.checkSchema(schemas.DocumentContent, path)
	a.saveSession(ctx, sess)
	return nil
}

// ingestPaths joins directory, file and positional paths, dropping blanks
// and repeats.
func ingestPaths(groups ...[]string) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, group := range groups {
		for _, p := range group {
			p = strings.TrimSpace(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

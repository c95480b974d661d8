package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/session"
)

// formatAll selects every export format.
const formatAll = "all"

var (
	exportDoc    string
	exportFormat string
	exportStdout bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render a knowledge document for upload",
	Long: `Render a combined knowledge document as plain text or in the ElevenLabs
knowledge-base formats. With --format all every format is written to the data
directory; otherwise one format is written, or printed with --stdout.

Formats: ` + formatNames() + `, all.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDoc, "doc", "", "Knowledge document JSON from the combine command (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", formatAll, "Export format")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Print the rendered document instead of saving it")
	_ = exportCmd.MarkFlagRequired("doc")
	rootCmd.AddCommand(exportCmd)
}

func formatNames() string {
	names := make([]string, 0, len(pipeline.Formats()))
	for _, f := range pipeline.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

// parseFormat resolves a --format value. The empty slice means all formats.
func parseFormat(name string) ([]pipeline.Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == formatAll {
		return pipeline.Formats(), nil
	}
	for _, f := range pipeline.Formats() {
		if string(f) == name {
			return []pipeline.Format{f}, nil
		}
	}
	return nil, fmt.Errorf("unknown format %q (use %s or all)", name, formatNames())
}

func runExport(cmd *cobra.Command, _ []string) error {
	formats, err := parseFormat(exportFormat)
	if err != nil {
		return err
	}
	if exportStdout && len(formats) != 1 {
		return fmt.Errorf("--stdout needs a single --format")
	}

	var doc knowledge.Document
	if err := session.LoadJSON(exportDoc, &doc); err != nil {
		return err
	}

	if exportStdout {
		rendered, err := pipeline.Render(&doc, formats[0])
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(rendered, '\n'))
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	sess, err := a.newSession(ctx, "")
	if err != nil {
		return err
	}
	sess.Combined = &doc

	if len(formats) > 1 {
		paths, err := a.runner(nil, nil).Export(ctx, sess.ID, &doc)
		for _, f := range pipeline.Formats() {
			a.saved(paths[f])
		}
		if err != nil {
			return err
		}
		a.saveSession(ctx, sess)
		return nil
	}

	path, err := a.runner(nil, nil).ExportFormat(ctx, sess.ID, &doc, formats[0])
	if err != nil {
		return err
	}
	a.saved(path)
	a.saveSession(ctx, sess)
	return nil
}

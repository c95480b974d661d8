package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/voice-agent-builder/internal/schemas"
)

var (
	validateShow   bool
	validateSchema string
	validateJSON   string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration or an artifact",
	Long: `Without --json, load the config file (--config), environment and defaults,
and report the first invalid value. With --show the merged configuration is
printed with secrets masked.

With --json, validate an artifact file against an embedded JSON Schema
(--schema): ` + strings.Join(schemas.Names(), ", ") + `.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateShow, "show", false, "Print the merged configuration")
	validateCmd.Flags().StringVar(&validateSchema, "schema", "", "Schema name for --json")
	validateCmd.Flags().StringVar(&validateJSON, "json", "", "Artifact JSON file to validate")
	validateCmd.MarkFlagsRequiredTogether("schema", "json")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if validateJSON != "" {
		err := schemas.ValidateFile(validateSchema, validateJSON)
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			_, _ = fmt.Fprint(out, "Validation failed: ", err)
			return fmt.Errorf("%s does not match the %s schema", validateJSON, validateSchema)
		}
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Validation passed")
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if validateShow {
		if cfg.APIKey != "" {
			cfg.APIKey = "********"
		}
		if cfg.DatabaseURL != "" {
			cfg.DatabaseURL = "********"
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, string(data))
	}
	_, _ = fmt.Fprintln(out, "Configuration OK")
	return nil
}

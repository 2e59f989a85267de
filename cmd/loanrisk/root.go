package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/YuminosukeSato/loanrisk/pkg/errors"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/spf13/cobra"
)

// rootOptions holds the global flags.
type rootOptions struct {
	LogLevel string
	Format   string // "text" | "json"
}

var validFormats = []string{"text", "json"}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "loanrisk",
		Short: "Loan default modelling workflow",
		Long: `loanrisk cleans tabular loan data, removes redundant features and
trains a default-probability model.

Numeric columns are stored at their narrowest width, and numeric columns
whose Spearman correlation with an earlier column exceeds a threshold are
dropped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return errors.NewValidationError("format", fmt.Sprintf("must be one of %v", validFormats), opts.Format)
			}
			return log.SetupLogger(opts.LogLevel, opts.Format)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output and log format (text|json)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newDowncastCommand(opts))
	cmd.AddCommand(newPruneCommand(opts))
	return cmd
}

// writeJSON prints v indented, for --format json.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

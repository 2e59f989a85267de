package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/loanrisk/config"
	"github.com/YuminosukeSato/loanrisk/pipeline"
	"github.com/YuminosukeSato/loanrisk/pkg/log"
	"github.com/spf13/cobra"
)

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline and write a submission",
		Long: `Run loads the training and evaluation tables, drops sparse and
redundant columns, trains the configured models and writes predictions
for the evaluation table.

Settings come from --config and LOANRISK_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// the config file may pick the level unless the flag was given
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != rootOpts.LogLevel {
				if err := log.SetupLogger(cfg.LogLevel, rootOpts.Format); err != nil {
					return err
				}
			}

			p, err := pipeline.New(cfg)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), summarize(res))
			}
			writeRunText(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline config file (yaml)")
	return cmd
}

type modelSummary struct {
	Name     string    `json:"name"`
	AUC      float64   `json:"roc_auc"`
	Accuracy float64   `json:"accuracy"`
	LogLoss  float64   `json:"log_loss"`
	CVScores []float64 `json:"cv_roc_auc,omitempty"`
}

type runSummary struct {
	RunID            string         `json:"run_id"`
	MissingDropped   []string       `json:"missing_dropped"`
	CorrelationDrop  []string       `json:"correlation_dropped"`
	UndefinedDropped []string       `json:"undefined_dropped"`
	Features         int            `json:"features"`
	BytesSaved       int64          `json:"bytes_saved"`
	Models           []modelSummary `json:"models"`
	Best             string         `json:"best_model"`
	Submission       string         `json:"submission"`
	Rows             int            `json:"rows"`
	Plots            []string       `json:"plots,omitempty"`
}

func summarize(res *pipeline.Result) runSummary {
	s := runSummary{
		RunID:            res.RunID,
		MissingDropped:   res.MissingDropped,
		CorrelationDrop:  res.DropSet.Names(),
		UndefinedDropped: res.UndefinedDropped,
		Features:         len(res.Features),
		BytesSaved:       res.TrainDowncast.SavedBytes() + res.TestDowncast.SavedBytes(),
		Submission:       res.SubmissionPath,
		Rows:             res.SubmissionRows,
		Plots:            res.Plots,
	}
	for _, m := range res.Models {
		s.Models = append(s.Models, modelSummary{
			Name: m.Name, AUC: m.AUC, Accuracy: m.Accuracy, LogLoss: m.LogLoss, CVScores: m.CVScores,
		})
	}
	if best := res.BestModel(); best != nil {
		s.Best = best.Name
	}
	return s
}

func writeRunText(w io.Writer, res *pipeline.Result) {
	s := summarize(res)
	fmt.Fprintf(w, "run %s\n", s.RunID)
	fmt.Fprintf(w, "dropped (missing):     %s\n", joinOrNone(s.MissingDropped))
	fmt.Fprintf(w, "dropped (correlation): %s\n", joinOrNone(s.CorrelationDrop))
	fmt.Fprintf(w, "dropped (undefined):   %s\n", joinOrNone(s.UndefinedDropped))
	fmt.Fprintf(w, "features: %d, downcast saved %d bytes\n\n", s.Features, s.BytesSaved)
	for _, m := range res.Models {
		fmt.Fprintf(w, "%s  auc=%.4f  accuracy=%.4f  log_loss=%.4f\n", m.Name, m.AUC, m.Accuracy, m.LogLoss)
		fmt.Fprintln(w, m.Confusion.String())
		fmt.Fprintln(w, m.Report.String())
	}
	fmt.Fprintf(w, "submission (%s): %s, %d rows\n", s.Best, s.Submission, s.Rows)
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

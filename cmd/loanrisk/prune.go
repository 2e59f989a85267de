package main

import (
	"fmt"

	"github.com/YuminosukeSato/loanrisk/dataset"
	"github.com/YuminosukeSato/loanrisk/report"
	"github.com/YuminosukeSato/loanrisk/sklearn/feature_selection"
	"github.com/spf13/cobra"
)

func newPruneCommand(rootOpts *rootOptions) *cobra.Command {
	var (
		threshold float64
		exclude   []string
		heatmap   string
	)

	cmd := &cobra.Command{
		Use:   "prune <file>",
		Short: "List numeric columns redundant by Spearman correlation",
		Long: `Prune scans numeric columns left to right and reports every column
whose absolute Spearman correlation with an earlier column exceeds the
threshold. Excluded columns, usually the target, are never examined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := dataset.ReadFile(args[0])
			if err != nil {
				return err
			}
			p := feature_selection.NewCorrelationPruner(
				feature_selection.WithThreshold(threshold),
				feature_selection.WithExclude(exclude...),
			)
			if err := p.Fit(t); err != nil {
				return err
			}
			if heatmap != "" {
				if err := report.SaveCorrelationHeatmap(heatmap, p.Matrix()); err != nil {
					return err
				}
			}

			dropped := p.DropSet().Names()
			if rootOpts.Format == "json" {
				if dropped == nil {
					dropped = []string{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"file":      args[0],
					"threshold": threshold,
					"examined":  p.Matrix().Dims(),
					"dropped":   dropped,
				})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d of %d numeric columns exceed |rho| > %g\n", len(dropped), p.Matrix().Dims(), threshold)
			for _, name := range dropped {
				fmt.Fprintln(w, name)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", feature_selection.DefaultThreshold, "absolute correlation above which a column is dropped")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "columns to leave out, e.g. the target")
	cmd.Flags().StringVar(&heatmap, "heatmap", "", "also save a correlation heatmap (png, svg, pdf)")
	return cmd
}

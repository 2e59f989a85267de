package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/YuminosukeSato/loanrisk/dataset"
	"github.com/YuminosukeSato/loanrisk/preprocessing"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func newDowncastCommand(rootOpts *rootOptions) *cobra.Command {
	var keepFloats bool

	cmd := &cobra.Command{
		Use:   "downcast <file>",
		Short: "Report the narrowest storage width of each numeric column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := dataset.ReadFile(args[0])
			if err != nil {
				return err
			}
			d := preprocessing.NewDowncaster(preprocessing.WithFloatDowncast(!keepFloats))
			_, rep := d.Transform(t)

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), downcastJSON(args[0], rep))
			}
			return writeDowncastText(cmd.OutOrStdout(), rep)
		},
	}

	cmd.Flags().BoolVar(&keepFloats, "keep-floats", false, "narrow integer columns only")
	return cmd
}

type columnChangeJSON struct {
	Column      string `json:"column"`
	From        string `json:"from"`
	To          string `json:"to"`
	BytesBefore int64  `json:"bytes_before"`
	BytesAfter  int64  `json:"bytes_after"`
}

type downcastReportJSON struct {
	File         string             `json:"file"`
	Changes      []columnChangeJSON `json:"changes"`
	BytesBefore  int64              `json:"bytes_before"`
	BytesAfter   int64              `json:"bytes_after"`
	SavedPercent float64            `json:"saved_percent"`
}

func downcastJSON(file string, rep *preprocessing.DowncastReport) downcastReportJSON {
	out := downcastReportJSON{
		File:         file,
		Changes:      []columnChangeJSON{},
		BytesBefore:  rep.BytesBefore,
		BytesAfter:   rep.BytesAfter,
		SavedPercent: rep.SavedPercent(),
	}
	for _, c := range rep.Changes {
		out.Changes = append(out.Changes, columnChangeJSON{
			Column: c.Name, From: c.From.String(), To: c.To.String(),
			BytesBefore: c.BytesBefore, BytesAfter: c.BytesAfter,
		})
	}
	return out
}

func writeDowncastText(w io.Writer, rep *preprocessing.DowncastReport) error {
	pr := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tFROM\tTO\tBYTES BEFORE\tBYTES AFTER")
	for _, c := range rep.Changes {
		pr.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", c.Name, c.From.String(), c.To.String(), c.BytesBefore, c.BytesAfter)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := pr.Fprintf(w, "memory usage: %.2f MB -> %.2f MB (%.1f%% reduction)\n",
		float64(rep.BytesBefore)/(1<<20), float64(rep.BytesAfter)/(1<<20), rep.SavedPercent())
	return err
}

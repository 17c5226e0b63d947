package main

import (
	"fmt"
	"math"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"panelspace/pkg/panel"
)

func (a *app) layoutCommand() *cobra.Command {
	var viewer viewerFlags

	cmd := &cobra.Command{
		Use:   "layout <dir>",
		Short: "Lay out a folder tree on the curved grid and print the slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newSession()
			if err != nil {
				return err
			}
			defer r.close()

			start := time.Now()
			panels, err := a.openFolder(cmd.Context(), r, args[0], viewer.frame())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ROW\tCOL\tNAME\tANGLE\tX\tY\tZ\tSIZE\tSTATE")
			var aspects []float64
			for _, p := range panels {
				s := p.Slot()
				rec := p.Record()
				fmt.Fprintf(w, "%d\t%d\t%s\t%.1f°\t%.3f\t%.3f\t%.3f\t%.2fx%.2f\t%s\n",
					rec.Row, rec.Column, rec.Name, s.Angle*180/math.Pi,
					s.Position.X, s.Position.Y, s.Position.Z, s.Width, s.Height, p.State())
				if p.State() == panel.Ready {
					aspects = append(aspects, p.Aspect())
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(aspects) > 0 {
				mean, std := stat.MeanStdDev(aspects, nil)
				a.logger.Info("aspect ratios", "mean", fmt.Sprintf("%.3f", mean), "stddev", fmt.Sprintf("%.3f", std))
			}
			a.logger.Infof("Laid out %d panels (%s)", len(panels), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	viewer.register(cmd)
	return cmd
}

package main

import (
	"math"

	"github.com/spf13/cobra"

	"panelspace/pkg/visualization"
)

func (a *app) previewCommand() *cobra.Command {
	var (
		viewer    viewerFlags
		output    string
		width     int
		height    int
		fov       float64
		curvature float64
	)

	cmd := &cobra.Command{
		Use:   "preview <dir>",
		Short: "Render a panorama of a folder laid out on the curved grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.newSession()
			if err != nil {
				return err
			}
			defer r.close()

			frame := viewer.frame()
			panels, err := a.openFolder(cmd.Context(), r, args[0], frame)
			if err != nil {
				return err
			}
			if curvature > 0 {
				for _, p := range panels {
					if err := r.coord.SetCurvature(p.ID(), curvature); err != nil {
						return err
					}
				}
			}

			v := visualization.NewViewer(frame, width, height, fov*math.Pi/180)
			img := v.Render(r.coord.Panels())
			if err := visualization.SaveSnapshot(img, output); err != nil {
				return err
			}
			a.logger.Info("wrote preview", "path", output, "panels", len(panels))
			return nil
		},
	}

	viewer.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "preview.jpg", "output image (.jpg or .png)")
	cmd.Flags().IntVar(&width, "width", 2048, "output width in pixels")
	cmd.Flags().IntVar(&height, "height", 1024, "output height in pixels")
	cmd.Flags().Float64Var(&fov, "fov", 360, "horizontal field of view in degrees")
	cmd.Flags().Float64Var(&curvature, "curvature", 0, "bend every panel by this amount in [0,1]")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"panelspace/pkg/curved"
	"panelspace/pkg/stl"
)

func (a *app) meshCommand() *cobra.Command {
	var (
		width     float64
		height    float64
		curvature float64
		scale     float64
		output    string
	)

	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Export a curved panel mesh as binary STL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := curved.NewGenerator(curved.OptionsFromConfig(a.cfg))
			m := gen.Generate(width, height, curvature)
			if m == nil {
				m = gen.Flat(width, height)
			}
			if m == nil {
				return fmt.Errorf("invalid panel size %gx%g", width, height)
			}

			triangles := m.Triangles()
			if scale != 1 {
				s := float32(scale)
				stl.Scale(triangles, s, s, s)
			}
			if err := stl.SaveToSTL(output, triangles); err != nil {
				return err
			}
			a.logger.Info("wrote mesh", "path", output, "triangles", len(triangles),
				"radius", m.Radius, "maxForward", m.MaxForward())
			return nil
		},
	}

	cmd.Flags().Float64VarP(&width, "width", "W", 1.0, "panel width in meters")
	cmd.Flags().Float64VarP(&height, "height", "H", 0.75, "panel height in meters")
	cmd.Flags().Float64VarP(&curvature, "curvature", "k", 0.5, "curvature in [0,1]")
	cmd.Flags().Float64Var(&scale, "scale", 1, "uniform scale applied on export")
	cmd.Flags().StringVarP(&output, "output", "o", "panel.stl", "output STL file")
	return cmd
}

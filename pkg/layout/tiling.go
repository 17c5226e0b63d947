package layout

import (
	"gonum.org/v1/gonum/spatial/r3"

	"panelspace/internal/models"
	"panelspace/pkg/config"
)

// TilingOptions configures sequential tiling.
type TilingOptions struct {
	Spacing         float64
	ForwardDistance float64

	// RightStepsPerRow panels go to the right before the next one drops
	// below, repeating: right, right, below, right, right, below, ...
	RightStepsPerRow int

	// ReorientToViewer turns every new panel toward the current viewer
	// instead of keeping the first panel's orientation.
	ReorientToViewer bool
}

// TilingOptionsFromConfig maps the tiling section of cfg onto TilingOptions.
func TilingOptionsFromConfig(cfg *config.Config) TilingOptions {
	return TilingOptions{
		Spacing:          cfg.Tiling.Spacing,
		ForwardDistance:  cfg.Tiling.ForwardDistance,
		RightStepsPerRow: cfg.Tiling.RightStepsPerRow,
		ReorientToViewer: cfg.Tiling.ReorientToViewer,
	}
}

// Tiler places panels one after another, each relative to the previous one.
// A Tiler is not safe for concurrent use.
type Tiler struct {
	opts  TilingOptions
	prev  models.Slot
	count int
}

// NewTiler creates a tiler with no placements.
func NewTiler(opts TilingOptions) *Tiler {
	return &Tiler{opts: opts}
}

// Count returns the number of placements since the last Reset.
func (t *Tiler) Count() int { return t.count }

// Reset forgets all placements; the next panel goes in front of the viewer.
func (t *Tiler) Reset() {
	t.prev = models.Slot{}
	t.count = 0
}

// Next returns the slot for a width x height panel.
//
// The first panel is placed ForwardDistance in front of the viewer at eye
// height, facing the viewer. Later panels step right along the previous
// panel's right axis, or down along world-down at the end of each cycle.
// Steps are measured centre to centre, so panels of different sizes keep
// Spacing between their edges.
func (t *Tiler) Next(width, height float64, frame models.ViewerFrame) models.Slot {
	var s models.Slot
	if t.count == 0 {
		fwd := frame.FlatForward()
		s = models.Slot{
			Position:    r3.Add(frame.Position, r3.Scale(t.opts.ForwardDistance, fwd)),
			Orientation: models.FacingRotation(r3.Scale(-1, fwd)),
		}
	} else {
		s = models.Slot{Orientation: t.prev.Orientation}
		if t.dropsRow(t.count) {
			step := (t.prev.Height+height)/2 + t.opts.Spacing
			s.Position = r3.Add(t.prev.Position, r3.Scale(step, models.WorldDown))
		} else {
			step := (t.prev.Width+width)/2 + t.opts.Spacing
			s.Position = r3.Add(t.prev.Position, r3.Scale(step, t.prev.Right()))
		}
		if t.opts.ReorientToViewer {
			s.Orientation = models.FacingRotation(r3.Sub(frame.Position, s.Position))
		}
	}

	s.Width = width
	s.Height = height
	t.prev = s
	t.count++
	return s
}

// dropsRow reports whether placement k (0-based) starts a new row.
func (t *Tiler) dropsRow(k int) bool {
	if t.opts.RightStepsPerRow <= 0 {
		return true
	}
	return k%(t.opts.RightStepsPerRow+1) == 0
}

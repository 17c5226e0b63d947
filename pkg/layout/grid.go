// Package layout computes where panels float around the viewer.
//
// Two placement modes are supported. The curved grid places a whole
// folder tree at once: every source folder becomes one row bent along an
// arc of constant radius around the viewer, so each panel sits
// perpendicular to the viewer's line of sight. Tiling places panels one
// at a time next to the previously opened panel.
//
// Coordinates are right-handed with +Y up. Angles are measured from the
// viewer's horizontal forward direction, positive to the viewer's right.
package layout

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/spatial/r3"

	"panelspace/internal/models"
	"panelspace/pkg/config"
)

// ErrDegenerateInput is returned for rows without images. Radius and
// spacing problems are clamped instead.
var ErrDegenerateInput = errors.New("degenerate layout input")

const (
	// MinRadius is the smallest arc radius used in angle computations.
	MinRadius = 1e-3

	// MinPitch is the smallest panel width plus spacing used in angle computations.
	MinPitch = 1e-4
)

// GridOptions configures the curved grid.
type GridOptions struct {
	PanelWidth    float64
	PanelHeight   float64
	ColumnSpacing float64
	RowSpacing    float64

	// Radius is the forward distance from the viewer to every panel
	Radius float64

	// UpOffset raises row 0 above eye height
	UpOffset float64
}

// GridOptionsFromConfig maps the panel and grid sections of cfg onto GridOptions.
func GridOptionsFromConfig(cfg *config.Config) GridOptions {
	return GridOptions{
		PanelWidth:    cfg.Panel.DefaultWidth,
		PanelHeight:   cfg.Panel.DefaultHeight,
		ColumnSpacing: cfg.Grid.ColumnSpacing,
		RowSpacing:    cfg.Grid.RowSpacing,
		Radius:        cfg.Grid.ForwardOffset,
		UpOffset:      cfg.Grid.UpOffset,
	}
}

// Row is one row of the curved grid, the images of a single folder.
type Row struct {
	Index  int
	Images []models.ImageRecord
}

// GroupRows groups records by row index. Rows are ordered by index and
// the images of each row by column. The input is not modified.
func GroupRows(records []models.ImageRecord) []Row {
	byRow := make(map[int][]models.ImageRecord)
	for _, rec := range records {
		byRow[rec.Row] = append(byRow[rec.Row], rec)
	}

	rows := make([]Row, 0, len(byRow))
	for idx, images := range byRow {
		sort.SliceStable(images, func(i, j int) bool { return images[i].Column < images[j].Column })
		rows = append(rows, Row{Index: idx, Images: images})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows
}

// Engine computes curved grid slots. It holds no state besides its
// options, so the same inputs always produce the same slots.
type Engine struct {
	opts GridOptions
	log  *log.Logger
}

// NewEngine creates a grid engine. A nil logger discards output.
func NewEngine(opts GridOptions, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Engine{opts: opts, log: logger.WithPrefix("layout")}
}

// Options returns the engine's options.
func (e *Engine) Options() GridOptions { return e.opts }

// clamped returns radius and pitch guarded against degenerate values.
func (e *Engine) clamped() (radius, pitch float64) {
	radius = e.opts.Radius
	if !(radius >= MinRadius) {
		radius = MinRadius
	}
	pitch = e.opts.PanelWidth + e.opts.ColumnSpacing
	if !(pitch >= MinPitch) {
		pitch = MinPitch
	}
	return radius, pitch
}

// AngularStep returns the angle one image occupies on the arc:
// 2 * atan((width + spacing) / (2 * radius)).
func (e *Engine) AngularStep() float64 {
	radius, pitch := e.clamped()
	return 2 * math.Atan(pitch/(2*radius))
}

// ColumnAngle returns the signed angle of column col in a row of n images.
// The row is centred on the viewer's forward direction.
func (e *Engine) ColumnAngle(col, n int) float64 {
	step := e.AngularStep()
	start := -float64(n-1) * step / 2
	return start + float64(col)*step
}

// ComputeSlot computes the slot for one image without laying out the
// whole grid. It matches the corresponding ComputeSlots entry exactly.
func (e *Engine) ComputeSlot(row, col, imagesInRow int, frame models.ViewerFrame) (models.Slot, error) {
	if imagesInRow <= 0 {
		return models.Slot{}, fmt.Errorf("%w: row %d has no images", ErrDegenerateInput, row)
	}
	return e.slot(row, col, imagesInRow, frame), nil
}

func (e *Engine) slot(row, col, n int, frame models.ViewerFrame) models.Slot {
	radius, _ := e.clamped()
	angle := e.ColumnAngle(col, n)

	// Positive angles turn right, which is a negative rotation about +Y
	dir := r3.Rotate(frame.FlatForward(), -angle, models.WorldUp)

	pos := r3.Add(frame.Position, r3.Scale(radius, dir))
	pos.Y = frame.Position.Y + e.opts.UpOffset - float64(row)*(e.opts.PanelHeight+e.opts.RowSpacing)

	return models.Slot{
		Position:    pos,
		Orientation: models.FacingRotation(r3.Scale(-1, dir)),
		Width:       e.opts.PanelWidth,
		Height:      e.opts.PanelHeight,
		Angle:       angle,
	}
}

// ComputeSlots lays out every record on the curved grid, one arc per row.
// Slots are returned row by row in column order.
func (e *Engine) ComputeSlots(records []models.ImageRecord, frame models.ViewerFrame) []models.Slot {
	if e.opts.Radius < MinRadius || e.opts.PanelWidth+e.opts.ColumnSpacing < MinPitch {
		e.log.Warn("clamping degenerate grid geometry",
			"radius", e.opts.Radius, "pitch", e.opts.PanelWidth+e.opts.ColumnSpacing)
	}

	slots := make([]models.Slot, 0, len(records))
	for _, row := range GroupRows(records) {
		n := len(row.Images)
		for _, rec := range row.Images {
			s := e.slot(row.Index, rec.Column, n, frame)
			s.Record = rec
			slots = append(slots, s)
		}
		e.log.Debug("row laid out", "row", row.Index, "images", n,
			"extent", float64(n-1)*e.AngularStep())
	}
	return slots
}

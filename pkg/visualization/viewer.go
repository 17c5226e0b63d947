// Package visualization renders panel layouts to still images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r3"

	"panelspace/internal/models"
	"panelspace/pkg/curved"
	"panelspace/pkg/panel"
)

// Display colours for panels without a texture.
var (
	Background   = color.RGBA{R: 24, G: 24, B: 28, A: 255}
	LoadingColor = color.RGBA{R: 110, G: 110, B: 110, A: 255}
	FailedColor  = color.RGBA{R: 190, G: 40, B: 40, A: 255}
)

// Viewer renders what a viewer at the centre of the panel space sees as an
// equirectangular panorama: azimuth maps linearly to x and elevation to y,
// so panels on the curved grid appear side by side at equal sizes.
type Viewer struct {
	// frame is the viewer the panorama is centred on
	frame models.ViewerFrame

	// output size in pixels
	width  int
	height int

	// fov is the horizontal field of view in radians
	fov float64

	// scaler resamples textures into their screen quads
	scaler xdraw.Interpolator
}

// NewViewer creates a viewer rendering width x height pixels covering a
// horizontal field of view of fov radians. fov is clamped to (0, 2*pi].
func NewViewer(frame models.ViewerFrame, width, height int, fov float64) *Viewer {
	if !(fov > 0) || fov > 2*math.Pi {
		fov = 2 * math.Pi
	}
	return &Viewer{
		frame:  frame,
		width:  width,
		height: height,
		fov:    fov,
		scaler: xdraw.ApproxBiLinear,
	}
}

// PixelsPerRadian is the angular resolution of the panorama.
func (v *Viewer) PixelsPerRadian() float64 {
	return float64(v.width) / v.fov
}

// Direction returns the azimuth (positive to the viewer's right) and the
// elevation of p as seen from the viewer, in radians.
func (v *Viewer) Direction(p r3.Vec) (azimuth, elevation float64) {
	d := r3.Sub(p, v.frame.Position)
	fx := r3.Dot(d, v.frame.FlatForward())
	rx := r3.Dot(d, v.frame.Right())
	azimuth = math.Atan2(rx, fx)
	elevation = math.Atan2(d.Y, math.Hypot(fx, rx))
	return azimuth, elevation
}

// Project maps a world point to panorama pixel coordinates.
func (v *Viewer) Project(p r3.Vec) (x, y float64) {
	az, el := v.Direction(p)
	ppr := v.PixelsPerRadian()
	return float64(v.width)/2 + az*ppr, float64(v.height)/2 - el*ppr
}

// column is one vertical edge of a panel's image region in world space.
type column struct {
	u           float64
	bottom, top r3.Vec
}

// columns returns the image region edges of p, following its curve.
func columns(p *panel.Panel) []column {
	s := p.Slot()
	world := func(local [3]float32) r3.Vec {
		w := s.Position
		w = r3.Add(w, r3.Scale(float64(local[0]), s.Right()))
		w = r3.Add(w, r3.Scale(float64(local[1]), s.Up()))
		w = r3.Add(w, r3.Scale(float64(local[2]), s.Normal()))
		return w
	}

	if m := p.Mesh(); m != nil {
		return meshColumns(m, world)
	}

	hw, hh := float32(s.Width/2), float32(s.Height/2)
	return []column{
		{u: 0, bottom: world([3]float32{-hw, -hh, 0}), top: world([3]float32{-hw, hh, 0})},
		{u: 1, bottom: world([3]float32{hw, -hh, 0}), top: world([3]float32{hw, hh, 0})},
	}
}

func meshColumns(m *curved.Mesh, world func([3]float32) r3.Vec) []column {
	cols := make([]column, 0, m.Segments+1)
	for i := 0; i <= m.Segments; i++ {
		u, bottom, top := m.ImageColumn(i)
		cols = append(cols, column{u: float64(u), bottom: world(bottom), top: world(top)})
	}
	return cols
}

// Render draws every open panel, farthest first. Ready panels show their
// texture; loading and failed panels show a solid placeholder.
func (v *Viewer) Render(panels []*panel.Panel) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, v.width, v.height))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(Background), image.Point{}, xdraw.Src)

	ordered := make([]*panel.Panel, 0, len(panels))
	for _, p := range panels {
		if p.State() != panel.Closed {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return v.distance(ordered[i]) > v.distance(ordered[j])
	})

	for _, p := range ordered {
		v.drawPanel(dst, p)
	}
	return dst
}

func (v *Viewer) distance(p *panel.Panel) float64 {
	return r3.Norm(r3.Sub(p.Slot().Position, v.frame.Position))
}

// drawPanel draws p one strip per curve segment.
func (v *Viewer) drawPanel(dst *image.RGBA, p *panel.Panel) {
	var src image.Image
	if p.State() == panel.Ready {
		if tex := p.Texture(); tex != nil {
			if img := tex.Image(); img != nil {
				src = img
			}
		}
	}
	var fill image.Image = image.NewUniform(LoadingColor)
	if p.State() == panel.Failed {
		fill = image.NewUniform(FailedColor)
	}

	cols := columns(p)
	for i := 1; i < len(cols); i++ {
		a, b := cols[i-1], cols[i]
		x0, y0 := v.Project(a.top)
		x1, _ := v.Project(b.top)
		_, ya := v.Project(a.bottom)
		_, yb := v.Project(b.bottom)
		if math.Abs(x1-x0) > float64(v.width)/2 {
			// the strip wraps around behind the viewer
			continue
		}
		_, yt := v.Project(b.top)

		r := image.Rect(
			int(math.Round(math.Min(x0, x1))),
			int(math.Round(math.Min(y0, yt))),
			int(math.Round(math.Max(x0, x1))),
			int(math.Round(math.Max(ya, yb))),
		)
		if r.Empty() || !r.Overlaps(dst.Bounds()) {
			continue
		}

		if src == nil {
			xdraw.Draw(dst, r, fill, image.Point{}, xdraw.Over)
			continue
		}
		sb := src.Bounds()
		sr := image.Rect(
			sb.Min.X+int(math.Floor(a.u*float64(sb.Dx()))), sb.Min.Y,
			sb.Min.X+int(math.Ceil(b.u*float64(sb.Dx()))), sb.Max.Y,
		)
		if sr.Empty() {
			continue
		}
		v.scaler.Scale(dst, r, src, sr, xdraw.Over, nil)
	}
}

// SaveSnapshot saves img as PNG when filename ends in .png and as JPEG
// otherwise.
func SaveSnapshot(img image.Image, filename string) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer file.Close()

	if strings.EqualFold(filepath.Ext(filename), ".png") {
		err = png.Encode(file, img)
	} else {
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return file.Close()
}

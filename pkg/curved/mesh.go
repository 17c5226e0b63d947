// Package curved bends flat panels into sections of a cylinder.
//
// A panel of width w bent by curvature c in [0,1] becomes an arc of angle
// c*pi on a cylinder of radius w/(c*pi), so its arc length stays w. The
// cylinder axis is vertical and lies behind the panel: the centre column
// stays at local z = 0, nearest the viewer, and the edges recede to
// negative z. Local axes follow the panel convention: +X right, +Y up,
// +Z toward the viewer.
package curved

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"panelspace/pkg/config"
	"panelspace/pkg/stl"
)

// DefaultSegments is the number of horizontal segments of a curved mesh.
const DefaultSegments = 32

// Options configures mesh generation.
type Options struct {
	// Segments is the number of horizontal subdivisions
	Segments int

	// ControlBarHeight adds a strip of this height below the image that
	// follows the same curve. Zero disables it.
	ControlBarHeight float64

	// ControlMargin is added to the curve's forward excursion when
	// offsetting attached UI along the panel normal.
	ControlMargin float64
}

// OptionsFromConfig maps the curvature section of cfg onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Segments:         cfg.Curvature.Segments,
		ControlBarHeight: cfg.Curvature.ControlBarHeight,
		ControlMargin:    cfg.Curvature.ControlMargin,
	}
}

// Mesh is an indexed triangle mesh in panel-local space.
type Mesh struct {
	Positions [][3]float32
	Normals   [][3]float32
	UVs       [][2]float32
	Indices   []uint32

	Segments    int
	Width       float64
	Height      float64 // image region height
	TotalHeight float64 // image plus control bar
	Curvature   float64
	ArcAngle    float64
	Radius      float64 // zero when flat

	// ImageVMin and ImageVMax bound the image region in V
	ImageVMin float32
	ImageVMax float32
}

// MaxForward is how far the centre of the mesh stands in front of its edges.
func (m *Mesh) MaxForward() float64 {
	return maxForward(m.Radius, m.ArcAngle)
}

// Bounds returns the axis-aligned bounds of the mesh.
func (m *Mesh) Bounds() (lo, hi r3.Vec) {
	if len(m.Positions) == 0 {
		return lo, hi
	}
	inf := math.Inf(1)
	lo = r3.Vec{X: inf, Y: inf, Z: inf}
	hi = r3.Vec{X: -inf, Y: -inf, Z: -inf}
	for _, p := range m.Positions {
		v := r3.Vec{X: float64(p[0]), Y: float64(p[1]), Z: float64(p[2])}
		lo = r3.Vec{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = r3.Vec{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

// ImageColumn returns the U coordinate and the bottom and top vertices
// of the image region at column i, for 0 <= i <= Segments.
func (m *Mesh) ImageColumn(i int) (u float32, bottom, top [3]float32) {
	stride := m.Segments + 1
	rows := len(m.Positions) / stride
	top = m.Positions[(rows-1)*stride+i]
	bottom = m.Positions[(rows-2)*stride+i]
	return m.UVs[i][0], bottom, top
}

// Triangles converts the mesh to STL facets.
func (m *Mesh) Triangles() []stl.Triangle {
	tris := make([]stl.Triangle, 0, len(m.Indices)/3)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		tris = append(tris, stl.NewTriangle(m.Positions[a], m.Positions[b], m.Positions[c]))
	}
	return tris
}

func maxForward(radius, arc float64) float64 {
	if radius == 0 {
		return 0
	}
	return radius * (1 - math.Cos(arc/2))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Generator builds curved and flat panel meshes.
type Generator struct {
	opts Options
}

// NewGenerator creates a generator. Non-positive Segments fall back to DefaultSegments.
func NewGenerator(opts Options) *Generator {
	if opts.Segments < 1 {
		opts.Segments = DefaultSegments
	}
	if opts.ControlBarHeight < 0 {
		opts.ControlBarHeight = 0
	}
	return &Generator{opts: opts}
}

// Options returns the generator's options.
func (g *Generator) Options() Options { return g.opts }

// Generate returns the curved mesh of a width x height panel. It returns
// nil when curvature is 0 (the caller draws the flat panel) or the size
// is not positive. Curvature is clamped to [0,1].
func (g *Generator) Generate(width, height, curvature float64) *Mesh {
	curvature = clamp01(curvature)
	if curvature == 0 || !(width > 0) || !(height > 0) {
		return nil
	}
	m := &Mesh{}
	g.build(m, width, height, curvature)
	return m
}

// Flat returns the trivial flat mesh of a width x height panel.
func (g *Generator) Flat(width, height float64) *Mesh {
	if !(width > 0) || !(height > 0) {
		return nil
	}
	m := &Mesh{}
	g.build(m, width, height, 0)
	return m
}

// build fills m, reusing its buffers.
func (g *Generator) build(m *Mesh, width, height, curvature float64) {
	segs := g.opts.Segments
	bar := g.opts.ControlBarHeight
	total := height + bar

	m.Segments = segs
	m.Width = width
	m.Height = height
	m.TotalHeight = total
	m.Curvature = curvature
	m.ArcAngle = curvature * math.Pi
	m.Radius = 0
	if curvature > 0 {
		m.Radius = width / m.ArcAngle
	}
	m.ImageVMin = float32(bar / total)
	m.ImageVMax = 1

	// Vertex rows from bottom to top; the image is centred on y = 0
	type level struct{ y, v float64 }
	levels := []level{{-height / 2, bar / total}, {height / 2, 1}}
	if bar > 0 {
		levels = append([]level{{-height/2 - bar, 0}}, levels...)
	}

	m.Positions = m.Positions[:0]
	m.Normals = m.Normals[:0]
	m.UVs = m.UVs[:0]
	m.Indices = m.Indices[:0]

	for _, lv := range levels {
		for i := 0; i <= segs; i++ {
			u := float64(i) / float64(segs)
			x, z := u*width-width/2, 0.0
			nx, nz := 0.0, 1.0
			if m.Radius > 0 {
				angle := (u - 0.5) * m.ArcAngle
				sin, cos := math.Sincos(angle)
				x = m.Radius * sin
				z = m.Radius * (cos - 1)
				nx, nz = sin, cos
			}
			m.Positions = append(m.Positions, [3]float32{float32(x), float32(lv.y), float32(z)})
			m.Normals = append(m.Normals, [3]float32{float32(nx), 0, float32(nz)})
			m.UVs = append(m.UVs, [2]float32{float32(u), float32(lv.v)})
		}
	}

	stride := uint32(segs + 1)
	for j := 0; j < len(levels)-1; j++ {
		for i := 0; i < segs; i++ {
			a := uint32(j)*stride + uint32(i)
			b := a + 1
			c := a + stride
			d := c + 1
			m.Indices = append(m.Indices, a, b, d, a, d, c)
		}
	}
}

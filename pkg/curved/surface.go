package curved

// Params is the per-draw parameter block for a curved panel. It is
// computed from the surface state at draw time rather than stored on a
// material.
type Params struct {
	Curvature float32
	ArcAngle  float32
	Radius    float32
	Width     float32
	Height    float32
	ImageVMin float32
	ImageVMax float32
}

// Surface tracks the curvature state of one panel: the curvature amount,
// the panel size it was generated for and the generated mesh. Buffers are
// reused while the panel stays curved and freed when curvature returns to 0.
type Surface struct {
	gen       *Generator
	width     float64
	height    float64
	curvature float64
	mesh      *Mesh
}

// NewSurface creates a flat surface.
func NewSurface(gen *Generator) *Surface {
	return &Surface{gen: gen}
}

// Update regenerates the mesh when width, height or curvature changed and
// reports whether the curved mesh was rebuilt or dropped. Resizing a flat
// surface records the size and reports false.
func (s *Surface) Update(width, height, curvature float64) bool {
	curvature = clamp01(curvature)
	if width == s.width && height == s.height && curvature == s.curvature {
		return false
	}
	s.width, s.height, s.curvature = width, height, curvature

	if curvature == 0 || !(width > 0) || !(height > 0) {
		had := s.mesh != nil
		s.Release()
		return had
	}

	m := s.mesh
	if m == nil {
		m = &Mesh{}
	}
	s.gen.build(m, width, height, curvature)
	s.mesh = m
	return true
}

// Mesh returns the current curved mesh, or nil when the panel is flat.
// The mesh is rebuilt in place by the next Update that changes the size or
// curvature; callers that keep geometry across updates must copy it.
func (s *Surface) Mesh() *Mesh { return s.mesh }

// Curvature returns the current curvature amount.
func (s *Surface) Curvature() float64 { return s.curvature }

// Size returns the panel size the surface was last updated with.
func (s *Surface) Size() (width, height float64) { return s.width, s.height }

// ControlOffset is how far attached UI must sit along the panel normal
// to stay in front of the bent surface.
func (s *Surface) ControlOffset() float64 {
	offset := s.gen.opts.ControlMargin
	if s.mesh != nil {
		offset += s.mesh.MaxForward()
	}
	return offset
}

// Params returns the draw-time parameters for the current state.
func (s *Surface) Params() Params {
	p := Params{
		Curvature: float32(s.curvature),
		Width:     float32(s.width),
		Height:    float32(s.height),
		ImageVMax: 1,
	}
	if s.mesh != nil {
		p.ArcAngle = float32(s.mesh.ArcAngle)
		p.Radius = float32(s.mesh.Radius)
		p.ImageVMin = s.mesh.ImageVMin
		p.ImageVMax = s.mesh.ImageVMax
	}
	return p
}

// Release frees the mesh. A later Update allocates a new one.
func (s *Surface) Release() {
	s.mesh = nil
}

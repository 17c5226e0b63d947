// Package panel joins layout, image loading and curvature into displayable
// panels.
package panel

import (
	"github.com/google/uuid"

	"panelspace/internal/models"
	"panelspace/pkg/curved"
	"panelspace/pkg/imagecache"
)

// State is the display state of a panel.
type State int

const (
	// Loading panels show a loading indicator
	Loading State = iota
	// Ready panels show their texture
	Ready
	// Failed panels show an error state
	Failed
	// Closed panels are gone and ignore further updates
	Closed
	// Evicted panels lost their texture to the cache and wait for Reload
	Evicted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	case Evicted:
		return "evicted"
	}
	return "unknown"
}

// placement records how a panel was laid out so it can be laid out again.
type placement struct {
	grid        bool
	row, column int
	rowSize     int
}

// Panel is one image surface in the panel space. Panels are owned by a
// Coordinator and only change on its goroutine.
type Panel struct {
	id      uuid.UUID
	record  models.ImageRecord
	state   State
	err     error
	slot    models.Slot
	texture *imagecache.Texture
	aspect  float64
	surface *curved.Surface
	place   placement

	// loadSeq identifies the current load; older completions are stale
	loadSeq uint64
}

// ID returns the panel's identifier.
func (p *Panel) ID() uuid.UUID { return p.id }

// Record returns the image the panel displays.
func (p *Panel) Record() models.ImageRecord { return p.record }

// State returns the display state.
func (p *Panel) State() State { return p.state }

// Err returns the load error of a Failed panel.
func (p *Panel) Err() error { return p.err }

// Slot returns the panel's current placement and size.
func (p *Panel) Slot() models.Slot { return p.slot }

// Texture returns the loaded texture, or nil unless the panel is Ready.
func (p *Panel) Texture() *imagecache.Texture { return p.texture }

// Aspect returns the original image's width/height ratio, or 0 before
// the image has loaded.
func (p *Panel) Aspect() float64 { return p.aspect }

// Curvature returns the panel's curvature amount in [0,1].
func (p *Panel) Curvature() float64 { return p.surface.Curvature() }

// Mesh returns the curved mesh, or nil when the panel is drawn flat.
func (p *Panel) Mesh() *curved.Mesh { return p.surface.Mesh() }

// Params returns the draw-time curvature parameters.
func (p *Panel) Params() curved.Params { return p.surface.Params() }

// ControlOffset is how far in front of the panel plane attached controls
// must sit to stay clear of the bent surface.
func (p *Panel) ControlOffset() float64 { return p.surface.ControlOffset() }

// IsGrid reports whether the panel was placed on the curved grid.
func (p *Panel) IsGrid() bool { return p.place.grid }

// fitAspect returns the size of a panel of the given size refitted to
// aspect: landscape images keep the width, portrait images keep the height.
func fitAspect(width, height, aspect float64) (float64, float64) {
	if !(aspect > 0) {
		return width, height
	}
	if aspect >= 1 {
		return width, width / aspect
	}
	return height * aspect, height
}

// Package models holds the value types shared by the layout engine, the
// image cache and the panel coordinator.
package models

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// World axes. The world is right-handed with +Y up.
var (
	WorldUp   = r3.Vec{Y: 1}
	WorldDown = r3.Vec{Y: -1}
)

// Local panel axes. A panel's front face points along local +Z and its
// image reads left to right along local +X.
var (
	localRight  = r3.Vec{X: 1}
	localUp     = r3.Vec{Y: 1}
	localNormal = r3.Vec{Z: 1}
)

// ImageRecord represents a single image supplied by an image source
type ImageRecord struct {
	// Path is the absolute path of the image and its identity
	Path string

	// Row is the logical row index (one row per source folder)
	Row int

	// Column is the logical column index inside the row
	Column int

	// Name is the display name, usually the file name
	Name string

	// Folder is the name of the folder the image was found in
	Folder string
}

// ViewerFrame is the reference position and look direction used as the
// origin for every layout computation.
type ViewerFrame struct {
	Position r3.Vec
	Forward  r3.Vec
}

// FlatForward returns the look direction projected onto the horizontal
// plane and normalised. A vertical or zero forward vector falls back to +Z.
func (f ViewerFrame) FlatForward() r3.Vec {
	flat := r3.Vec{X: f.Forward.X, Z: f.Forward.Z}
	if r3.Norm(flat) < 1e-9 {
		return localNormal
	}
	return r3.Unit(flat)
}

// Right returns the viewer's horizontal right-hand direction.
func (f ViewerFrame) Right() r3.Vec {
	return r3.Cross(f.FlatForward(), WorldUp)
}

// Slot is the computed placement of one panel. Slots are recomputed
// wholesale and never mutated in place by the layout engine.
type Slot struct {
	// Position is the world position of the panel centre
	Position r3.Vec

	// Orientation rotates local panel axes into world space
	Orientation quat.Number

	// Width and Height are the panel size in meters
	Width  float64
	Height float64

	// Angle is the signed angle from the viewer's forward direction in
	// radians, positive to the viewer's right. Zero for tiled slots.
	Angle float64

	// Record is the image this slot was computed for
	Record ImageRecord
}

func (s Slot) rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(s.Orientation).Rotate(v)
}

// Right returns the panel's right axis in world space.
func (s Slot) Right() r3.Vec { return s.rotate(localRight) }

// Up returns the panel's up axis in world space.
func (s Slot) Up() r3.Vec { return s.rotate(localUp) }

// Normal returns the direction the panel's front face points to.
func (s Slot) Normal() r3.Vec { return s.rotate(localNormal) }

// WithSize returns a copy of the slot resized to width x height.
func (s Slot) WithSize(width, height float64) Slot {
	s.Width = width
	s.Height = height
	return s
}

// FacingRotation returns the rotation about the world up axis that turns
// the panel's front face toward normal. Only the horizontal part of
// normal is used, so panels always stay upright.
func FacingRotation(normal r3.Vec) quat.Number {
	yaw := math.Atan2(normal.X, normal.Z)
	return quat.Number(r3.NewRotation(yaw, WorldUp))
}

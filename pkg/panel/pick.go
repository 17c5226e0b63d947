package panel

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// location is a panel centre in the k-d tree.
type location struct {
	pos   r3.Vec
	panel *Panel
}

// Compare implements the kdtree.Comparable interface
func (l location) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(location)
	switch d {
	case 0:
		return l.pos.X - q.pos.X
	case 1:
		return l.pos.Y - q.pos.Y
	case 2:
		return l.pos.Z - q.pos.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the k-d tree
func (l location) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two centres
func (l location) Distance(c kdtree.Comparable) float64 {
	d := r3.Sub(l.pos, c.(location).pos)
	return r3.Dot(d, d)
}

type locations []location

func (l locations) Index(i int) kdtree.Comparable         { return l[i] }
func (l locations) Len() int                              { return len(l) }
func (l locations) Slice(start, end int) kdtree.Interface { return l[start:end] }

// Pivot implements the kdtree.Interface method
func (l locations) Pivot(d kdtree.Dim) int {
	p := locationPlane{locations: l, Dim: d}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// locationPlane implements sort.Interface and kdtree.SortSlicer for locations
type locationPlane struct {
	locations
	kdtree.Dim
}

func (p locationPlane) Less(i, j int) bool {
	return p.locations[i].Compare(p.locations[j], p.Dim) < 0
}

func (p locationPlane) Slice(start, end int) kdtree.SortSlicer {
	return locationPlane{locations: p.locations[start:end], Dim: p.Dim}
}

func (p locationPlane) Swap(i, j int) {
	p.locations[i], p.locations[j] = p.locations[j], p.locations[i]
}

// Nearest returns up to k open panels whose centres are closest to point,
// nearest first. It is used to pick the panel under a pointer or gaze hit.
func (c *Coordinator) Nearest(point r3.Vec, k int) []*Panel {
	if k <= 0 || len(c.order) == 0 {
		return nil
	}
	pts := make(locations, len(c.order))
	for i, p := range c.order {
		pts[i] = location{pos: p.slot.Position, panel: p}
	}
	tree := kdtree.New(pts, false)

	keeper := kdtree.NewNKeeper(k)
	tree.NearestSet(keeper, location{pos: point})

	found := make([]kdtree.ComparableDist, 0, k)
	for _, cd := range keeper.Heap {
		if cd.Comparable != nil {
			found = append(found, cd)
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })

	out := make([]*Panel, len(found))
	for i, cd := range found {
		out[i] = cd.Comparable.(location).panel
	}
	return out
}

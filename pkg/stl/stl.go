// Package stl writes and reads triangle meshes in the binary STL format.
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// Triangle is one STL facet.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// NewTriangle builds a facet from counter-clockwise vertices and derives
// its normal from the winding.
func NewTriangle(v1, v2, v3 [3]float32) Triangle {
	return Triangle{
		Normal:  faceNormal(v1, v2, v3),
		Vertex1: v1,
		Vertex2: v2,
		Vertex3: v3,
	}
}

func faceNormal(a, b, c [3]float32) [3]float32 {
	ux, uy, uz := float64(b[0]-a[0]), float64(b[1]-a[1]), float64(b[2]-a[2])
	vx, vy, vz := float64(c[0]-a[0]), float64(c[1]-a[1]), float64(c[2]-a[2])
	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx
	l := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return [3]float32{}
	}
	return [3]float32{float32(nx / l), float32(ny / l), float32(nz / l)}
}

// Scale multiplies every vertex by the given per-axis factors in place.
// Normals are recomputed.
func Scale(triangles []Triangle, x, y, z float32) {
	for i := range triangles {
		t := &triangles[i]
		for _, v := range []*[3]float32{&t.Vertex1, &t.Vertex2, &t.Vertex3} {
			v[0] *= x
			v[1] *= y
			v[2] *= z
		}
		t.Normal = faceNormal(t.Vertex1, t.Vertex2, t.Vertex3)
	}
}

// Write encodes triangles as binary STL.
func Write(w io.Writer, triangles []Triangle) error {
	var header [headerSize]byte
	copy(header[:], "panelspace binary STL")
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		return fmt.Errorf("failed to write triangle count: %w", err)
	}

	var buf [triangleSize]byte
	for _, t := range triangles {
		off := 0
		for _, v := range [4][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			for _, f := range v {
				binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
				off += 4
			}
		}
		// attribute byte count stays zero
		buf[48], buf[49] = 0, 0
		if _, err := w.Write(buf[:]); err != nil {
			return fmt.Errorf("failed to write triangle: %w", err)
		}
	}
	return nil
}

// SaveToSTL saves triangles to a binary STL file.
func SaveToSTL(filename string, triangles []Triangle) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create STL file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := Write(w, triangles); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush STL file: %w", err)
	}
	return file.Close()
}

// Read decodes a binary STL stream.
func Read(r io.Reader) ([]Triangle, error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("failed to read triangle count: %w", err)
	}

	triangles := make([]Triangle, 0, count)
	var buf [triangleSize]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("failed to read triangle %d: %w", i, err)
		}
		var vs [4][3]float32
		off := 0
		for j := range vs {
			for k := range vs[j] {
				vs[j][k] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
				off += 4
			}
		}
		triangles = append(triangles, Triangle{Normal: vs[0], Vertex1: vs[1], Vertex2: vs[2], Vertex3: vs[3]})
	}
	return triangles, nil
}

// LoadSTL reads a binary STL file.
func LoadSTL(filename string) ([]Triangle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open STL file: %w", err)
	}
	defer file.Close()
	return Read(bufio.NewReader(file))
}

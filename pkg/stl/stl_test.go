package stl

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestNewTriangleNormal verifies the normal follows counter-clockwise winding
func TestNewTriangleNormal(t *testing.T) {
	tri := NewTriangle([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 0})
	if tri.Normal != [3]float32{0, 0, 1} {
		t.Errorf("Expected normal (0,0,1), got %v", tri.Normal)
	}

	degenerate := NewTriangle([3]float32{1, 1, 1}, [3]float32{1, 1, 1}, [3]float32{1, 1, 1})
	if degenerate.Normal != [3]float32{} {
		t.Errorf("Expected zero normal for degenerate triangle, got %v", degenerate.Normal)
	}
}

// TestScale verifies that scaling applies per axis
func TestScale(t *testing.T) {
	triangles := []Triangle{
		NewTriangle([3]float32{0, 0, 0}, [3]float32{1, 0, 0}, [3]float32{0, 1, 1}),
	}
	Scale(triangles, 2.5, 1.5, 3.0)

	tri := triangles[0]
	if tri.Vertex2 != [3]float32{2.5, 0, 0} {
		t.Errorf("Vertex2 not scaled, got %v", tri.Vertex2)
	}
	if tri.Vertex3 != [3]float32{0, 1.5, 3} {
		t.Errorf("Vertex3 not scaled, got %v", tri.Vertex3)
	}
	if tri.Normal == [3]float32{} {
		t.Error("Normal should be recomputed after scaling")
	}
}

// TestSaveToSTL verifies that the STL file can be written and read back
func TestSaveToSTL(t *testing.T) {
	triangles := []Triangle{
		{
			Normal:  [3]float32{0, 0, 1},
			Vertex1: [3]float32{0, 0, 0},
			Vertex2: [3]float32{1, 0, 0},
			Vertex3: [3]float32{0, 1, 0},
		},
		NewTriangle([3]float32{0, 0, -1}, [3]float32{-1, 0, -1}, [3]float32{0, 1, -1}),
	}

	path := filepath.Join(t.TempDir(), "mesh.stl")
	if err := SaveToSTL(path, triangles); err != nil {
		t.Fatalf("Failed to save STL: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat output file: %v", err)
	}

	// STL header: 80 bytes, count: 4 bytes, 50 bytes per triangle
	wantSize := int64(80 + 4 + 50*len(triangles))
	if info.Size() != wantSize {
		t.Errorf("Expected %d bytes, got %d", wantSize, info.Size())
	}

	loaded, err := LoadSTL(path)
	if err != nil {
		t.Fatalf("Failed to load STL: %v", err)
	}
	if len(loaded) != len(triangles) {
		t.Fatalf("Expected %d triangles, got %d", len(triangles), len(loaded))
	}
	for i := range triangles {
		if loaded[i] != triangles[i] {
			t.Errorf("Triangle %d mismatch: got %+v, want %+v", i, loaded[i], triangles[i])
		}
	}
}

// TestReadTruncated verifies short input is rejected
func TestReadTruncated(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, []Triangle{NewTriangle([3]float32{}, [3]float32{1}, [3]float32{0, 1})}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	data := buf.Bytes()[:buf.Len()-10]
	if _, err := Read(bytes.NewReader(data)); err == nil {
		t.Error("Expected error for truncated STL data")
	}
}

// TestSaveToSTLBadPath verifies creation failures are reported
func TestSaveToSTLBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "mesh.stl")
	if err := SaveToSTL(path, nil); err == nil {
		t.Error("Expected error writing into a missing directory")
	}
}

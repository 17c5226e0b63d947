package visualization

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"panelspace/internal/models"
	"panelspace/pkg/config"
	"panelspace/pkg/curved"
	"panelspace/pkg/imagecache"
	"panelspace/pkg/layout"
	"panelspace/pkg/mainthread"
	"panelspace/pkg/panel"
)

var frame = models.ViewerFrame{Position: r3.Vec{Y: 1.6}, Forward: r3.Vec{Z: 1}}

// writeSolidPNG creates a w x h PNG filled with c and returns its path
func writeSolidPNG(t *testing.T, dir, name string, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
	return path
}

func newCoordinator(t *testing.T) (*panel.Coordinator, *mainthread.Queue) {
	t.Helper()
	cfg := config.DefaultConfig()
	q := mainthread.NewQueue(0)
	opts, err := imagecache.OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("Failed to map cache options: %v", err)
	}
	cache, err := imagecache.New(q, opts)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	t.Cleanup(cache.Shutdown)

	coord := panel.NewCoordinator(cache,
		layout.NewEngine(layout.GridOptionsFromConfig(cfg), nil),
		layout.NewTiler(layout.TilingOptionsFromConfig(cfg)),
		curved.NewGenerator(curved.OptionsFromConfig(cfg)),
		panel.OptionsFromConfig(cfg))
	return coord, q
}

func settle(t *testing.T, q *mainthread.Queue, coord *panel.Coordinator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.RunUntil(ctx, func() bool { return coord.Pending() == 0 }); err != nil {
		t.Fatalf("Timed out waiting for loads: %v", err)
	}
}

// TestProject verifies the panorama mapping of directions to pixels
func TestProject(t *testing.T) {
	v := NewViewer(frame, 720, 360, 2*math.Pi)

	x, y := v.Project(r3.Vec{Y: 1.6, Z: 2})
	if !scalar.EqualWithinAbs(x, 360, 1e-9) || !scalar.EqualWithinAbs(y, 180, 1e-9) {
		t.Errorf("Straight ahead projects to (%f, %f), want (360, 180)", x, y)
	}

	// the viewer's right is -X when looking down +Z
	az, el := v.Direction(r3.Vec{X: -2, Y: 1.6})
	if !scalar.EqualWithinAbs(az, math.Pi/2, 1e-9) || el != 0 {
		t.Errorf("Right direction = (%f, %f), want (pi/2, 0)", az, el)
	}
	x, _ = v.Project(r3.Vec{X: -2, Y: 1.6})
	if !scalar.EqualWithinAbs(x, 540, 1e-9) {
		t.Errorf("Right point at x=%f, want 540", x)
	}

	_, y = v.Project(r3.Vec{Y: 3.6, Z: 2})
	if y >= 180 {
		t.Errorf("Point above eye level should project above the centre, got y=%f", y)
	}

	if v := NewViewer(frame, 100, 50, -1); !scalar.EqualWithinAbs(v.PixelsPerRadian(), 100/(2*math.Pi), 1e-12) {
		t.Errorf("Invalid fov should fall back to a full panorama")
	}
}

// TestRenderStates verifies ready, failed and loading panels are drawn
func TestRenderStates(t *testing.T) {
	dir := t.TempDir()
	blue := color.RGBA{B: 255, A: 255}
	ready := writeSolidPNG(t, dir, "blue.png", 64, 48, blue)

	coord, q := newCoordinator(t)
	p1 := coord.Open(ready, frame)
	p2 := coord.Open(filepath.Join(dir, "missing.png"), frame)
	settle(t, q, coord)

	if p1.State() != panel.Ready || p2.State() != panel.Failed {
		t.Fatalf("Unexpected states %s, %s", p1.State(), p2.State())
	}

	v := NewViewer(frame, 720, 360, 2*math.Pi)
	img := v.Render(coord.Panels())
	if img.Bounds().Dx() != 720 || img.Bounds().Dy() != 360 {
		t.Fatalf("Unexpected output size %v", img.Bounds())
	}

	if got := img.RGBAAt(360, 180); got != blue {
		t.Errorf("Ready panel centre = %v, want %v", got, blue)
	}
	x, y := v.Project(p2.Slot().Position)
	if got := img.RGBAAt(int(x), int(y)); got != FailedColor {
		t.Errorf("Failed panel centre = %v, want %v", got, FailedColor)
	}
	if got := img.RGBAAt(5, 5); got != Background {
		t.Errorf("Corner = %v, want background", got)
	}

	p3 := coord.Open(filepath.Join(dir, "blue.png"), frame)
	coord.Close(p1.ID())
	x, y = v.Project(p3.Slot().Position)
	img = v.Render(coord.Panels())
	if got := img.RGBAAt(int(x), int(y)); got != blue {
		t.Errorf("Cached panel centre = %v, want %v", got, blue)
	}
	if got := img.RGBAAt(360, 180); got != Background {
		t.Errorf("Closed panel still drawn: %v", got)
	}
}

// TestRenderCurved verifies bending pulls the panel edges away from the viewer
func TestRenderCurved(t *testing.T) {
	dir := t.TempDir()
	path := writeSolidPNG(t, dir, "red.png", 40, 30, color.RGBA{R: 255, A: 255})

	coord, q := newCoordinator(t)
	p := coord.Open(path, frame)
	settle(t, q, coord)

	v := NewViewer(frame, 720, 360, 2*math.Pi)
	flatWidth := coveredWidth(v.Render(coord.Panels()), 180)

	if err := coord.SetCurvature(p.ID(), 1); err != nil {
		t.Fatalf("SetCurvature failed: %v", err)
	}
	curvedWidth := coveredWidth(v.Render(coord.Panels()), 180)

	if flatWidth == 0 || curvedWidth == 0 {
		t.Fatalf("Panel not drawn: flat %d, curved %d", flatWidth, curvedWidth)
	}
	// the edges move inward and back, so the panel spans a smaller angle
	if curvedWidth >= flatWidth {
		t.Errorf("Curved panel spans %d px, flat %d px", curvedWidth, flatWidth)
	}
}

func coveredWidth(img *image.RGBA, y int) int {
	n := 0
	for x := 0; x < img.Bounds().Dx(); x++ {
		if img.RGBAAt(x, y) != Background {
			n++
		}
	}
	return n
}

// TestSaveSnapshot verifies that snapshots are written as JPEG or PNG
func TestSaveSnapshot(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	dir := t.TempDir()

	jpgPath := filepath.Join(dir, "out", "preview.jpg")
	if err := SaveSnapshot(img, jpgPath); err != nil {
		t.Fatalf("Failed to save JPEG: %v", err)
	}
	f, err := os.Open(jpgPath)
	if err != nil {
		t.Fatalf("Failed to open JPEG: %v", err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("Output is not a JPEG: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 8 {
		t.Errorf("JPEG size %dx%d, want 16x8", cfg.Width, cfg.Height)
	}

	pngPath := filepath.Join(dir, "preview.PNG")
	if err := SaveSnapshot(img, pngPath); err != nil {
		t.Fatalf("Failed to save PNG: %v", err)
	}
	pf, err := os.Open(pngPath)
	if err != nil {
		t.Fatalf("Failed to open PNG: %v", err)
	}
	defer pf.Close()
	if _, err := png.DecodeConfig(pf); err != nil {
		t.Errorf("Output is not a PNG: %v", err)
	}
}

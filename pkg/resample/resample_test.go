package resample

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		w, h, max   int
		wantW       int
		wantH       int
		wantScaled  bool
	}{
		{100, 50, 200, 100, 50, false},
		{200, 200, 200, 200, 200, false},
		{4000, 2000, 1000, 1000, 500, true},
		{2000, 4000, 1000, 500, 1000, true},
		{10000, 3, 100, 100, 1, true},
		{3000, 2001, 1024, 1024, 683, true},
	}

	for _, tt := range tests {
		w, h, scaled := FitWithin(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH || scaled != tt.wantScaled {
			t.Errorf("FitWithin(%d, %d, %d) = (%d, %d, %v); want (%d, %d, %v)",
				tt.w, tt.h, tt.max, w, h, scaled, tt.wantW, tt.wantH, tt.wantScaled)
		}
	}
}

func TestDownscalePreservesAspect(t *testing.T) {
	for _, f := range []Filter{Area, Bilinear, Bicubic, Lanczos} {
		t.Run(f.String(), func(t *testing.T) {
			src := solidImage(300, 170, color.RGBA{R: 200, G: 100, B: 50, A: 255})
			dst, scaled := Downscale(src, 64, f)
			if !scaled {
				t.Fatal("Expected image to be scaled")
			}

			w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
			if max(w, h) != 64 {
				t.Errorf("Expected larger side 64, got %dx%d", w, h)
			}

			// The aspect ratio may only drift by rounding of one pixel
			want := float64(h) * 300 / 170
			if math.Abs(float64(w)-want) > 1 {
				t.Errorf("Aspect ratio drifted: %dx%d from 300x170", w, h)
			}
		})
	}
}

func TestAreaFilterAveragesCoveredPixels(t *testing.T) {
	// A 4x1 stripe of black/white pairs must average to mid gray at 2x1
	src := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			v := uint8(0)
			if x%2 == 1 {
				v = 255
			}
			src.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}

	dst := Resize(src, 2, 1, Area)
	for x := 0; x < 2; x++ {
		c := dst.RGBAAt(x, 0)
		if c.R < 120 || c.R > 135 {
			t.Errorf("Expected mid gray at x=%d, got %v", x, c)
		}
	}
}

func TestDownscaleLeavesSmallImagesAlone(t *testing.T) {
	src := solidImage(10, 20, color.RGBA{A: 255})
	dst, scaled := Downscale(src, 64, Area)
	if scaled {
		t.Error("Expected no scaling")
	}
	if dst != src {
		t.Error("Expected the RGBA source to be returned without a copy")
	}
}

func TestParseFilter(t *testing.T) {
	if f, err := ParseFilter("Lanczos"); err != nil || f != Lanczos {
		t.Errorf("ParseFilter(Lanczos) = %v, %v", f, err)
	}
	if f, err := ParseFilter(""); err != nil || f != Area {
		t.Errorf("ParseFilter(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFilter("nearest"); err == nil {
		t.Error("Expected an error for nearest-neighbour")
	}
}

func TestMipChain(t *testing.T) {
	base := solidImage(16, 5, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	chain := MipChain(base)

	if len(chain) != 5 {
		t.Fatalf("Expected 5 levels for a 16px base, got %d", len(chain))
	}
	if chain[0] != base {
		t.Error("Expected level 0 to be the base image")
	}

	wantSizes := [][2]int{{16, 5}, {8, 2}, {4, 1}, {2, 1}, {1, 1}}
	for i, lvl := range chain {
		w, h := lvl.Bounds().Dx(), lvl.Bounds().Dy()
		if w != wantSizes[i][0] || h != wantSizes[i][1] {
			t.Errorf("Level %d: expected %v, got %dx%d", i, wantSizes[i], w, h)
		}
		if c := lvl.RGBAAt(0, 0); c != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
			t.Errorf("Level %d: solid color not preserved, got %v", i, c)
		}
	}

	if MipChain(nil) != nil {
		t.Error("Expected nil chain for nil base")
	}
}

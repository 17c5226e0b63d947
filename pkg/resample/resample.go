// Package resample shrinks decoded images to a bounded texture size and
// builds the mip chains used for trilinear sampling.
package resample

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// Filter selects the reconstruction filter used when downsampling.
type Filter int

const (
	// Area averages every source pixel covered by a destination pixel.
	Area Filter = iota
	Bilinear
	Bicubic
	Lanczos
)

func (f Filter) String() string {
	switch f {
	case Area:
		return "area"
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	case Lanczos:
		return "lanczos"
	default:
		return "unknown"
	}
}

// ParseFilter maps a configuration string to a Filter.
func ParseFilter(name string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "area", "box":
		return Area, nil
	case "bilinear":
		return Bilinear, nil
	case "bicubic":
		return Bicubic, nil
	case "lanczos", "lanczos3":
		return Lanczos, nil
	}
	return Area, fmt.Errorf("unknown resample filter %q", name)
}

// areaKernel is a box filter. x/image/draw widens kernel support by the
// downscale ratio, so a unit box becomes an exact area average.
var areaKernel = &xdraw.Kernel{
	Support: 0.5,
	At:      func(float64) float64 { return 1 },
}

// FitWithin returns the size of a width x height image scaled so that
// neither side exceeds maxDim, preserving aspect ratio. Sides never drop
// below 1px. scaled is false when the image already fits.
func FitWithin(width, height, maxDim int) (w, h int, scaled bool) {
	if width <= 0 || height <= 0 || maxDim <= 0 {
		return width, height, false
	}
	if width <= maxDim && height <= maxDim {
		return width, height, false
	}

	scale := math.Min(float64(maxDim)/float64(width), float64(maxDim)/float64(height))
	w = max(1, int(math.Round(float64(width)*scale)))
	h = max(1, int(math.Round(float64(height)*scale)))
	return min(w, maxDim), min(h, maxDim), true
}

// ToRGBA returns img as *image.RGBA with its origin at (0,0), copying only when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// Resize scales src to exactly width x height with the given filter.
func Resize(src image.Image, width, height int, f Filter) *image.RGBA {
	switch f {
	case Bilinear:
		return ToRGBA(resize.Resize(uint(width), uint(height), src, resize.Bilinear))
	case Bicubic:
		return ToRGBA(resize.Resize(uint(width), uint(height), src, resize.Bicubic))
	case Lanczos:
		return ToRGBA(resize.Resize(uint(width), uint(height), src, resize.Lanczos3))
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	areaKernel.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

// Downscale shrinks src so its larger side is at most maxDim. Images that
// already fit are converted to RGBA and returned unscaled.
func Downscale(src image.Image, maxDim int, f Filter) (*image.RGBA, bool) {
	b := src.Bounds()
	w, h, scaled := FitWithin(b.Dx(), b.Dy(), maxDim)
	if !scaled {
		return ToRGBA(src), false
	}
	return Resize(src, w, h, f), true
}

// MipLevels returns the number of levels in a full chain for a width x height base.
func MipLevels(width, height int) int {
	m := max(width, height)
	if m <= 0 {
		return 0
	}
	return 1 + int(math.Floor(math.Log2(float64(m))))
}

// MipChain builds a full mip chain whose level 0 is base (not copied).
// Each level halves both sides with a 2x2 box filter until the larger
// side reaches 1px.
func MipChain(base *image.RGBA) []*image.RGBA {
	if base == nil || base.Rect.Empty() {
		return nil
	}
	n := MipLevels(base.Rect.Dx(), base.Rect.Dy())
	levels := make([]*image.RGBA, n)
	levels[0] = base
	for i := 1; i < n; i++ {
		levels[i] = halve(levels[i-1])
	}
	return levels
}

func halve(src *image.RGBA) *image.RGBA {
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	dw, dh := max(1, sw/2), max(1, sh/2)
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for dy := 0; dy < dh; dy++ {
		sy0 := min(dy*2, sh-1)
		sy1 := min(dy*2+1, sh-1)
		for dx := 0; dx < dw; dx++ {
			sx0 := min(dx*2, sw-1)
			sx1 := min(dx*2+1, sw-1)

			// Sample 2x2 region (odd sides reuse the last row/column)
			p00 := src.PixOffset(sx0, sy0)
			p10 := src.PixOffset(sx1, sy0)
			p01 := src.PixOffset(sx0, sy1)
			p11 := src.PixOffset(sx1, sy1)
			d := dst.PixOffset(dx, dy)
			for c := 0; c < 4; c++ {
				sum := uint16(src.Pix[p00+c]) + uint16(src.Pix[p10+c]) +
					uint16(src.Pix[p01+c]) + uint16(src.Pix[p11+c])
				dst.Pix[d+c] = uint8((sum + 2) / 4)
			}
		}
	}
	return dst
}

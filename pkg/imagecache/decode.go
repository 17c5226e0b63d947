package imagecache

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"panelspace/pkg/resample"
)

// prepared is the worker-side output of a load: pixels ready for upload
// plus the size of the image before any downscaling.
type prepared struct {
	levels         []*image.RGBA
	originalWidth  int
	originalHeight int
}

// readImage reads and decodes the file at path.
func readImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecodeFailure, path, err)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s: empty bounds", ErrDecodeFailure, path)
	}
	return img, nil
}

// prepare decodes path, downsamples it to maxDim and optionally builds mips.
// It runs on a worker goroutine and touches no cache state.
func prepare(path string, maxDim int, filter resample.Filter, mips bool) (*prepared, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	base, _ := resample.Downscale(img, maxDim, filter)

	p := &prepared{
		originalWidth:  b.Dx(),
		originalHeight: b.Dy(),
	}
	if mips {
		p.levels = resample.MipChain(base)
	} else {
		p.levels = []*image.RGBA{base}
	}
	return p, nil
}

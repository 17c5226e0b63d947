package imagecache

import "errors"

// Sentinel errors delivered in Result.Err. None of them is fatal: the
// caller shows an error state for the affected panel and carries on.
var (
	// ErrMissingFile is returned when the image path does not exist.
	ErrMissingFile = errors.New("image file not found")

	// ErrEmptyFile is returned when the file exists but reading it yields no bytes.
	ErrEmptyFile = errors.New("image file is empty")

	// ErrDecodeFailure is returned when the bytes are not a decodable image.
	ErrDecodeFailure = errors.New("image decode failed")

	// ErrShutdown is returned for loads that complete after Shutdown.
	ErrShutdown = errors.New("image cache shut down")
)

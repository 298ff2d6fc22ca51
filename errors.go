package qrscan

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/qrscan/camera"
	"github.com/MeKo-Tech/qrscan/decode"
)

var (
	// ErrNotFound signals that no code was present in the scanned frame or
	// image. During live scanning it is suppressed from the error callback;
	// static scans return it to the caller.
	ErrNotFound = decode.ErrNotFound

	// ErrTimeout reports that a decode request exceeded its deadline.
	ErrTimeout = decode.ErrTimeout

	// ErrDestroyed is returned by operations on a destroyed scanner.
	ErrDestroyed = errors.New("qrscan: scanner destroyed")
)

// Error kinds from the camera and decode packages, re-exported so callers
// only need this package for errors.As checks.
type (
	// BackendError wraps a failure reported by a decode backend.
	BackendError = decode.BackendError
	// CameraNotFoundError reports that no camera satisfied any constraint.
	CameraNotFoundError = camera.NotFoundError
	// CameraNotAvailableError reports that no active camera stream exists.
	CameraNotAvailableError = camera.NotAvailableError
	// NoFlashAvailableError reports that the camera has no torch.
	NoFlashAvailableError = camera.NoFlashError
)

// UnsupportedInputError reports that a static-scan input is not a recognized
// image, file, byte slice, reader, or URL kind.
type UnsupportedInputError struct {
	Kind string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("qrscan: unsupported input kind %s", e.Kind)
}

// ImageLoadError reports that a static image source failed to load or decode.
type ImageLoadError struct {
	Source string
	Err    error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("qrscan: loading image from %s: %v", e.Source, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// Package decode provides the pluggable QR decode backends used by the
// scanner: a native platform detector adapter and a worker-hosted software
// decoder built on gozxing. Both implementations share one request/response
// contract so call sites stay backend-agnostic.
package decode

import (
	"context"
	"image"
	"time"
)

// DefaultTimeout is the deadline applied to worker decode requests.
const DefaultTimeout = 10 * time.Second

// InversionMode controls which symbol polarities the software decoder scans.
type InversionMode int

const (
	// ScanOriginal scans only normal (dark-on-light) symbols.
	ScanOriginal InversionMode = iota
	// ScanInverted scans only color-inverted (light-on-dark) symbols.
	ScanInverted
	// ScanBoth scans normal polarity first, then inverted.
	ScanBoth
)

// GrayscaleWeights configure the color-to-grayscale conversion applied by the
// software decoder before binarization.
type GrayscaleWeights struct {
	Red   float64
	Green float64
	Blue  float64
	// UseIntegerApproximation selects a fixed-point conversion where the
	// weights are interpreted as x/256 integer coefficients.
	UseIntegerApproximation bool
}

// DefaultGrayscaleWeights returns the Rec. 601 style integer-approximated
// luma weights (77/150/29 over 256).
func DefaultGrayscaleWeights() GrayscaleWeights {
	return GrayscaleWeights{Red: 77, Green: 150, Blue: 29, UseIntegerApproximation: true}
}

// Engine turns pixel data into a decoded payload or reports that none was
// found. Exactly one decode request should be in flight per engine at a time;
// the scanner's loop guarantees this for session-owned engines.
type Engine interface {
	// Detect decodes a QR symbol from the image. It returns ErrNotFound when
	// no symbol is present, ErrTimeout when the backend misses its deadline,
	// and a *BackendError for backend failures.
	Detect(ctx context.Context, img image.Image) (string, error)

	// SetGrayscaleWeights reconfigures the software decoder's color
	// conversion. No-op on the native path.
	SetGrayscaleWeights(w GrayscaleWeights) error

	// SetInversionMode reconfigures which polarities the software decoder
	// scans. No-op on the native path.
	SetInversionMode(m InversionMode) error

	// Close releases the backend. For a worker engine this sends a close
	// control message; for the native path it is a no-op.
	Close() error
}

// Detector is the platform-provided synchronous detection capability the
// native path adapts. Implementations return the decoded payloads found in
// the image, or an empty slice when none are present.
type Detector interface {
	// SupportsQR reports whether the platform detector advertises support
	// for the QR symbology.
	SupportsQR() bool

	// Detect runs the platform detection primitive against the image.
	Detect(img image.Image) ([]string, error)
}

// Config controls engine creation.
type Config struct {
	// Native is the optional platform detector. When it advertises QR
	// support it is preferred over the worker decoder.
	Native Detector

	// Timeout bounds worker decode requests. Zero means DefaultTimeout.
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// newEngine applies the creation policy: prefer the native detector when the
// platform advertises QR support, otherwise spawn the worker decoder.
func newEngine(cfg Config) Engine {
	if cfg.Native != nil && cfg.Native.SupportsQR() {
		return &nativeEngine{det: cfg.Native}
	}
	return newWorkerEngine(cfg.timeout())
}

package qrscan

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/MeKo-Tech/qrscan/decode"
	"github.com/MeKo-Tech/qrscan/internal/frame"
)

// ScanOption configures a one-shot static scan.
type ScanOption func(*scanConfig)

type scanConfig struct {
	roi             image.Rectangle
	engine          decode.Engine
	retryWithoutROI bool
	engineCfg       decode.Config
}

// WithScanRegion restricts decoding to a sub-rectangle of the input. The
// default is the whole source.
func WithScanRegion(roi image.Rectangle) ScanOption {
	return func(c *scanConfig) { c.roi = roi }
}

// WithEngine supplies an externally owned decode engine for the scan.
// Ownership stays with the caller: the engine is not closed on completion.
func WithEngine(e decode.Engine) ScanOption {
	return func(c *scanConfig) { c.engine = e }
}

// WithRetryWithoutRegion retries against the whole source when nothing is
// found inside the scan region.
func WithRetryWithoutRegion() ScanOption {
	return func(c *scanConfig) { c.retryWithoutROI = true }
}

// WithScanDetector injects a platform detector for a one-off engine created
// by this scan. Ignored when WithEngine is used.
func WithScanDetector(d decode.Detector) ScanOption {
	return func(c *scanConfig) { c.engineCfg.Native = d }
}

// WithScanTimeout overrides the one-off engine's decode deadline. Ignored
// when WithEngine is used.
func WithScanTimeout(d time.Duration) ScanOption {
	return func(c *scanConfig) { c.engineCfg.Timeout = d }
}

// ScanImage decodes a QR code from a static input: an image.Image, a file
// path, an http(s) URL, encoded bytes, or an io.Reader. It returns the
// decoded payload, ErrNotFound when the input holds no code, an
// *UnsupportedInputError for unrecognized input kinds, or an *ImageLoadError
// when the source cannot be loaded.
func ScanImage(ctx context.Context, in any, opts ...ScanOption) (string, error) {
	var cfg scanConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	img, err := loadInput(ctx, in)
	if err != nil {
		return "", err
	}

	engine := cfg.engine
	if engine == nil {
		owned := decode.NewHandle(cfg.engineCfg)
		defer func() { _ = owned.Close() }()
		engine = owned.Engine()
	}

	canvas := frame.NewCanvas(0)
	payload, err := engine.Detect(ctx, canvas.Draw(img, cfg.roi, false))
	if errors.Is(err, decode.ErrNotFound) && cfg.retryWithoutROI && !cfg.roi.Empty() {
		payload, err = engine.Detect(ctx, canvas.Draw(img, image.Rectangle{}, false))
	}
	return payload, err
}

package decode

import (
	"context"
	"image"
)

// nativeEngine adapts a platform Detector to the Engine contract. The
// platform call is synchronous-ish; "no result" is normalized to ErrNotFound
// and any failure to a *BackendError.
type nativeEngine struct {
	det Detector
}

func (e *nativeEngine) Detect(_ context.Context, img image.Image) (string, error) {
	payloads, err := e.det.Detect(img)
	if err != nil {
		return "", &BackendError{Op: "native detect", Err: err}
	}
	if len(payloads) == 0 {
		return "", ErrNotFound
	}
	return payloads[0], nil
}

func (e *nativeEngine) SetGrayscaleWeights(GrayscaleWeights) error { return nil }

func (e *nativeEngine) SetInversionMode(InversionMode) error { return nil }

func (e *nativeEngine) Close() error { return nil }

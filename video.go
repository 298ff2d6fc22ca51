package qrscan

import (
	"context"
	"image"
	"time"

	"github.com/MeKo-Tech/qrscan/camera"
)

// VideoSource is the live video surface a Scanner samples frames from: the
// engine's view of the host's video element. The session attaches camera
// streams to it, controls playback, and reads frames back out.
type VideoSource interface {
	// Attach binds an acquired camera stream to the surface.
	Attach(stream camera.Stream) error

	// Detach unbinds the current stream, if any.
	Detach()

	// Play starts or resumes playback.
	Play() error

	// Pause suspends playback.
	Pause()

	// Playing reports whether the surface is currently playing.
	Playing() bool

	// Ended reports whether playback has ended.
	Ended() bool

	// Ready reports whether current frame data is decodable. While false the
	// scan loop skips decoding and reschedules, avoiding both decode errors
	// and stale-frame false positives held over from before a seek/restart.
	Ready() bool

	// Size returns the intrinsic dimensions, or zeros before they are known.
	Size() (width, height int)

	// Frame returns the current frame.
	Frame() (image.Image, error)

	// SetMirrored toggles the horizontal flip of the presentation. User-facing
	// streams are mirrored so the displayed image is intuitive for someone
	// positioning a code; rear-facing streams never are.
	SetMirrored(mirrored bool)
}

// Scheduler paces the scan loop to the host's display refresh. Wait blocks
// until the next frame callback is due, returning the context error when the
// session leaves the active state first.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// defaultFrameInterval approximates a 60 Hz display refresh.
const defaultFrameInterval = time.Second / 60

// TickerScheduler approximates a display refresh source with a fixed
// interval. A zero Interval means defaultFrameInterval.
type TickerScheduler struct {
	Interval time.Duration
}

func (s TickerScheduler) Wait(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultFrameInterval
	}
	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Visibility reports whether the host page is visible to the user. When it
// becomes hidden the scanner pauses regardless of caller intent; when it
// becomes visible again a logically active session resumes.
type Visibility interface {
	Visible() bool

	// Changes emits visibility transitions. A nil channel means visibility
	// never changes.
	Changes() <-chan bool
}

// alwaysVisible is the default Visibility for hosts without a hidden state.
type alwaysVisible struct{}

func (alwaysVisible) Visible() bool        { return true }
func (alwaysVisible) Changes() <-chan bool { return nil }

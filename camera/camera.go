// Package camera manages camera stream acquisition and release for the
// scanner. The host platform's media capability is consumed through the
// Provider interface; this package owns constraint negotiation, facing-mode
// fallback and detection, the mirroring decision, and torch control.
package camera

import (
	"context"
	"strings"
)

// Facing identifies which physical camera a stream originates from.
type Facing string

const (
	// FacingEnvironment is the rear, world-facing camera.
	FacingEnvironment Facing = "environment"
	// FacingUser is the front, selfie-style camera.
	FacingUser Facing = "user"
	// FacingUnknown means the facing mode could not be determined.
	FacingUnknown Facing = ""
)

// Opposite returns the other facing mode, or FacingUnknown for FacingUnknown.
func (f Facing) Opposite() Facing {
	switch f {
	case FacingEnvironment:
		return FacingUser
	case FacingUser:
		return FacingEnvironment
	default:
		return FacingUnknown
	}
}

// Constraints describe a single stream acquisition attempt.
type Constraints struct {
	Facing Facing
	// ExactFacing makes the facing mode a hard constraint.
	ExactFacing bool
	// MinWidth is the minimum acceptable stream width in pixels; zero means
	// unconstrained.
	MinWidth int
}

// Track is a single media track of an acquired stream.
type Track interface {
	// Label returns the human-readable device label, used for facing-mode
	// detection when the platform does not report it directly.
	Label() string

	// Stop releases the track's hardware. Stopping a track also drops any
	// active torch as a platform side effect.
	Stop()
}

// Stream is an OS-level camera stream handle with zero or more tracks.
type Stream interface {
	Tracks() []Track
}

// FacingReporter is implemented by streams whose platform reports the facing
// mode directly, short-circuiting label inspection.
type FacingReporter interface {
	Facing() Facing
}

// Provider is the host platform's opaque media acquisition capability.
type Provider interface {
	// Available reports best-effort whether any camera capability exists.
	Available() bool

	// Open acquires a stream satisfying the constraints.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// DetectFacing infers the facing mode from a track label. The match is
// case-insensitive and returns FacingUnknown when no known substring appears.
func DetectFacing(label string) Facing {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "rear"), strings.Contains(l, "back"), strings.Contains(l, "environment"):
		return FacingEnvironment
	case strings.Contains(l, "front"), strings.Contains(l, "user"), strings.Contains(l, "face"):
		return FacingUser
	default:
		return FacingUnknown
	}
}

// StopTracks stops every track of the stream, releasing the hardware. Torch
// shutoff is left to the platform side effect of stopping the tracks.
func StopTracks(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// PrimaryTrack returns the stream's first track, or nil when it has none.
func PrimaryTrack(s Stream) Track {
	if s == nil {
		return nil
	}
	tracks := s.Tracks()
	if len(tracks) == 0 {
		return nil
	}
	return tracks[0]
}

package camera

import (
	"context"
	"log/slog"

	"github.com/MeKo-Tech/qrscan/internal/metrics"
)

// widthLadder is the descending list of minimum-width constraints attempted
// during negotiation: prefer a high-resolution stream, settle for anything.
var widthLadder = []int{1024, 768, 0}

// Manager negotiates camera stream acquisition against a Provider.
type Manager struct {
	provider Provider
	logger   *slog.Logger
}

// NewManager returns a manager for the given provider. A nil logger falls
// back to slog.Default().
func NewManager(p Provider, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{provider: p, logger: logger}
}

// Acquire opens a stream for the preferred facing mode, walking the width
// constraint ladder and falling back once to the opposite facing mode
// (non-exact) when the preferred one cannot be satisfied. It returns the
// stream together with the resolved facing mode, which callers use for the
// mirroring decision: user-facing streams are mirrored, rear-facing never.
func (m *Manager) Acquire(ctx context.Context, preferred Facing, exact bool) (Stream, Facing, error) {
	if m.provider == nil || !m.provider.Available() {
		metrics.CameraAcquisitions.WithLabelValues(string(preferred), "no_capability").Inc()
		return nil, FacingUnknown, &NotFoundError{Facing: preferred}
	}

	stream, err := m.tryLadder(ctx, preferred, exact)
	requested := preferred
	if err != nil && preferred.Opposite() != FacingUnknown {
		m.logger.Debug("camera acquisition failed, falling back to opposite facing",
			"preferred", string(preferred), "error", err)
		requested = preferred.Opposite()
		stream, err = m.tryLadder(ctx, requested, false)
	}
	if err != nil {
		metrics.CameraAcquisitions.WithLabelValues(string(preferred), "failed").Inc()
		return nil, FacingUnknown, &NotFoundError{Facing: preferred, Err: err}
	}

	facing := resolveFacing(stream, requested)
	metrics.CameraAcquisitions.WithLabelValues(string(facing), "ok").Inc()
	m.logger.Debug("camera stream acquired", "facing", string(facing))
	return stream, facing, nil
}

// tryLadder attempts the width constraint ladder for one facing mode. The
// facing mode is a hard constraint only on the first attempt, and only when
// the caller asked for exactness.
func (m *Manager) tryLadder(ctx context.Context, facing Facing, exact bool) (Stream, error) {
	var lastErr error
	for i, minWidth := range widthLadder {
		c := Constraints{
			Facing:      facing,
			ExactFacing: exact && i == 0,
			MinWidth:    minWidth,
		}
		stream, err := m.provider.Open(ctx, c)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// resolveFacing determines the actual facing mode of an acquired stream:
// platform report first, then track label inspection, then the facing mode
// that was requested in the successful attempt.
func resolveFacing(stream Stream, requested Facing) Facing {
	if r, ok := stream.(FacingReporter); ok {
		if f := r.Facing(); f != FacingUnknown {
			return f
		}
	}
	if t := PrimaryTrack(stream); t != nil {
		if f := DetectFacing(t.Label()); f != FacingUnknown {
			return f
		}
	}
	return requested
}

// HasCamera reports best-effort whether the provider exposes any camera
// capability. It never panics, even for misbehaving providers.
func HasCamera(p Provider) (has bool) {
	defer func() {
		if recover() != nil {
			has = false
		}
	}()
	return p != nil && p.Available()
}

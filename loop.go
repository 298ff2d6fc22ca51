package qrscan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/qrscan/decode"
	"github.com/MeKo-Tech/qrscan/internal/frame"
	"github.com/MeKo-Tech/qrscan/internal/metrics"
)

// loop is the per-frame scan cycle, paced by the scheduler. Every
// continuation point re-checks the session state so no further scheduling
// happens once the session leaves the active states.
func (s *Scanner) loop(ctx context.Context) {
	for {
		if err := s.scheduler.Wait(ctx); err != nil {
			return
		}
		s.mu.Lock()
		st, destroyed := s.st, s.destroyed
		s.mu.Unlock()
		if destroyed || st == stateStopped {
			return
		}
		if st == statePaused || !s.video.Playing() || s.video.Ended() {
			continue
		}
		if !s.video.Ready() {
			// Frame data is not decodable yet; skip this tick and reschedule
			// immediately rather than decode a stale frame.
			continue
		}
		s.scanFrame(ctx)
	}
}

// scanFrame samples the current region of interest, submits it to the decode
// backend, and delivers the outcome. The completion path checks the active
// flag before invoking caller callbacks so a stop during an in-flight decode
// surfaces nothing.
func (s *Scanner) scanFrame(ctx context.Context) {
	img, err := s.video.Frame()
	if err != nil {
		if s.stillActive() {
			s.reportError(fmt.Errorf("qrscan: sampling frame: %w", err))
		}
		return
	}
	width, height := s.video.Size()
	roi := frame.CenteredROI(width, height)
	buf := s.canvas.Draw(img, roi, true)
	metrics.FramesSampled.Inc()

	handle := s.currentHandle()
	if handle == nil {
		return
	}
	engine := handle.Engine()
	if engine == nil {
		return
	}

	start := time.Now()
	payload, err := engine.Detect(ctx, buf)
	elapsed := time.Since(start)

	if !s.stillActive() {
		return
	}
	switch {
	case err == nil:
		metrics.ObserveDecode(metrics.OutcomeOK, elapsed)
		s.onDecode(payload)
	case errors.Is(err, decode.ErrNotFound):
		// A decode attempt finding nothing is not a user-facing error; the
		// loop just continues.
		metrics.ObserveDecode(metrics.OutcomeNotFound, elapsed)
	case errors.Is(err, decode.ErrTimeout):
		metrics.ObserveDecode(metrics.OutcomeTimeout, elapsed)
		s.reportError(err)
	case decode.IsUnavailable(err):
		metrics.ObserveDecode(metrics.OutcomeError, elapsed)
		s.replaceEngine(handle)
		s.reportError(err)
	default:
		metrics.ObserveDecode(metrics.OutcomeError, elapsed)
		s.reportError(err)
	}
}

func (s *Scanner) stillActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.destroyed && s.st != stateStopped
}

// replaceEngine atomically swaps in a fresh decode handle after a fatal
// backend failure. In-flight requests against the old backend are abandoned,
// never retried against the new one. The identity check keeps concurrent
// failures from creating more than one replacement.
func (s *Scanner) replaceEngine(old *decode.Handle) {
	s.mu.Lock()
	if s.destroyed || s.engine != old {
		s.mu.Unlock()
		return
	}
	s.engine = decode.NewHandle(s.engineCfg)
	s.mu.Unlock()

	_ = old.Close()
	metrics.BackendReplacements.Inc()
	s.logger.Warn("decode backend unavailable, replaced")
}

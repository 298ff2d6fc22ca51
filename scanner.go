// Package qrscan implements a live QR-code scanning engine: it manages a
// camera (or static image) feed, repeatedly samples candidate regions of
// interest from frames, dispatches them to a decode backend, and delivers
// decoded payloads or structured errors back to the caller, while handling
// device lifecycle, visibility, and torch control.
package qrscan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/qrscan/camera"
	"github.com/MeKo-Tech/qrscan/decode"
	"github.com/MeKo-Tech/qrscan/internal/frame"
)

// DefaultCanvasSize is the side length of the fixed pixel buffer live frames
// are sampled into.
const DefaultCanvasSize = 400

// DefaultGracePeriod is how long a paused session keeps the camera before
// releasing the hardware, avoiding flicker on rapid pause/resume.
const DefaultGracePeriod = 300 * time.Millisecond

type state int

const (
	stateStopped state = iota
	stateActive
	statePaused // logically active, playback suspended
)

// Scanner drives repeated capture, decode, and deliver cycles against a video
// source. At most one decode request is in flight per scanner at any time;
// the loop is self-throttling to decode latency and never queues frames.
type Scanner struct {
	id       string
	video    VideoSource
	onDecode func(payload string)
	onError  func(err error)
	logger   *slog.Logger

	provider   camera.Provider
	sessions   *camera.Manager
	torch      *camera.Torch
	scheduler  Scheduler
	visibility Visibility

	preferredFacing camera.Facing
	grace           time.Duration
	canvasSize      int
	canvas          *frame.Canvas
	engineCfg       decode.Config

	mu           sync.Mutex
	st           state
	hiddenPause  bool
	acquiring    bool
	destroyed    bool
	stream       camera.Stream
	engine       *decode.Handle
	releaseTimer *time.Timer
	loopCancel   context.CancelFunc

	visStop chan struct{}
}

// Option configures a Scanner at construction.
type Option func(*Scanner)

// WithErrorCallback routes scan-loop failures to fn instead of the logger.
// The synthetic "no code found" outcome never reaches it.
func WithErrorCallback(fn func(error)) Option {
	return func(s *Scanner) { s.onError = fn }
}

// WithCameraProvider injects the host platform's media acquisition
// capability. Without one, Start fails with a CameraNotFoundError.
func WithCameraProvider(p camera.Provider) Option {
	return func(s *Scanner) { s.provider = p }
}

// WithPreferredFacing sets the facing mode requested first. The default is
// the rear, environment-facing camera.
func WithPreferredFacing(f camera.Facing) Option {
	return func(s *Scanner) { s.preferredFacing = f }
}

// WithCanvasSize overrides the fixed sample buffer side length (default 400).
func WithCanvasSize(size int) Option {
	return func(s *Scanner) { s.canvasSize = size }
}

// WithNativeDetector injects a platform detection primitive. When it
// advertises QR support it is preferred over the worker decoder.
func WithNativeDetector(d decode.Detector) Option {
	return func(s *Scanner) { s.engineCfg.Native = d }
}

// WithDecodeTimeout overrides the worker decode deadline (default 10s).
func WithDecodeTimeout(d time.Duration) Option {
	return func(s *Scanner) { s.engineCfg.Timeout = d }
}

// WithScheduler overrides the display-refresh source driving the loop.
func WithScheduler(sched Scheduler) Option {
	return func(s *Scanner) { s.scheduler = sched }
}

// WithVisibility wires the host's page visibility signal into the session.
func WithVisibility(v Visibility) Option {
	return func(s *Scanner) { s.visibility = v }
}

// WithGracePeriod overrides how long a paused session keeps the camera
// before releasing the hardware (default 300ms).
func WithGracePeriod(d time.Duration) Option {
	return func(s *Scanner) { s.grace = d }
}

// WithLogger sets the structured logger; slog.Default() otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// NewScanner constructs a scanner bound to a video source and a decode
// callback. The session is not started.
func NewScanner(video VideoSource, onDecode func(payload string), opts ...Option) (*Scanner, error) {
	if video == nil {
		return nil, errors.New("qrscan: nil video source")
	}
	if onDecode == nil {
		return nil, errors.New("qrscan: nil decode callback")
	}
	s := &Scanner{
		id:              uuid.NewString(),
		video:           video,
		onDecode:        onDecode,
		preferredFacing: camera.FacingEnvironment,
		grace:           DefaultGracePeriod,
		canvasSize:      DefaultCanvasSize,
		scheduler:       TickerScheduler{},
		visibility:      alwaysVisible{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("session_id", s.id)
	s.sessions = camera.NewManager(s.provider, s.logger)
	s.torch = camera.NewTorch()
	s.canvas = frame.NewCanvas(s.canvasSize)
	s.engine = decode.NewHandle(s.engineCfg)

	if ch := s.visibility.Changes(); ch != nil {
		s.visStop = make(chan struct{})
		go s.watchVisibility(ch)
	}
	return s, nil
}

// Start begins or resumes scanning. It is a no-op while the session is
// already active and unpaused; it cancels any pending grace release; while
// the host is hidden it transitions the state but defers hardware engagement
// until visibility returns. On total failure to acquire a stream the session
// reverts to stopped and the error is returned.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return ErrDestroyed
	}
	s.cancelReleaseLocked()
	alreadyActive := s.st == stateActive
	s.st = stateActive
	s.hiddenPause = false

	if !s.visibility.Visible() {
		s.mu.Unlock()
		return nil
	}
	if s.stream != nil {
		s.ensureLoopLocked()
		s.mu.Unlock()
		if alreadyActive {
			return nil
		}
		return s.video.Play()
	}
	if s.acquiring {
		s.mu.Unlock()
		return nil
	}
	s.acquiring = true
	s.mu.Unlock()

	stream, facing, err := s.sessions.Acquire(ctx, s.preferredFacing, true)

	s.mu.Lock()
	s.acquiring = false
	if err != nil {
		s.st = stateStopped
		s.mu.Unlock()
		return err
	}
	if s.destroyed || s.st != stateActive {
		// Stopped or destroyed while the acquisition was in flight.
		s.mu.Unlock()
		camera.StopTracks(stream)
		return nil
	}
	s.stream = stream
	s.torch.Bind(camera.PrimaryTrack(stream))
	s.ensureLoopLocked()
	s.mu.Unlock()

	if err := s.video.Attach(stream); err != nil {
		s.mu.Lock()
		s.st = stateStopped
		s.stream = nil
		s.stopLoopLocked()
		s.mu.Unlock()
		s.torch.Unbind()
		camera.StopTracks(stream)
		return err
	}
	s.video.SetMirrored(facing == camera.FacingUser)
	s.logger.Info("scanning started", "facing", string(facing))
	return s.video.Play()
}

// Pause suspends scanning while retaining the logical active intent. The
// camera hardware is released after the grace period unless Start is called
// within it; repeated pauses never reset an already pending release.
func (s *Scanner) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.st == stateStopped {
		return
	}
	s.pauseLocked(false)
}

// Stop pauses and transitions the session fully to stopped. Hardware is
// still released after the grace period.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.st == stateStopped {
		return
	}
	s.pauseLocked(false)
	s.st = stateStopped
	s.stopLoopLocked()
}

// Destroy unbinds all listeners, stops scanning, releases the camera
// immediately, and closes the owned decode backend. The scanner cannot be
// reused afterwards.
func (s *Scanner) Destroy() {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.st = stateStopped
	s.hiddenPause = false
	s.cancelReleaseLocked()
	s.stopLoopLocked()
	stream := s.stream
	s.stream = nil
	engine := s.engine
	s.engine = nil
	s.mu.Unlock()

	if s.visStop != nil {
		close(s.visStop)
	}
	s.video.Pause()
	if stream != nil {
		s.video.Detach()
		camera.StopTracks(stream)
		s.torch.Unbind()
	}
	if engine != nil {
		_ = engine.Close()
	}
	s.logger.Debug("scanner destroyed")
}

// SetGrayscaleWeights reconfigures the worker backend's color-to-grayscale
// conversion; it is a no-op on a native backend.
func (s *Scanner) SetGrayscaleWeights(w decode.GrayscaleWeights) error {
	engine, err := s.currentEngine()
	if err != nil {
		return err
	}
	return engine.SetGrayscaleWeights(w)
}

// SetInversionMode reconfigures which symbol polarities the worker backend
// scans; it is a no-op on a native backend.
func (s *Scanner) SetInversionMode(m decode.InversionMode) error {
	engine, err := s.currentEngine()
	if err != nil {
		return err
	}
	return engine.SetInversionMode(m)
}

// HasFlash reports whether the active camera has a torch. A platform without
// capability introspection yields false without error; the absence of an
// active stream is a CameraNotAvailableError.
func (s *Scanner) HasFlash(ctx context.Context) (bool, error) {
	return s.torch.Available(ctx)
}

// IsFlashOn returns the cached torch state without re-probing hardware.
func (s *Scanner) IsFlashOn() bool { return s.torch.On() }

// TurnFlashOn enables the torch; NoFlashAvailableError when unsupported.
func (s *Scanner) TurnFlashOn(ctx context.Context) error { return s.torch.Set(ctx, true) }

// TurnFlashOff disables the torch.
func (s *Scanner) TurnFlashOff(ctx context.Context) error { return s.torch.Set(ctx, false) }

// ToggleFlash flips the torch state.
func (s *Scanner) ToggleFlash(ctx context.Context) error {
	return s.torch.Set(ctx, !s.torch.On())
}

// HasCamera reports best-effort whether the provider exposes any camera
// capability. It never panics.
func HasCamera(p camera.Provider) bool { return camera.HasCamera(p) }

func (s *Scanner) currentEngine() (decode.Engine, error) {
	s.mu.Lock()
	handle := s.engine
	s.mu.Unlock()
	if handle == nil {
		return nil, ErrDestroyed
	}
	engine := handle.Engine()
	if engine == nil {
		return nil, ErrDestroyed
	}
	return engine, nil
}

func (s *Scanner) currentHandle() *decode.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// pauseLocked suspends playback and schedules the grace release. Callers
// hold s.mu.
func (s *Scanner) pauseLocked(hidden bool) {
	s.st = statePaused
	s.hiddenPause = hidden
	s.video.Pause()
	if s.releaseTimer == nil && s.stream != nil {
		s.releaseTimer = time.AfterFunc(s.grace, s.releaseAfterGrace)
	}
}

func (s *Scanner) cancelReleaseLocked() {
	if s.releaseTimer != nil {
		s.releaseTimer.Stop()
		s.releaseTimer = nil
	}
}

func (s *Scanner) releaseAfterGrace() {
	s.mu.Lock()
	s.releaseTimer = nil
	if s.st == stateActive || s.destroyed {
		s.mu.Unlock()
		return
	}
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream != nil {
		s.video.Detach()
		camera.StopTracks(stream)
		s.torch.Unbind()
		s.logger.Debug("camera stream released after grace period")
	}
}

func (s *Scanner) ensureLoopLocked() {
	if s.loopCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.loopCancel = cancel
	go s.loop(ctx)
}

func (s *Scanner) stopLoopLocked() {
	if s.loopCancel != nil {
		s.loopCancel()
		s.loopCancel = nil
	}
}

func (s *Scanner) watchVisibility(ch <-chan bool) {
	for {
		select {
		case visible, ok := <-ch:
			if !ok {
				return
			}
			s.onVisibilityChange(visible)
		case <-s.visStop:
			return
		}
	}
}

// onVisibilityChange pauses a hidden session regardless of caller intent and
// resumes a logically active one when visibility returns.
func (s *Scanner) onVisibilityChange(visible bool) {
	if !visible {
		s.mu.Lock()
		if !s.destroyed && s.st == stateActive {
			s.pauseLocked(true)
		}
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	resume := !s.destroyed && (s.hiddenPause || s.st == stateActive)
	s.mu.Unlock()
	if resume {
		if err := s.Start(context.Background()); err != nil {
			s.reportError(err)
		}
	}
}

func (s *Scanner) reportError(err error) {
	if s.onError != nil {
		s.onError(err)
		return
	}
	s.logger.Debug("scan error", "error", err)
}

package qrscan

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/MeKo-Tech/qrscan/camera"
)

// testTrack is a minimal camera track with optional torch support.
type testTrack struct {
	label string

	mu      sync.Mutex
	stopped bool
}

func (t *testTrack) Label() string { return t.label }

func (t *testTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *testTrack) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// torchTestTrack adds capability introspection and a torch switch.
type torchTestTrack struct {
	testTrack
	torch bool

	on bool
}

func (t *torchTestTrack) PhotoCapabilities(context.Context) (camera.PhotoCapabilities, error) {
	return camera.PhotoCapabilities{Torch: t.torch}, nil
}

func (t *torchTestTrack) SetTorch(_ context.Context, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.on = on
	return nil
}

type testStream struct {
	tracks []camera.Track
}

func (s *testStream) Tracks() []camera.Track { return s.tracks }

// testProvider scripts stream acquisition and counts successful opens.
type testProvider struct {
	fail         bool
	acceptFacing camera.Facing // zero value accepts any facing
	newTrack     func() camera.Track

	mu     sync.Mutex
	opens  int
	stream *testStream
}

func (p *testProvider) Available() bool { return true }

func (p *testProvider) Open(_ context.Context, c camera.Constraints) (camera.Stream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errors.New("no device satisfies constraints")
	}
	if p.acceptFacing != camera.FacingUnknown && c.Facing != p.acceptFacing {
		return nil, errors.New("no device with requested facing")
	}
	var track camera.Track
	if p.newTrack != nil {
		track = p.newTrack()
	} else {
		track = &testTrack{label: "Back Camera"}
	}
	p.opens++
	p.stream = &testStream{tracks: []camera.Track{track}}
	return p.stream, nil
}

func (p *testProvider) openCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens
}

func (p *testProvider) lastTrack() camera.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil || len(p.stream.tracks) == 0 {
		return nil
	}
	return p.stream.tracks[0]
}

// testVideo is an in-memory VideoSource. frameGate, when set, blocks Frame
// outside the mutex so tests can stop the session mid-sample; frameErr makes
// Frame fail once the gate opens.
type testVideo struct {
	mu         sync.Mutex
	attached   camera.Stream
	playing    bool
	mirrored   bool
	ready      bool
	ended      bool
	width      int
	height     int
	img        image.Image
	frameGate  chan struct{}
	frameErr   error
	frameCalls int
}

func newTestVideo() *testVideo {
	return &testVideo{
		ready:  true,
		width:  640,
		height: 480,
		img:    image.NewRGBA(image.Rect(0, 0, 640, 480)),
	}
}

func (v *testVideo) Attach(s camera.Stream) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = s
	return nil
}

func (v *testVideo) Detach() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attached = nil
	v.playing = false
}

func (v *testVideo) Play() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = true
	return nil
}

func (v *testVideo) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
}

func (v *testVideo) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *testVideo) Ended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ended
}

func (v *testVideo) Ready() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ready
}

func (v *testVideo) setReady(ready bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ready = ready
}

func (v *testVideo) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

func (v *testVideo) Frame() (image.Image, error) {
	v.mu.Lock()
	v.frameCalls++
	gate, ferr, img := v.frameGate, v.frameErr, v.img
	v.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if ferr != nil {
		return nil, ferr
	}
	return img, nil
}

func (v *testVideo) frameCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frameCalls
}

func (v *testVideo) SetMirrored(m bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mirrored = m
}

func (v *testVideo) isMirrored() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mirrored
}

func (v *testVideo) isAttached() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attached != nil
}

// stepScheduler fires one loop iteration per queued tick.
type stepScheduler struct {
	ticks chan struct{}
}

func newStepScheduler() *stepScheduler {
	return &stepScheduler{ticks: make(chan struct{}, 64)}
}

func (s *stepScheduler) Wait(ctx context.Context) error {
	select {
	case <-s.ticks:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stepScheduler) tick(n int) {
	for i := 0; i < n; i++ {
		s.ticks <- struct{}{}
	}
}

// testVisibility is a switchable visibility signal.
type testVisibility struct {
	mu      sync.Mutex
	visible bool
	ch      chan bool
}

func newTestVisibility(visible bool) *testVisibility {
	return &testVisibility{visible: visible, ch: make(chan bool, 8)}
}

func (v *testVisibility) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *testVisibility) Changes() <-chan bool { return v.ch }

func (v *testVisibility) set(visible bool) {
	v.mu.Lock()
	v.visible = visible
	v.mu.Unlock()
	v.ch <- visible
}

// countingDetector is a scriptable native decode backend that records
// concurrency, so loop tests run without the worker decoder.
type countingDetector struct {
	mu          sync.Mutex
	supports    int
	detects     int
	inFlight    int
	maxInFlight int
	delay       time.Duration
	gate        chan struct{}
	script      func(call int) ([]string, error)
}

func (d *countingDetector) SupportsQR() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supports++
	return true
}

func (d *countingDetector) Detect(image.Image) ([]string, error) {
	d.mu.Lock()
	d.detects++
	call := d.detects
	d.inFlight++
	if d.inFlight > d.maxInFlight {
		d.maxInFlight = d.inFlight
	}
	script, gate, delay := d.script, d.gate, d.delay
	d.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	d.mu.Lock()
	d.inFlight--
	d.mu.Unlock()

	if script != nil {
		return script(call)
	}
	return nil, nil
}

func (d *countingDetector) detectCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detects
}

func (d *countingDetector) supportsCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.supports
}

func (d *countingDetector) maxConcurrent() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.maxInFlight
}

// payloadRecorder collects decode and error callback invocations.
type payloadRecorder struct {
	mu       sync.Mutex
	payloads []string
	errs     []error
}

func (r *payloadRecorder) onDecode(payload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func (r *payloadRecorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *payloadRecorder) decoded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.payloads...)
}

func (r *payloadRecorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

package decode

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// workerEngine hosts the gozxing software decoder on a dedicated goroutine.
// All communication is asynchronous message passing over channels; the worker
// never shares mutable state with callers.
type workerEngine struct {
	timeout   time.Duration
	requests  chan detectRequest
	control   chan controlMessage
	done      chan struct{}
	closeOnce sync.Once
}

type detectRequest struct {
	img   image.Image
	reply chan detectReply
}

type detectReply struct {
	payload string
	err     error
}

// controlMessage reconfigures the worker. Fields are pointers so a single
// message can carry any subset of settings.
type controlMessage struct {
	weights   *GrayscaleWeights
	inversion *InversionMode
}

func newWorkerEngine(timeout time.Duration) *workerEngine {
	e := &workerEngine{
		timeout:  timeout,
		requests: make(chan detectRequest),
		control:  make(chan controlMessage, 4),
		done:     make(chan struct{}),
	}
	go e.run()
	// One-time setup: a fresh worker scans both normal and inverted polarity.
	both := ScanBoth
	e.control <- controlMessage{inversion: &both}
	return e
}

func (e *workerEngine) run() {
	weights := DefaultGrayscaleWeights()
	mode := ScanOriginal
	reader := qrcode.NewQRCodeReader()

	apply := func(msg controlMessage) {
		if msg.weights != nil {
			weights = *msg.weights
		}
		if msg.inversion != nil {
			mode = *msg.inversion
		}
	}

	for {
		select {
		case <-e.done:
			return
		case msg := <-e.control:
			apply(msg)
		case req := <-e.requests:
			// Reconfiguration sent before this request must win over the
			// select's arbitrary ordering.
			for drained := false; !drained; {
				select {
				case msg := <-e.control:
					apply(msg)
				default:
					drained = true
				}
			}
			payload, err := decodeImage(reader, req.img, weights, mode)
			// The reply channel is buffered; a caller that timed out and
			// detached never blocks the worker.
			req.reply <- detectReply{payload: payload, err: err}
		}
	}
}

// decodeImage converts the frame to grayscale with the configured weights and
// runs the gozxing QR reader against each requested polarity.
func decodeImage(reader gozxing.Reader, img image.Image, weights GrayscaleWeights, mode InversionMode) (string, error) {
	gray := toGray(img, weights)
	defer releaseGray(gray)

	var passes []bool
	switch mode {
	case ScanInverted:
		passes = []bool{true}
	case ScanBoth:
		passes = []bool{false, true}
	default:
		passes = []bool{false}
	}

	for _, inverted := range passes {
		payload, err := decodePass(reader, gray, inverted)
		if err == nil {
			return payload, nil
		}
		if !isReaderMiss(err) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// decodePass runs the reader against one polarity of the grayscale frame. The
// inverted copy is pooled and returned to the pool before this function exits.
func decodePass(reader gozxing.Reader, gray *image.Gray, inverted bool) (string, error) {
	g := gray
	if inverted {
		g = invertGray(gray)
		defer releaseGray(g)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(g)
	if err != nil {
		return "", &BackendError{Op: "binarize", Err: err}
	}
	result, err := reader.Decode(bmp, nil)
	if err != nil {
		if isReaderMiss(err) {
			return "", err
		}
		return "", &BackendError{Op: "worker detect", Err: err}
	}
	return result.GetText(), nil
}

// isReaderMiss reports whether the gozxing error means "no readable symbol"
// as opposed to a backend failure.
func isReaderMiss(err error) bool {
	switch err.(type) {
	case gozxing.NotFoundException, gozxing.ChecksumException, gozxing.FormatException:
		return true
	}
	return false
}

func (e *workerEngine) Detect(ctx context.Context, img image.Image) (string, error) {
	reply := make(chan detectReply, 1)
	select {
	case e.requests <- detectRequest{img: img, reply: reply}:
	case <-e.done:
		return "", ErrUnavailable
	case <-ctx.Done():
		return "", ctx.Err()
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()
	select {
	case r := <-reply:
		return r.payload, r.err
	case <-timer.C:
		return "", ErrTimeout
	case <-e.done:
		return "", ErrUnavailable
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *workerEngine) SetGrayscaleWeights(w GrayscaleWeights) error {
	return e.send(controlMessage{weights: &w})
}

func (e *workerEngine) SetInversionMode(m InversionMode) error {
	return e.send(controlMessage{inversion: &m})
}

func (e *workerEngine) send(msg controlMessage) error {
	select {
	case e.control <- msg:
		return nil
	case <-e.done:
		return ErrUnavailable
	}
}

// Close sends the close control message; the worker goroutine exits and all
// subsequent requests fail with ErrUnavailable.
func (e *workerEngine) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	return nil
}

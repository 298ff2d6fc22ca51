package decode

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func newTestWorker(t *testing.T) *workerEngine {
	t.Helper()
	e := newWorkerEngine(DefaultTimeout)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestWorkerDecodesGeneratedQR(t *testing.T) {
	e := newTestWorker(t)
	img := testutil.QRImage(t, "https://example.com/ticket/42", 400)

	payload, err := e.Detect(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/ticket/42", payload)
}

func TestWorkerBlankImageNotFound(t *testing.T) {
	e := newTestWorker(t)
	img := testutil.BlankImage(400, 400, color.White)

	_, err := e.Detect(context.Background(), img)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkerDecodesInvertedPolarityByDefault(t *testing.T) {
	// A fresh worker is configured to scan both polarities.
	e := newTestWorker(t)
	img := testutil.Inverted(testutil.QRImage(t, "inverted-payload", 400))

	payload, err := e.Detect(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "inverted-payload", payload)
}

func TestWorkerInversionModeOriginalOnly(t *testing.T) {
	e := newTestWorker(t)
	require.NoError(t, e.SetInversionMode(ScanOriginal))

	inverted := testutil.Inverted(testutil.QRImage(t, "hidden", 400))
	_, err := e.Detect(context.Background(), inverted)
	assert.ErrorIs(t, err, ErrNotFound)

	normal := testutil.QRImage(t, "visible", 400)
	payload, err := e.Detect(context.Background(), normal)
	require.NoError(t, err)
	assert.Equal(t, "visible", payload)
}

func TestWorkerInversionModeInvertedOnly(t *testing.T) {
	e := newTestWorker(t)
	require.NoError(t, e.SetInversionMode(ScanInverted))

	_, err := e.Detect(context.Background(), testutil.QRImage(t, "normal", 400))
	assert.ErrorIs(t, err, ErrNotFound)

	payload, err := e.Detect(context.Background(), testutil.Inverted(testutil.QRImage(t, "flipped", 400)))
	require.NoError(t, err)
	assert.Equal(t, "flipped", payload)
}

func TestWorkerGrayscaleWeightsReconfigure(t *testing.T) {
	e := newTestWorker(t)
	require.NoError(t, e.SetGrayscaleWeights(GrayscaleWeights{Red: 0.299, Green: 0.587, Blue: 0.114}))

	payload, err := e.Detect(context.Background(), testutil.QRImage(t, "weighted", 400))
	require.NoError(t, err)
	assert.Equal(t, "weighted", payload)
}

func TestWorkerTimeout(t *testing.T) {
	// No worker goroutine services the request channel, so the deadline must
	// fire and the caller must detach cleanly.
	e := &workerEngine{
		timeout:  20 * time.Millisecond,
		requests: make(chan detectRequest, 1),
		control:  make(chan controlMessage, 4),
		done:     make(chan struct{}),
	}
	_, err := e.Detect(context.Background(), testutil.BlankImage(10, 10, color.White))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestWorkerContextCancellation(t *testing.T) {
	e := &workerEngine{
		timeout:  time.Minute,
		requests: make(chan detectRequest, 1),
		control:  make(chan controlMessage, 4),
		done:     make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Detect(ctx, testutil.BlankImage(10, 10, color.White))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerCloseMakesRequestsUnavailable(t *testing.T) {
	e := newWorkerEngine(DefaultTimeout)
	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "close must be idempotent")

	_, err := e.Detect(context.Background(), testutil.BlankImage(10, 10, color.White))
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(e.SetInversionMode(ScanBoth)))
	assert.True(t, IsUnavailable(e.SetGrayscaleWeights(DefaultGrayscaleWeights())))
}

func TestIsUnavailableWrapped(t *testing.T) {
	err := &BackendError{Op: "native detect", Err: ErrUnavailable}
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsUnavailable(errors.New("boom")))
}

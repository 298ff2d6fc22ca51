package qrscan

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/decode"
	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func TestScanImageRoundTrip(t *testing.T) {
	img := testutil.QRImage(t, "hello from a static scan", 256)

	payload, err := ScanImage(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "hello from a static scan", payload)
}

func TestScanImageBlankReportsNotFound(t *testing.T) {
	blank := testutil.BlankImage(256, 256, color.White)

	_, err := ScanImage(context.Background(), blank)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanImageWithRegion(t *testing.T) {
	qr := testutil.QRImage(t, "region payload", 300)
	big := testutil.Embedded(qr, 900, 900) // symbol occupies (300,300)-(600,600)

	payload, err := ScanImage(context.Background(), big,
		WithScanRegion(image.Rect(250, 250, 650, 650)))
	require.NoError(t, err)
	assert.Equal(t, "region payload", payload)

	// A region that misses the symbol finds nothing.
	_, err = ScanImage(context.Background(), big,
		WithScanRegion(image.Rect(0, 0, 200, 200)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanImageRetriesWithoutRegion(t *testing.T) {
	qr := testutil.QRImage(t, "fallback payload", 300)
	big := testutil.Embedded(qr, 900, 900)

	payload, err := ScanImage(context.Background(), big,
		WithScanRegion(image.Rect(0, 0, 200, 200)),
		WithRetryWithoutRegion())
	require.NoError(t, err)
	assert.Equal(t, "fallback payload", payload)
}

func TestScanImageKeepsExternalEngineOpen(t *testing.T) {
	handle := decode.NewHandle(decode.Config{})
	defer func() { _ = handle.Close() }()
	engine := handle.Engine()
	require.NotNil(t, engine)

	img := testutil.QRImage(t, "first", 256)
	payload, err := ScanImage(context.Background(), img, WithEngine(engine))
	require.NoError(t, err)
	assert.Equal(t, "first", payload)

	// The caller-owned engine survives the scan and serves another request.
	img = testutil.QRImage(t, "second", 256)
	payload, err = ScanImage(context.Background(), img, WithEngine(engine))
	require.NoError(t, err)
	assert.Equal(t, "second", payload)
}

func TestScanImagePrefersInjectedDetector(t *testing.T) {
	det := &countingDetector{script: func(int) ([]string, error) {
		return []string{"native result"}, nil
	}}

	payload, err := ScanImage(context.Background(), testutil.BlankImage(64, 64, color.White),
		WithScanDetector(det))
	require.NoError(t, err)
	assert.Equal(t, "native result", payload)
	assert.Equal(t, 1, det.detectCount())
}

func TestScanImageFromBytes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.QRImage(t, "bytes payload", 256)))

	payload, err := ScanImage(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "bytes payload", payload)
}

func TestScanImageFromReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.QRImage(t, "reader payload", 256)))

	payload, err := ScanImage(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "reader payload", payload)
}

func TestScanImageFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "code.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, testutil.QRImage(t, "file payload", 256)))
	require.NoError(t, file.Close())

	payload, err := ScanImage(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "file payload", payload)
}

func TestScanImageMissingFile(t *testing.T) {
	_, err := ScanImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	var loadErr *ImageLoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestScanImageFromURL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testutil.QRImage(t, "url payload", 256)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	payload, err := ScanImage(context.Background(), srv.URL+"/code.png")
	require.NoError(t, err)
	assert.Equal(t, "url payload", payload)
}

func TestScanImageURLFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := ScanImage(context.Background(), srv.URL+"/code.png")
	var loadErr *ImageLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), srv.URL)
}

func TestScanImageUnsupportedInput(t *testing.T) {
	_, err := ScanImage(context.Background(), 42)
	var unsupported *UnsupportedInputError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "int", unsupported.Kind)

	_, err = ScanImage(context.Background(), nil)
	require.ErrorAs(t, err, &unsupported)
}

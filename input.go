package qrscan

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
)

// loadInput normalizes a static-scan input into a decoded image. Recognized
// kinds: image.Image (used as is), string (file path or http(s) URL), []byte
// (encoded image data), io.Reader.
func loadInput(ctx context.Context, in any) (image.Image, error) {
	switch v := in.(type) {
	case nil:
		return nil, &UnsupportedInputError{Kind: "nil"}
	case image.Image:
		return v, nil
	case []byte:
		img, err := imaging.Decode(bytes.NewReader(v), imaging.AutoOrientation(true))
		if err != nil {
			return nil, &ImageLoadError{Source: "bytes", Err: err}
		}
		return img, nil
	case io.Reader:
		img, err := imaging.Decode(v, imaging.AutoOrientation(true))
		if err != nil {
			return nil, &ImageLoadError{Source: "reader", Err: err}
		}
		return img, nil
	case string:
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			return fetchImage(ctx, v)
		}
		img, err := imaging.Open(v, imaging.AutoOrientation(true))
		if err != nil {
			return nil, &ImageLoadError{Source: v, Err: err}
		}
		return img, nil
	default:
		return nil, &UnsupportedInputError{Kind: fmt.Sprintf("%T", in)}
	}
}

func fetchImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ImageLoadError{Source: url, Err: err}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &ImageLoadError{Source: url, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, &ImageLoadError{Source: url, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageLoadError{Source: url, Err: err}
	}
	return img, nil
}

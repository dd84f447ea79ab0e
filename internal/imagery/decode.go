// Package imagery loads, converts and scales the raster images the world
// composite is built from, and keeps a refreshed copy of a remote overlay.
package imagery

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image in any registered format and reports the format name.
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image: %w", err)
	}
	return img, format, nil
}

// DecodeBytes decodes an in-memory image.
func DecodeBytes(data []byte) (image.Image, error) {
	img, _, err := Decode(bytes.NewReader(data))
	return img, err
}

// IsURL reports whether src names an http(s) resource rather than a file.
func IsURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Load reads an image from a file path or an http(s) URL.
func Load(ctx context.Context, src string) (image.Image, error) {
	if IsURL(src) {
		data, err := NewFetcher(src, 0, nil).Fetch(ctx)
		if err != nil {
			return nil, err
		}
		img, err := DecodeBytes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src, err)
		}
		return img, nil
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return img, nil
}

package imagery

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// ErrInvalidAlpha is returned for an alpha scale outside 0..255.
var ErrInvalidAlpha = errors.New("alpha out of range")

// ToNRGBA returns img as a non-premultiplied RGBA image anchored at the
// origin. An image that already has that form is returned unchanged.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// Opaque returns a copy of img with every pixel fully opaque.
func Opaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xFF
	}
	return dst
}

// OpacityToAlpha converts an opacity in [0, 1] to an alpha scale the way
// single-precision float code truncates it.
func OpacityToAlpha(opacity float64) int {
	return int(255 * float32(opacity))
}

// BrightnessToAlpha returns a copy of img whose alpha is the HSB
// brightness of each pixel scaled by alpha (0..255). Colour channels are
// kept.
func BrightnessToAlpha(img image.Image, alpha int) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if alpha < 0 || alpha > 255 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAlpha, alpha)
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)

	scale := float32(alpha)
	for i := 0; i+3 < len(dst.Pix); i += 4 {
		r, g, bl := dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2]
		brightness := float32(max(r, g, bl)) / 255
		dst.Pix[i+3] = uint8(int(brightness * scale))
	}
	return dst, nil
}

package composite

import (
	"fmt"
	"image"
	"sync/atomic"

	xdraw "golang.org/x/image/draw"

	"github.com/star/sunclock/internal/imagery"
	"github.com/star/sunclock/internal/metrics"
)

// Overlay is a translucent layer, such as a cloud map, whose opacity at
// each pixel follows the source brightness. The most recent scaled copy is
// cached by size.
type Overlay struct {
	img     *image.NRGBA
	opacity float64
	interp  xdraw.Interpolator
	scaled  atomic.Pointer[overlayEntry]
}

type overlayEntry struct {
	width, height int
	img           image.Image
}

// NewOverlay converts img into a brightness-keyed layer at the given
// opacity in [0, 1].
func NewOverlay(img image.Image, opacity float64) (*Overlay, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: overlay image is required", ErrConfiguration)
	}
	if !(opacity >= 0 && opacity <= 1) {
		return nil, fmt.Errorf("%w: opacity %v outside [0, 1]", ErrInvalidArgument, opacity)
	}
	keyed, err := imagery.BrightnessToAlpha(img, imagery.OpacityToAlpha(opacity))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return &Overlay{img: keyed, opacity: opacity, interp: xdraw.ApproxBiLinear}, nil
}

// Opacity returns the opacity the overlay was built with.
func (o *Overlay) Opacity() float64 {
	return o.opacity
}

// Render returns the overlay scaled to width×height.
func (o *Overlay) Render(width, height int) (image.Image, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: render size %dx%d", ErrInvalidArgument, width, height)
	}
	if s := o.scaled.Load(); s != nil && s.width == width && s.height == height {
		metrics.RecordCacheLookup(metrics.SlotOverlay, true)
		return s.img, nil
	}

	img, err := imagery.Scale(o.img, width, height, o.interp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	o.scaled.Store(&overlayEntry{width: width, height: height, img: img})
	metrics.RecordCacheLookup(metrics.SlotOverlay, false)
	return img, nil
}

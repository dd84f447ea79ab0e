package imagery

import (
	"errors"
	"fmt"
	"image"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// ErrInvalidSize is returned for a negative target size.
var ErrInvalidSize = errors.New("invalid size")

// DefaultInterpolator is the kernel used when none is configured.
const DefaultInterpolator = "approx-bilinear"

var interpolators = map[string]xdraw.Interpolator{
	"nearest":         xdraw.NearestNeighbor,
	"approx-bilinear": xdraw.ApproxBiLinear,
	"bilinear":        xdraw.BiLinear,
	"catmull-rom":     xdraw.CatmullRom,
}

// ParseInterpolator returns the scaling kernel registered under name.
// An empty name selects DefaultInterpolator.
func ParseInterpolator(name string) (xdraw.Interpolator, error) {
	if name == "" {
		name = DefaultInterpolator
	}
	interp, ok := interpolators[name]
	if !ok {
		return nil, fmt.Errorf("unknown interpolator %q (want one of %v)", name, InterpolatorNames())
	}
	return interp, nil
}

// InterpolatorNames lists the accepted kernel names in sorted order.
func InterpolatorNames() []string {
	names := make([]string, 0, len(interpolators))
	for n := range interpolators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Scale resizes img to width×height. A request for the source size
// returns the source converted to NRGBA without resampling; a zero
// dimension yields an empty image.
func Scale(img image.Image, width, height int, interp xdraw.Interpolator) (*image.NRGBA, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return ToNRGBA(img), nil
	}
	if interp == nil {
		interp = xdraw.ApproxBiLinear
	}

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == 0 || height == 0 {
		return dst, nil
	}
	interp.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst, nil
}

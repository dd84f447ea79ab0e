package composite

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

type stack []Renderer

// Stack returns a Renderer that draws each layer over the previous one in
// order. Nil layers are skipped.
func Stack(layers ...Renderer) Renderer {
	s := make(stack, 0, len(layers))
	for _, l := range layers {
		if l != nil {
			s = append(s, l)
		}
	}
	return s
}

func (s stack) Render(width, height int) (image.Image, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("%w: render size %dx%d", ErrInvalidArgument, width, height)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, layer := range s {
		img, err := layer.Render(width, height)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		op := xdraw.Over
		if i == 0 {
			op = xdraw.Src
		}
		xdraw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, op)
	}
	return dst, nil
}

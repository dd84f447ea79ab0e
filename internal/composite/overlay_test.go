package composite

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renderFunc func(width, height int) (image.Image, error)

func (f renderFunc) Render(width, height int) (image.Image, error) { return f(width, height) }

func uniform(c color.Color) Renderer {
	return renderFunc(func(w, h int) (image.Image, error) {
		return solid(w, h, c), nil
	})
}

func TestNewOverlayValidation(t *testing.T) {
	img := solid(4, 2, color.White)

	for _, opacity := range []float64{-0.1, 1.5} {
		_, err := NewOverlay(img, opacity)
		assert.ErrorIs(t, err, ErrInvalidArgument, "opacity %v", opacity)
	}
	_, err := NewOverlay(nil, 0.5)
	assert.ErrorIs(t, err, ErrConfiguration)

	o, err := NewOverlay(img, 0.4)
	require.NoError(t, err)
	assert.Equal(t, 0.4, o.Opacity())
}

func TestOverlayAlphaFollowsBrightness(t *testing.T) {
	img := solid(2, 1, color.White)
	img.SetNRGBA(1, 0, color.NRGBA{A: 255})

	o, err := NewOverlay(img, 0.4)
	require.NoError(t, err)

	out, err := o.Render(2, 1)
	require.NoError(t, err)
	n := out.(*image.NRGBA)
	assert.Equal(t, uint8(102), n.NRGBAAt(0, 0).A, "white at 40% opacity")
	assert.Equal(t, uint8(0), n.NRGBAAt(1, 0).A, "black is transparent")
}

func TestOverlayCachesBySize(t *testing.T) {
	o, err := NewOverlay(solid(64, 32, color.Gray{Y: 200}), 1)
	require.NoError(t, err)

	a, err := o.Render(32, 16)
	require.NoError(t, err)
	b, err := o.Render(32, 16)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := o.Render(16, 8)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, image.Rect(0, 0, 16, 8), c.Bounds())

	_, err = o.Render(-1, 8)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStackDrawsLayersInOrder(t *testing.T) {
	red := uniform(color.NRGBA{R: 255, A: 255})
	halfBlue := uniform(color.NRGBA{B: 255, A: 128})

	img, err := Stack(red, nil, halfBlue).Render(4, 4)
	require.NoError(t, err)
	px := img.(*image.NRGBA).NRGBAAt(2, 2)
	assert.InDelta(t, 127, int(px.R), 1)
	assert.InDelta(t, 128, int(px.B), 1)
	assert.Equal(t, uint8(255), px.A)

	// Reversed order: the opaque red layer hides the blue one.
	img, err = Stack(halfBlue, red).Render(4, 4)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.(*image.NRGBA).NRGBAAt(0, 0))
}

func TestStackWorldWithOverlay(t *testing.T) {
	w := newTestWorld(t, WithTime(noon))
	clouds, err := NewOverlay(solid(180, 90, color.White), 1)
	require.NoError(t, err)

	img, err := Stack(w, clouds).Render(180, 90)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 180, 90), img.Bounds())
	// An opaque white overlay covers the night side as well.
	r, g, b, _ := img.At(10, 45).RGBA()
	assert.Equal(t, [3]uint32{0xFFFF, 0xFFFF, 0xFFFF}, [3]uint32{r, g, b})
}

func TestStackPropagatesErrors(t *testing.T) {
	failing := renderFunc(func(w, h int) (image.Image, error) {
		return nil, ErrInvalidArgument
	})
	_, err := Stack(uniform(color.White), failing).Render(2, 2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Stack().Render(-1, 1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

package imagery

import (
	"image"
	"image/color"
	"math"
)

// Plates returns a generated day and night plate pair of the given size
// for running without map imagery. Latitude bands shade the day plate;
// the night plate is a flat dark blue with a lit graticule every 30°.
func Plates(width, height int) (day, night *image.NRGBA) {
	day = image.NewNRGBA(image.Rect(0, 0, width, height))
	night = image.NewNRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		lat := 90 - (float64(y)+0.5)*180/float64(height)
		dayRow := dayColor(lat)
		for x := 0; x < width; x++ {
			day.SetNRGBA(x, y, dayRow)

			lon := (float64(x)+0.5)*360/float64(width) - 180
			c := color.NRGBA{R: 0x08, G: 0x0c, B: 0x24, A: 0xFF}
			if onGraticule(lat, 180/float64(height)) || onGraticule(lon, 360/float64(width)) {
				c = color.NRGBA{R: 0x30, G: 0x3a, B: 0x60, A: 0xFF}
			}
			night.SetNRGBA(x, y, c)
		}
	}
	return day, night
}

func dayColor(lat float64) color.NRGBA {
	a := math.Abs(lat)
	switch {
	case a > 66.5:
		return color.NRGBA{R: 0xEE, G: 0xF2, B: 0xF8, A: 0xFF}
	case a > 23.5:
		return color.NRGBA{R: 0x3C, G: 0x7D, B: 0xC8, A: 0xFF}
	default:
		return color.NRGBA{R: 0x1E, G: 0x64, B: 0xB4, A: 0xFF}
	}
}

// onGraticule reports whether deg lies within half a pixel of a 30° line.
func onGraticule(deg, pixelDeg float64) bool {
	r := math.Mod(math.Abs(deg), 30)
	return r <= pixelDeg/2 || 30-r < pixelDeg/2
}

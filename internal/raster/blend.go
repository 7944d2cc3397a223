package raster

import (
	"image/color"
	"math"
)

// Blend returns a copy of src mixed with c: out = c*opacity + src*(1-opacity) per channel.
// Opacity is clamped to [0, 1] and the result is opaque.
func Blend(src *Buffer, opacity float64, c color.RGBA) *Buffer {
	opacity = math.Max(0, math.Min(1, opacity))
	out := src.Clone()
	pix := out.rgba.Pix
	for y := 0; y < out.Height(); y++ {
		row := y * out.rgba.Stride
		for x := 0; x < out.Width(); x++ {
			i := row + x*4
			pix[i+0] = mix(c.R, pix[i+0], opacity)
			pix[i+1] = mix(c.G, pix[i+1], opacity)
			pix[i+2] = mix(c.B, pix[i+2], opacity)
			pix[i+3] = 0xff
		}
	}
	return out
}

func mix(over uint8, base uint8, opacity float64) uint8 {
	return uint8(math.Round(float64(over)*opacity + float64(base)*(1-opacity)))
}

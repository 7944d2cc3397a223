package raster

import (
	"image"
	"image/color"
)

// White is the padding used when reconciling screenshots of different heights.
var White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Normalize pads both buffers on the right and bottom with background until they share the
// larger width and the larger height. Buffers already of that size are returned unchanged.
func Normalize(a *Buffer, b *Buffer, background color.Color) (*Buffer, *Buffer) {
	width := max(a.Width(), b.Width())
	height := max(a.Height(), b.Height())
	return pad(a, width, height, background), pad(b, width, height, background)
}

// Extend pads the right and bottom edges so both dimensions are multiples of factor.
func Extend(b *Buffer, factor int, background color.Color) *Buffer {
	if factor <= 1 {
		return b
	}
	return pad(b, roundUp(b.Width(), factor), roundUp(b.Height(), factor), background)
}

// TrimRight drops the rightmost columns, which hold the scrollbar in browser screenshots.
func TrimRight(b *Buffer, pixels int) *Buffer {
	if pixels <= 0 || pixels >= b.Width() {
		return b
	}
	return b.Crop(image.Rect(0, 0, b.Width()-pixels, b.Height()))
}

func pad(b *Buffer, width, height int, background color.Color) *Buffer {
	if b.Width() == width && b.Height() == height {
		return b
	}
	out := Filled(width, height, background)
	out.Paste(b, image.Point{})
	return out
}

func roundUp(n, factor int) int {
	if r := n % factor; r != 0 {
		return n + factor - r
	}
	return n
}

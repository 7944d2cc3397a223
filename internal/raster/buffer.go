// Package raster holds decoded images as zero-origin RGBA buffers.
package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
)

type Buffer struct {
	rgba *image.RGBA
}

func New(width, height int) *Buffer {
	return &Buffer{rgba: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Filled returns a width x height buffer painted with c.
func Filled(width, height int, c color.Color) *Buffer {
	b := New(width, height)
	draw.Draw(b.rgba, b.rgba.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return b
}

// FromImage copies img into a new buffer whose origin is (0, 0).
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	b := New(bounds.Dx(), bounds.Dy())
	draw.Draw(b.rgba, b.rgba.Bounds(), img, bounds.Min, draw.Src)
	return b
}

func (b *Buffer) Width() int {
	return b.rgba.Rect.Dx()
}

func (b *Buffer) Height() int {
	return b.rgba.Rect.Dy()
}

func (b *Buffer) Bounds() image.Rectangle {
	return b.rgba.Rect
}

func (b *Buffer) ColorModel() color.Model {
	return color.RGBAModel
}

// At makes Buffer an image.Image so crops can be hashed directly.
func (b *Buffer) At(x, y int) color.Color {
	return b.rgba.RGBAAt(x, y)
}

func (b *Buffer) SameSize(o *Buffer) bool {
	return b.Width() == o.Width() && b.Height() == o.Height()
}

func (b *Buffer) RGBAAt(x, y int) color.RGBA {
	return b.rgba.RGBAAt(x, y)
}

func (b *Buffer) SetRGBA(x, y int, c color.RGBA) {
	b.rgba.SetRGBA(x, y, c)
}

// Image exposes the underlying raster. Writes through it mutate the buffer.
func (b *Buffer) Image() *image.RGBA {
	return b.rgba
}

func (b *Buffer) Clone() *Buffer {
	return &Buffer{rgba: &image.RGBA{
		Pix:    bytes.Clone(b.rgba.Pix),
		Stride: b.rgba.Stride,
		Rect:   b.rgba.Rect,
	}}
}

// Crop copies the pixels of r into a new zero-origin buffer.
func (b *Buffer) Crop(r image.Rectangle) *Buffer {
	r = r.Intersect(b.rgba.Rect)
	out := New(r.Dx(), r.Dy())
	draw.Draw(out.rgba, out.rgba.Bounds(), b.rgba, r.Min, draw.Src)
	return out
}

// Paste overwrites the pixels under src placed at the given point.
func (b *Buffer) Paste(src *Buffer, at image.Point) {
	dst := image.Rectangle{Min: at, Max: at.Add(src.rgba.Rect.Size())}
	draw.Draw(b.rgba, dst, src.rgba, image.Point{}, draw.Src)
}

// Equal reports whether both buffers have the same size and pixels.
func (b *Buffer) Equal(o *Buffer) bool {
	if !b.SameSize(o) {
		return false
	}
	rowBytes := b.Width() * 4
	for y := 0; y < b.Height(); y++ {
		bi := y * b.rgba.Stride
		oi := y * o.rgba.Stride
		if !bytes.Equal(b.rgba.Pix[bi:bi+rowBytes], o.rgba.Pix[oi:oi+rowBytes]) {
			return false
		}
	}
	return true
}

// RegionEqual reports whether r holds the same pixels in both buffers.
func (b *Buffer) RegionEqual(o *Buffer, r image.Rectangle) bool {
	r = r.Intersect(b.rgba.Rect).Intersect(o.rgba.Rect)
	rowBytes := r.Dx() * 4
	for y := r.Min.Y; y < r.Max.Y; y++ {
		bi := b.rgba.PixOffset(r.Min.X, y)
		oi := o.rgba.PixOffset(r.Min.X, y)
		if !bytes.Equal(b.rgba.Pix[bi:bi+rowBytes], o.rgba.Pix[oi:oi+rowBytes]) {
			return false
		}
	}
	return true
}

package image

import (
	"image"
	"image/color"

	"regiondiff/internal/raster"
)

func createTestImage(width, height int, c color.Color) *raster.Buffer {
	return raster.Filled(width, height, c)
}

func createGradientImage(width, height int) *raster.Buffer {
	b := raster.New(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / width), G: uint8(y * 255 / height), B: uint8((x + y) % 256), A: 255})
		}
	}
	return b
}

func mirror(src *raster.Buffer) *raster.Buffer {
	b := raster.New(src.Width(), src.Height())
	for y := 0; y < src.Height(); y++ {
		for x := 0; x < src.Width(); x++ {
			b.SetRGBA(src.Width()-1-x, y, src.RGBAAt(x, y))
		}
	}
	return b
}

func fillRect(b *raster.Buffer, r image.Rectangle, c color.RGBA) {
	b.Paste(raster.Filled(r.Dx(), r.Dy(), c), r.Min)
}

func assertDisjoint(t interface{ Errorf(string, ...any) }, regions []MarkedRegion) {
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].Overlaps(regions[j].Region) {
				t.Errorf("marked regions %s and %s overlap", regions[i].Region, regions[j].Region)
			}
		}
	}
}

type neverEqual struct{}

func (neverEqual) Equal(*raster.Buffer, *raster.Buffer, Region) bool {
	return false
}

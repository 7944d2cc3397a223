package image

import (
	"image"
	"strings"

	"regiondiff/internal/raster"

	"golang.org/x/xerrors"
)

// Discriminator decides whether two hash-identical regions are really equal.
type Discriminator interface {
	Equal(baseline *raster.Buffer, target *raster.Buffer, region Region) bool
}

// SamplePixel compares the single pixel at this offset from the region's top-left corner.
// The offset is clamped into regions too small to contain it.
type SamplePixel image.Point

func (s SamplePixel) Equal(baseline *raster.Buffer, target *raster.Buffer, region Region) bool {
	x := region.X1 + max(0, min(s.X, region.Width()-1))
	y := region.Y1 + max(0, min(s.Y, region.Height()-1))
	return baseline.RGBAAt(x, y) == target.RGBAAt(x, y)
}

type exactPixels struct{}

func (exactPixels) Equal(baseline *raster.Buffer, target *raster.Buffer, region Region) bool {
	return baseline.RegionEqual(target, region.Rect())
}

var (
	DefaultDiscriminator Discriminator = SamplePixel{X: 2, Y: 3}
	// ExactPixels compares every pixel of the region.
	ExactPixels Discriminator = exactPixels{}
)

func ParseDiscriminator(s string) (Discriminator, error) {
	switch strings.ToLower(s) {
	case "", "sample":
		return DefaultDiscriminator, nil
	case "exact":
		return ExactPixels, nil
	default:
		return nil, xerrors.Errorf("unknown discriminator: %s", s)
	}
}

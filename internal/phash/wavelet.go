package phash

import (
	"image"
	"slices"

	"github.com/nfnt/resize"
	"github.com/rivo/duplo/haar"
)

const (
	waveletSide = 32
	waveletBand = 8
)

// waveletHash thresholds the low frequency 8x8 luma band of a Haar transform at its median.
func waveletHash(img image.Image) uint64 {
	thumb := resize.Resize(waveletSide, waveletSide, img, resize.Bilinear)
	matrix := haar.Transform(thumb)

	band := make([]float64, 0, waveletBand*waveletBand)
	for y := uint(0); y < waveletBand; y++ {
		for x := uint(0); x < waveletBand; x++ {
			band = append(band, matrix.Coefs[y*matrix.Width+x][0])
		}
	}
	// The DC term only carries overall brightness.
	band[0] = 0

	sorted := slices.Clone(band)
	slices.Sort(sorted)
	median := (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2

	var hash uint64
	for i, v := range band {
		if v > median {
			hash |= 1 << uint(len(band)-1-i)
		}
	}
	return hash
}

// Package image locates dissimilar regions between two equally sized images and paints them
// onto a copy of the baseline.
package image

import (
	"image/color"
	"time"

	"regiondiff/internal/raster"

	"github.com/go-logr/logr"
)

// Salmon is the default highlight colour.
var Salmon = color.RGBA{R: 0xfa, G: 0x80, B: 0x72, A: 0xff}

type DiffResult struct {
	Image *raster.Buffer
	// DiffAmount is the average dissimilarity as a fraction in [0, 1].
	DiffAmount float64
	Report     Report
}

type Differ interface {
	Calculate(baseline *raster.Buffer, target *raster.Buffer) (*DiffResult, error)
}

// MarkedRegion is a region painted onto the output.
type MarkedRegion struct {
	Region
	Distance int     `json:"distance"`
	Percent  float64 `json:"percent"`
	Opacity  float64 `json:"opacity"`
}

type Report struct {
	// Compared counts hash comparisons for the recursive engine and tiles for the linear one.
	Compared   int `json:"compared"`
	Dissimilar int `json:"dissimilar"`
	// TotalDissimilarity sums the percentages of the regions AverageDissimilarity is taken over.
	TotalDissimilarity   float64        `json:"totalDissimilarity"`
	AverageDissimilarity float64        `json:"averageDissimilarity"`
	Elapsed              time.Duration  `json:"elapsed"`
	Regions              []MarkedRegion `json:"regions"`
}

type options struct {
	highlight     color.RGBA
	logger        logr.Logger
	discriminator Discriminator
	workers       int
}

type Option func(*options)

func WithHighlight(c color.RGBA) Option {
	return func(o *options) {
		o.highlight = c
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDiscriminator replaces the check applied to hash-identical regions. Recursive engine only.
func WithDiscriminator(d Discriminator) Option {
	return func(o *options) {
		o.discriminator = d
	}
}

// WithWorkers bounds the goroutines hashing tiles. Linear engine only.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

func newOptions(opts []Option) options {
	o := options{
		highlight:     Salmon,
		logger:        logr.Discard(),
		discriminator: DefaultDiscriminator,
		workers:       1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

// render is the only place the engines write to an output buffer. Outlines are stroked onto the
// finished result by the caller.
func render(out *raster.Buffer, region Region, opacity float64, c color.RGBA) {
	out.Paste(raster.Blend(out.Crop(region.Rect()), opacity, c), region.Min())
}

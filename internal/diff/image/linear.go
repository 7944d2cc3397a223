package image

import (
	"time"

	"regiondiff/internal/phash"
	"regiondiff/internal/raster"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const (
	// MinTileEdge is the smallest tile that still carries enough pixels for an 8x8 fingerprint.
	MinTileEdge     = 8
	DefaultTileEdge = 20
	// DefaultDistanceThreshold marks tiles whose fingerprints differ in at least 8 of 64 bits.
	DefaultDistanceThreshold = 8
)

// LinearDiff scores every tile of a fixed grid and paints those at or above the threshold.
type LinearDiff struct {
	hasher    *phash.Hasher
	edge      int
	threshold int
	options   options
}

func NewLinearDiff(algorithm phash.Algorithm, edge int, threshold int, opts ...Option) (*LinearDiff, error) {
	if edge < MinTileEdge {
		return nil, xerrors.Errorf("tile edge %d is smaller than %d: %w", edge, MinTileEdge, InvalidTileEdgeError)
	}
	if threshold < 0 || threshold > phash.Size {
		return nil, xerrors.Errorf("threshold %d is outside 0..%d: %w", threshold, phash.Size, InvalidThresholdError)
	}
	hasher, err := phash.NewHasher(algorithm)
	if err != nil {
		return nil, xerrors.Errorf("failed to create linear diff: %w", err)
	}
	return &LinearDiff{
		hasher:    hasher,
		edge:      edge,
		threshold: threshold,
		options:   newOptions(opts),
	}, nil
}

// Tiles lists the grid in column-major order: x outer, y inner.
func (d *LinearDiff) Tiles(width, height int) []Region {
	tiles := make([]Region, 0, (width/d.edge)*(height/d.edge))
	for x := 0; x+d.edge <= width; x += d.edge {
		for y := 0; y+d.edge <= height; y += d.edge {
			tiles = append(tiles, Region{X1: x, Y1: y, X2: x + d.edge, Y2: y + d.edge})
		}
	}
	return tiles
}

func (d *LinearDiff) Calculate(baseline *raster.Buffer, target *raster.Buffer) (*DiffResult, error) {
	if !baseline.SameSize(target) {
		return nil, xerrors.Errorf("%dx%d and %dx%d: %w", baseline.Width(), baseline.Height(), target.Width(), target.Height(), SizeMismatchError)
	}
	if baseline.Width()%d.edge != 0 || baseline.Height()%d.edge != 0 {
		return nil, xerrors.Errorf("%dx%d is not divisible by %d: %w", baseline.Width(), baseline.Height(), d.edge, InvalidTileEdgeError)
	}

	start := time.Now()
	tiles := d.Tiles(baseline.Width(), baseline.Height())

	// Hashing only reads the inputs, so tiles are fingerprinted concurrently and painted in order.
	distances := make([]int, len(tiles))
	eg := errgroup.Group{}
	eg.SetLimit(d.options.workers)
	for i, tile := range tiles {
		eg.Go(func() error {
			distance, err := d.hasher.Distance(baseline.Crop(tile.Rect()), target.Crop(tile.Rect()))
			if err != nil {
				return xerrors.Errorf("failed to compare tile %s: %w", tile, err)
			}
			distances[i] = distance
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := baseline.Clone()
	report := Report{Regions: []MarkedRegion{}}
	for i, tile := range tiles {
		distance := distances[i]
		percent := phash.Percent(distance)
		report.Compared++
		report.TotalDissimilarity += percent

		if distance < d.threshold {
			continue
		}
		opacity := percent / 100
		render(out, tile, opacity, d.options.highlight)
		report.Dissimilar++
		report.Regions = append(report.Regions, MarkedRegion{
			Region:   tile,
			Distance: distance,
			Percent:  percent,
			Opacity:  opacity,
		})
		d.options.logger.V(1).Info("dissimilar tile", "region", tile.String(), "distance", distance)
	}
	if report.Compared > 0 {
		report.AverageDissimilarity = report.TotalDissimilarity / float64(report.Compared)
	}
	report.Elapsed = time.Since(start)

	d.options.logger.Info("linear diff finished",
		"algorithm", d.hasher.Algorithm().String(),
		"tiles", report.Compared,
		"dissimilar", report.Dissimilar,
		"elapsed", report.Elapsed.String(),
	)

	return &DiffResult{
		Image:      out,
		DiffAmount: report.AverageDissimilarity / 100,
		Report:     report,
	}, nil
}

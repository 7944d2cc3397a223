package image

import (
	"time"

	"regiondiff/internal/phash"
	"regiondiff/internal/raster"

	"golang.org/x/xerrors"
)

const (
	DefaultThreshold = 8

	// opacityFloor keeps every marked region visibly tinted.
	opacityFloor = 0.3
)

// RecursiveDiff halves regions whose fingerprints disagree until their smaller side reaches the
// threshold. Regions with equal fingerprints and equal sample pixels are never visited again.
type RecursiveDiff struct {
	hasher    *phash.Hasher
	threshold int
	options   options
}

func NewRecursiveDiff(algorithm phash.Algorithm, threshold int, opts ...Option) (*RecursiveDiff, error) {
	if threshold < 1 {
		return nil, xerrors.Errorf("threshold %d must be at least 1: %w", threshold, InvalidThresholdError)
	}
	hasher, err := phash.NewHasher(algorithm)
	if err != nil {
		return nil, xerrors.Errorf("failed to create recursive diff: %w", err)
	}
	return &RecursiveDiff{
		hasher:    hasher,
		threshold: threshold,
		options:   newOptions(opts),
	}, nil
}

func (d *RecursiveDiff) Calculate(baseline *raster.Buffer, target *raster.Buffer) (*DiffResult, error) {
	if !baseline.SameSize(target) {
		return nil, xerrors.Errorf("%dx%d and %dx%d: %w", baseline.Width(), baseline.Height(), target.Width(), target.Height(), SizeMismatchError)
	}

	start := time.Now()
	w := &recursiveWalk{
		RecursiveDiff: d,
		baseline:      baseline,
		target:        target,
		out:           baseline.Clone(),
		report:        Report{Regions: []MarkedRegion{}},
	}
	// The whole image is always compared, even when it is already below the threshold.
	if err := w.compare(NewRegion(baseline.Bounds())); err != nil {
		return nil, err
	}

	report := w.report
	if report.Dissimilar > 0 {
		report.AverageDissimilarity = report.TotalDissimilarity / float64(report.Dissimilar)
	}
	report.Elapsed = time.Since(start)

	d.options.logger.Info("recursive diff finished",
		"algorithm", d.hasher.Algorithm().String(),
		"compared", report.Compared,
		"dissimilar", report.Dissimilar,
		"elapsed", report.Elapsed.String(),
	)

	return &DiffResult{
		Image:      w.out,
		DiffAmount: report.AverageDissimilarity / 100,
		Report:     report,
	}, nil
}

type recursiveWalk struct {
	*RecursiveDiff
	baseline *raster.Buffer
	target   *raster.Buffer
	out      *raster.Buffer
	report   Report
}

func (w *recursiveWalk) compare(region Region) error {
	distance, err := w.hasher.Distance(w.baseline.Crop(region.Rect()), w.target.Crop(region.Rect()))
	if err != nil {
		return xerrors.Errorf("failed to compare %s: %w", region, err)
	}
	w.report.Compared++

	if distance == 0 {
		if w.options.discriminator.Equal(w.baseline, w.target, region) {
			return nil
		}
		w.mark(region, 0)
		return nil
	}

	if w.small(region) {
		w.mark(region, distance)
		return nil
	}

	first, second := region.Split()
	if err := w.visit(first, distance); err != nil {
		return err
	}
	return w.visit(second, distance)
}

// visit marks halves at or below the threshold with the distance measured on their parent.
func (w *recursiveWalk) visit(region Region, parentDistance int) error {
	if w.small(region) {
		w.mark(region, parentDistance)
		return nil
	}
	return w.compare(region)
}

func (w *recursiveWalk) small(region Region) bool {
	return region.SmallerSide() <= w.threshold
}

func (w *recursiveWalk) mark(region Region, distance int) {
	opacity := float64(distance)/100 + opacityFloor
	percent := phash.Percent(distance)
	render(w.out, region, opacity, w.options.highlight)

	w.report.Dissimilar++
	w.report.TotalDissimilarity += percent
	w.report.Regions = append(w.report.Regions, MarkedRegion{
		Region:   region,
		Distance: distance,
		Percent:  percent,
		Opacity:  opacity,
	})
	w.options.logger.V(1).Info("dissimilar region", "region", region.String(), "distance", distance)
}

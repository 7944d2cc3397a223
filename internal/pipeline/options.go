// Package pipeline turns two screenshots, or two captures of a page, into an annotated diff.
package pipeline

import (
	"errors"
	"image/color"
	"strings"

	diffimage "regiondiff/internal/diff/image"
	"regiondiff/internal/phash"
	"regiondiff/internal/raster"

	"github.com/go-logr/logr"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/xerrors"
)

var (
	UnknownModeError    = errors.New("unknown diff mode")
	InvalidColorError   = errors.New("invalid highlight color")
	InvalidOptionsError = errors.New("invalid options")
)

type Mode string

const (
	ModeRecursive Mode = "recursive"
	ModeLinear    Mode = "linear"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModeRecursive:
		return ModeRecursive, nil
	case ModeLinear:
		return ModeLinear, nil
	default:
		return "", xerrors.Errorf("failed to parse %q: %w", s, UnknownModeError)
	}
}

type Options struct {
	Mode      Mode            `json:"mode"`
	Algorithm phash.Algorithm `json:"algorithm"`
	// Threshold is the side length at which the recursive engine stops splitting.
	Threshold int `json:"threshold"`
	TileEdge  int `json:"tileEdge"`
	// DistanceThreshold is the hash distance at which the linear engine marks a tile.
	DistanceThreshold int `json:"distanceThreshold"`
	// Discriminator is "sample" or "exact".
	Discriminator string `json:"discriminator"`
	Highlight     string `json:"highlight"`
	Outline       bool   `json:"outline"`
	// Normalize pads the smaller image with white before comparing.
	Normalize bool   `json:"normalize"`
	Format    string `json:"format"`
	Workers   int    `json:"workers"`
}

func DefaultOptions() Options {
	return Options{
		Mode:              ModeRecursive,
		Algorithm:         phash.Average,
		Threshold:         diffimage.DefaultThreshold,
		TileEdge:          diffimage.DefaultTileEdge,
		DistanceThreshold: diffimage.DefaultDistanceThreshold,
		Discriminator:     "sample",
		Highlight:         "#fa8072",
		Normalize:         true,
		Format:            "png",
		Workers:           1,
	}
}

// Validate reports the first option the engines would reject, before any image is decoded.
func (o Options) Validate() error {
	if _, err := o.newDiffer(logr.Discard()); err != nil {
		return err
	}
	if _, err := raster.NormalizeFormat(o.Format); err != nil {
		return xerrors.Errorf("%v: %w", err, InvalidOptionsError)
	}
	return nil
}

func (o Options) HighlightColor() (color.RGBA, error) {
	if o.Highlight == "" {
		return diffimage.Salmon, nil
	}
	c, err := colorful.Hex(o.Highlight)
	if err != nil {
		return color.RGBA{}, xerrors.Errorf("%q: %w", o.Highlight, InvalidColorError)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// NewDiffer builds the engine the options select.
func (o Options) NewDiffer(logger logr.Logger) (diffimage.Differ, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o.newDiffer(logger)
}

func (o Options) newDiffer(logger logr.Logger) (diffimage.Differ, error) {
	highlight, err := o.HighlightColor()
	if err != nil {
		return nil, err
	}
	discriminator, err := diffimage.ParseDiscriminator(o.Discriminator)
	if err != nil {
		return nil, xerrors.Errorf("%v: %w", err, InvalidOptionsError)
	}
	opts := []diffimage.Option{
		diffimage.WithHighlight(highlight),
		diffimage.WithLogger(logger),
		diffimage.WithDiscriminator(discriminator),
		diffimage.WithWorkers(o.Workers),
	}

	switch o.Mode {
	case ModeRecursive:
		return diffimage.NewRecursiveDiff(o.Algorithm, o.Threshold, opts...)
	case ModeLinear:
		return diffimage.NewLinearDiff(o.Algorithm, o.TileEdge, o.DistanceThreshold, opts...)
	default:
		return nil, xerrors.Errorf("%q: %w", o.Mode, UnknownModeError)
	}
}

package pipeline

import (
	"image/color"

	diffimage "regiondiff/internal/diff/image"
	"regiondiff/internal/raster"

	"github.com/fogleman/gg"
	"github.com/go-logr/logr"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/xerrors"
)

type Result struct {
	Image      []byte           `json:"-"`
	Format     string           `json:"format"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	DiffAmount float64          `json:"diffAmount"`
	Report     diffimage.Report `json:"report"`
}

// Compare decodes both images, compares them and encodes the annotated reference.
func Compare(reference []byte, compared []byte, opts Options, logger logr.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	referenceImage, _, err := raster.Decode(reference)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode reference image: %w", err)
	}
	comparedImage, _, err := raster.Decode(compared)
	if err != nil {
		return nil, xerrors.Errorf("failed to decode compared image: %w", err)
	}

	diffResult, err := CompareBuffers(referenceImage, comparedImage, opts, logger)
	if err != nil {
		return nil, err
	}

	format, err := raster.NormalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	data, err := raster.Encode(diffResult.Image, format)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode diff image: %w", err)
	}

	return &Result{
		Image:      data,
		Format:     format,
		Width:      diffResult.Image.Width(),
		Height:     diffResult.Image.Height(),
		DiffAmount: diffResult.DiffAmount,
		Report:     diffResult.Report,
	}, nil
}

// CompareBuffers reconciles the sizes of both images the way the options ask and runs the
// selected engine.
func CompareBuffers(reference *raster.Buffer, compared *raster.Buffer, opts Options, logger logr.Logger) (*diffimage.DiffResult, error) {
	differ, err := opts.NewDiffer(logger)
	if err != nil {
		return nil, err
	}

	if opts.Normalize {
		reference, compared = raster.Normalize(reference, compared, raster.White)
	}
	if opts.Mode == ModeLinear && reference.SameSize(compared) {
		reference = raster.Extend(reference, opts.TileEdge, raster.White)
		compared = raster.Extend(compared, opts.TileEdge, raster.White)
	}

	result, err := differ.Calculate(reference, compared)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare images: %w", err)
	}

	if opts.Outline && len(result.Report.Regions) > 0 {
		highlight, err := opts.HighlightColor()
		if err != nil {
			return nil, err
		}
		outline(result.Image, result.Report.Regions, highlight)
	}
	return result, nil
}

// outline strokes a darker shade of the highlight around every marked region.
func outline(b *raster.Buffer, regions []diffimage.MarkedRegion, highlight color.RGBA) {
	c, _ := colorful.MakeColor(highlight)
	h, chroma, l := c.Hcl()
	stroke := colorful.Hcl(h, chroma, l*0.6).Clamped()

	dc := gg.NewContextForRGBA(b.Image())
	dc.SetColor(stroke)
	dc.SetLineWidth(1)
	for _, r := range regions {
		dc.DrawRectangle(float64(r.X1)+0.5, float64(r.Y1)+0.5, float64(r.Width())-1, float64(r.Height())-1)
	}
	dc.Stroke()
}

package pipeline

import (
	"context"
	"log/slog"
	"time"

	"regiondiff/internal/capture"
	diffimage "regiondiff/internal/diff/image"
	"regiondiff/internal/raster"
	"regiondiff/internal/storage"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// DefaultScrollbarWidth is trimmed from the right edge of every capture.
const DefaultScrollbarWidth = 10

type Request struct {
	ReferenceURL string `json:"referenceURL"`
	// ComparedURL defaults to ReferenceURL, which compares one page across two browsers.
	ComparedURL      string            `json:"comparedURL,omitempty"`
	ReferenceBrowser capture.Browser   `json:"referenceBrowser"`
	ComparedBrowser  capture.Browser   `json:"comparedBrowser"`
	ViewportWidth    int               `json:"viewportWidth,omitempty"`
	ScrollbarWidth   int               `json:"scrollbarWidth"`
	MaskSelectors    []string          `json:"maskSelectors,omitempty"`
	Headers          map[string]string `json:"headers,omitempty"`
	Options          Options           `json:"options"`
}

type Output struct {
	ReferenceURL string           `json:"referenceURL"`
	ComparedURL  string           `json:"comparedURL"`
	DiffURL      string           `json:"diffURL"`
	DiffAmount   float64          `json:"diffAmount"`
	Report       diffimage.Report `json:"report"`
}

type Runner struct {
	Capturer capture.Capturer
	Storage  storage.Storage
	Logger   *slog.Logger
	Now      func() time.Time
}

type side struct {
	url     string
	browser capture.Browser
	image   *raster.Buffer
	data    []byte
}

// Run captures both sides in parallel, compares them and uploads the three artifacts.
func (r *Runner) Run(ctx context.Context, request Request) (*Output, error) {
	if request.ComparedURL == "" {
		request.ComparedURL = request.ReferenceURL
	}
	for _, u := range []string{request.ReferenceURL, request.ComparedURL} {
		if err := capture.ValidateURL(u); err != nil {
			return nil, err
		}
	}
	if err := request.Options.Validate(); err != nil {
		return nil, err
	}

	reference := &side{url: request.ReferenceURL, browser: request.ReferenceBrowser}
	compared := &side{url: request.ComparedURL, browser: request.ComparedBrowser}

	{
		eg, ctx := errgroup.WithContext(ctx)
		for _, s := range []*side{reference, compared} {
			eg.Go(func() error {
				return r.capture(ctx, request, s)
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	logger := logr.FromSlogHandler(r.logger().Handler())
	result, err := CompareBuffers(reference.image, compared.image, request.Options, logger)
	if err != nil {
		return nil, err
	}
	format, err := raster.NormalizeFormat(request.Options.Format)
	if err != nil {
		return nil, err
	}
	diffData, err := raster.Encode(result.Image, format)
	if err != nil {
		return nil, xerrors.Errorf("failed to encode diff image: %w", err)
	}

	now := r.now()
	output := &Output{
		DiffAmount: result.DiffAmount,
		Report:     result.Report,
	}
	{
		eg, ctx := errgroup.WithContext(ctx)

		eg.Go(func() error {
			url, err := r.Storage.Put(ctx, storage.Key(storage.KindCapture, reference.url+"@"+string(reference.browser), now, "png"), reference.data)
			if err != nil {
				return xerrors.Errorf("failed to upload reference screenshot: %w", err)
			}
			output.ReferenceURL = url
			return nil
		})

		eg.Go(func() error {
			url, err := r.Storage.Put(ctx, storage.Key(storage.KindCapture, compared.url+"@"+string(compared.browser), now, "png"), compared.data)
			if err != nil {
				return xerrors.Errorf("failed to upload compared screenshot: %w", err)
			}
			output.ComparedURL = url
			return nil
		})

		eg.Go(func() error {
			subject := reference.url + "@" + string(reference.browser) + " " + compared.url + "@" + string(compared.browser)
			url, err := r.Storage.Put(ctx, storage.Key(storage.KindDiff, subject, now, raster.Extension(format)), diffData)
			if err != nil {
				return xerrors.Errorf("failed to upload diff image: %w", err)
			}
			output.DiffURL = url
			return nil
		})

		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	r.logger().InfoContext(ctx, "comparison finished",
		"reference", reference.url,
		"compared", compared.url,
		"dissimilar", output.Report.Dissimilar,
		"diffAmount", output.DiffAmount,
	)
	return output, nil
}

func (r *Runner) capture(ctx context.Context, request Request, s *side) error {
	result, err := r.Capturer.Capture(ctx, s.url, capture.CaptureOptions{
		Browser:       s.browser,
		ViewportWidth: request.ViewportWidth,
		MaskSelectors: request.MaskSelectors,
		Headers:       request.Headers,
	})
	if err != nil {
		return xerrors.Errorf("failed to capture %s with %s: %w", s.url, s.browser, err)
	}

	img, _, err := raster.Decode(result.Screenshot)
	if err != nil {
		return xerrors.Errorf("failed to decode %s screenshot: %w", s.browser, err)
	}
	s.image = raster.TrimRight(img, request.ScrollbarWidth)
	s.data = result.Screenshot

	r.logger().DebugContext(ctx, "captured", "url", s.url, "browser", s.browser, "width", img.Width(), "height", img.Height())
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

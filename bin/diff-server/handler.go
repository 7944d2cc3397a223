package main

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	diffimage "regiondiff/internal/diff/image"
	"regiondiff/internal/myhttp"
	"regiondiff/internal/phash"
	"regiondiff/internal/pipeline"
	"regiondiff/internal/raster"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/xerrors"
)

type DiffResponse struct {
	DiffData    string           `json:"diffData"`
	Format      string           `json:"format"`
	ContentType string           `json:"contentType"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	DiffAmount  float64          `json:"diffAmount"`
	Report      diffimage.Report `json:"report"`
}

type diffHandler struct {
	maxUploadBytes int64
	workers        int

	comparisonDurationMicroSeconds metric.Int64Histogram
	dissimilarRegions              metric.Int64Histogram
}

func newDiffHandler(meter metric.Meter, maxUploadBytes int64, workers int) (*diffHandler, error) {
	comparisonDurationMicroSeconds, err := meter.Int64Histogram("comparison_duration_micro_seconds")
	if err != nil {
		return nil, xerrors.Errorf("failed to create histogram: %w", err)
	}
	dissimilarRegions, err := meter.Int64Histogram("comparison_dissimilar_regions")
	if err != nil {
		return nil, xerrors.Errorf("failed to create histogram: %w", err)
	}
	return &diffHandler{
		maxUploadBytes:                 maxUploadBytes,
		workers:                        workers,
		comparisonDurationMicroSeconds: comparisonDurationMicroSeconds,
		dissimilarRegions:              dissimilarRegions,
	}, nil
}

func (h *diffHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		myhttp.WriteError(w, r, http.StatusBadRequest, xerrors.Errorf("failed to parse form: %w", err))
		return
	}

	opts, err := h.options(r)
	if err != nil {
		myhttp.WriteError(w, r, http.StatusBadRequest, err)
		return
	}

	reference, err := formFile(r, "reference")
	if err != nil {
		myhttp.WriteError(w, r, http.StatusBadRequest, err)
		return
	}
	compared, err := formFile(r, "compared")
	if err != nil {
		myhttp.WriteError(w, r, http.StatusBadRequest, err)
		return
	}

	logger := myhttp.Logger(r.Context())
	start := time.Now()
	result, err := pipeline.Compare(reference, compared, opts, logr.FromSlogHandler(logger.Handler()))
	if err != nil {
		myhttp.WriteError(w, r, statusFor(err), err)
		return
	}

	attributes := metric.WithAttributes(
		attribute.Key("mode").String(string(opts.Mode)),
		attribute.Key("algorithm").String(opts.Algorithm.String()),
	)
	h.comparisonDurationMicroSeconds.Record(r.Context(), time.Since(start).Microseconds(), attributes)
	h.dissimilarRegions.Record(r.Context(), int64(result.Report.Dissimilar), attributes)

	myhttp.WriteJSON(w, r, http.StatusOK, DiffResponse{
		DiffData:    base64.StdEncoding.EncodeToString(result.Image),
		Format:      result.Format,
		ContentType: raster.ContentType(result.Format),
		Width:       result.Width,
		Height:      result.Height,
		DiffAmount:  result.DiffAmount,
		Report:      result.Report,
	})
}

// options reads the form fields over the defaults. Absent fields keep their default.
func (h *diffHandler) options(r *http.Request) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	opts.Workers = h.workers

	var err error
	if v := r.FormValue("mode"); v != "" {
		if opts.Mode, err = pipeline.ParseMode(v); err != nil {
			return opts, err
		}
	}
	if v := r.FormValue("algorithm"); v != "" {
		if opts.Algorithm, err = phash.ParseAlgorithm(v); err != nil {
			return opts, err
		}
	}
	for name, p := range map[string]*int{
		"threshold":       &opts.Threshold,
		"tileEdge":        &opts.TileEdge,
		"linearThreshold": &opts.DistanceThreshold,
	} {
		if v := r.FormValue(name); v != "" {
			if *p, err = strconv.Atoi(v); err != nil {
				return opts, xerrors.Errorf("%s: %v: %w", name, err, pipeline.InvalidOptionsError)
			}
		}
	}
	for name, p := range map[string]*bool{
		"outline":   &opts.Outline,
		"normalize": &opts.Normalize,
	} {
		if v := r.FormValue(name); v != "" {
			if *p, err = strconv.ParseBool(v); err != nil {
				return opts, xerrors.Errorf("%s: %v: %w", name, err, pipeline.InvalidOptionsError)
			}
		}
	}
	if v := r.FormValue("discriminator"); v != "" {
		opts.Discriminator = v
	}
	if v := r.FormValue("color"); v != "" {
		opts.Highlight = v
	}
	if v := r.FormValue("format"); v != "" {
		opts.Format = v
	}
	return opts, opts.Validate()
}

func formFile(r *http.Request, name string) ([]byte, error) {
	f, _, err := r.FormFile(name)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, diffimage.SizeMismatchError):
		return http.StatusUnprocessableEntity
	case errors.Is(err, raster.DecodeError),
		errors.Is(err, pipeline.InvalidOptionsError),
		errors.Is(err, pipeline.InvalidColorError),
		errors.Is(err, pipeline.UnknownModeError),
		errors.Is(err, phash.UnknownAlgorithmError),
		errors.Is(err, diffimage.InvalidThresholdError),
		errors.Is(err, diffimage.InvalidTileEdgeError):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

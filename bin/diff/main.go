package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	diffimage "regiondiff/internal/diff/image"
	"regiondiff/internal/env"
	"regiondiff/internal/phash"
	"regiondiff/internal/pipeline"
	"regiondiff/internal/raster"
	"regiondiff/internal/storage"
	"regiondiff/internal/telemetry"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
)

type DiffOutput struct {
	DiffPath   string           `json:"diffPath"`
	DiffAmount float64          `json:"diffAmount"`
	Report     diffimage.Report `json:"report"`
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fa8072"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2e8b57"))
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	defaults := pipeline.DefaultOptions()
	var (
		directory string
		mode      string
		algorithm string
		debug     bool
		quiet     bool
		opts      = defaults
	)
	pflag.StringVarP(&directory, "directory", "d", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	pflag.StringVarP(&mode, "mode", "m", env.OrDefault("MODE", string(defaults.Mode)), "Diff mode (recursive or linear)")
	pflag.StringVarP(&algorithm, "algorithm", "a", env.OrDefault("ALGORITHM", defaults.Algorithm.String()), "Perceptual hash (ahash, dhash, phash or whash)")
	pflag.IntVarP(&opts.Threshold, "threshold", "t", env.OrDefault("THRESHOLD", defaults.Threshold), "Smallest side in pixels the recursive mode still splits")
	pflag.IntVar(&opts.TileEdge, "tile-edge", env.OrDefault("TILE_EDGE", defaults.TileEdge), "Tile edge in pixels for the linear mode")
	pflag.IntVar(&opts.DistanceThreshold, "linear-threshold", env.OrDefault("LINEAR_THRESHOLD", defaults.DistanceThreshold), "Hash distance at which the linear mode marks a tile")
	pflag.StringVar(&opts.Discriminator, "discriminator", env.OrDefault("DISCRIMINATOR", defaults.Discriminator), "Equality check for regions with equal hashes (sample or exact)")
	pflag.StringVar(&opts.Highlight, "color", env.OrDefault("COLOR", defaults.Highlight), "Highlight color")
	pflag.BoolVar(&opts.Outline, "outline", env.OrDefault("OUTLINE", defaults.Outline), "Outline marked regions")
	pflag.BoolVar(&opts.Normalize, "normalize", env.OrDefault("NORMALIZE", defaults.Normalize), "Pad the smaller image with white instead of failing")
	pflag.StringVarP(&opts.Format, "format", "f", env.OrDefault("FORMAT", defaults.Format), "Output format (png, jpeg or qoi)")
	pflag.IntVarP(&opts.Workers, "workers", "w", env.OrDefault("WORKERS", defaults.Workers), "Parallel tile hashing in the linear mode")
	pflag.BoolVar(&debug, "debug", env.OrDefault("DEBUG", false), "Log every marked region")
	pflag.BoolVarP(&quiet, "quiet", "q", false, "Do not print the summary")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 2 {
		log.Fatalf("reference, compared not specified")
	}

	var err error
	if opts.Mode, err = pipeline.ParseMode(mode); err != nil {
		log.Fatalf("Invalid mode: %v", err)
	}
	if opts.Algorithm, err = phash.ParseAlgorithm(algorithm); err != nil {
		log.Fatalf("Invalid algorithm: %v", err)
	}
	if err := opts.Validate(); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	logger, err := telemetry.NewLogger(os.Stderr, debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	referencePath := args[0]
	comparedPath := args[1]

	reference, err := raster.Load(referencePath)
	if err != nil {
		log.Fatalf("Failed to load reference image: %v", err)
	}
	compared, err := raster.Load(comparedPath)
	if err != nil {
		log.Fatalf("Failed to load compared image: %v", err)
	}

	result, err := pipeline.CompareBuffers(reference, compared, opts, logr.FromSlogHandler(logger.Handler()))
	if err != nil {
		log.Fatalf("Failed to compare images: %v", err)
	}

	format, _ := raster.NormalizeFormat(opts.Format)
	data, err := raster.Encode(result.Image, format)
	if err != nil {
		log.Fatalf("Failed to encode diff image: %v", err)
	}

	ctx := context.Background()
	s := storage.NewFileStorage(storage.FileConfig{
		Directory: directory,
	})
	subject := filepath.Clean(referencePath) + " " + filepath.Clean(comparedPath)
	diffPath, err := s.Put(ctx, storage.Key(storage.KindDiff, subject, time.Now(), raster.Extension(format)), data)
	if err != nil {
		log.Fatalf("Failed to save diff image: %v", err)
	}

	if !quiet {
		printSummary(opts.Mode, result.Report)
	}

	if err := json.NewEncoder(os.Stdout).Encode(DiffOutput{
		DiffPath:   diffPath,
		DiffAmount: result.DiffAmount,
		Report:     result.Report,
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func printSummary(mode pipeline.Mode, report diffimage.Report) {
	count := okStyle
	if report.Dissimilar > 0 {
		count = alertStyle
	}

	if mode == pipeline.ModeLinear {
		fmt.Fprintf(os.Stderr, "%s\tTotal blocks compared: %d.\n", labelStyle.Render("Done:"), report.Compared)
		fmt.Fprintf(os.Stderr, "%s\tNumber of blocks with dissimilarity: %s\n", labelStyle.Render("Done:"), count.Render(fmt.Sprint(report.Dissimilar)))
		fmt.Fprintf(os.Stderr, "%s\tAverage dissimilarity %.2f%%.\n", labelStyle.Render("Done:"), report.AverageDissimilarity)
	} else {
		fmt.Fprintf(os.Stderr, "%s dissimilar image parts detected.\n", count.Render(fmt.Sprint(report.Dissimilar)))
	}
	fmt.Fprintf(os.Stderr, "Elapsed %s\n", report.Elapsed.Round(time.Millisecond))
}

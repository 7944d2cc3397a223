package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"regiondiff/internal/capture"
	"regiondiff/internal/env"
	"regiondiff/internal/phash"
	"regiondiff/internal/pipeline"
	"regiondiff/internal/storage"
	"regiondiff/internal/telemetry"

	"github.com/playwright-community/playwright-go"
	"github.com/spf13/pflag"
)

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("failed to load .env: %v", err)
	}

	defaults := pipeline.DefaultOptions()
	var (
		referenceBrowser          string
		comparedBrowser           string
		mode                      string
		algorithm                 string
		chromeDevtoolsProtocolURL string
		storageBackend            string
		callbackURL               string
		headers                   []string
		skipInstall               bool
		debug                     bool
		request                   = pipeline.Request{Options: defaults}
	)
	pflag.StringVar(&referenceBrowser, "reference-browser", env.OrDefault("REFERENCE_BROWSER", string(capture.Chromium)), "Browser capturing the reference")
	pflag.StringVar(&comparedBrowser, "compared-browser", env.OrDefault("COMPARED_BROWSER", string(capture.Firefox)), "Browser capturing the compared page")
	pflag.IntVar(&request.ViewportWidth, "viewport-width", env.OrDefault("VIEWPORT_WIDTH", 1280), "Viewport width in pixels")
	pflag.IntVar(&request.ScrollbarWidth, "trim-right", env.OrDefault("TRIM_RIGHT", pipeline.DefaultScrollbarWidth), "Columns to cut from the right edge of every capture")
	pflag.StringSliceVar(&request.MaskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", []string{}), "Comma-separated list of CSS selectors to mask during capture")
	pflag.StringArrayVarP(&headers, "header", "H", nil, "Add HTTP header (can be used multiple times)")
	pflag.StringVar(&mode, "mode", env.OrDefault("MODE", string(defaults.Mode)), "Diff mode (recursive or linear)")
	pflag.StringVar(&algorithm, "algorithm", env.OrDefault("ALGORITHM", defaults.Algorithm.String()), "Perceptual hash (ahash, dhash, phash or whash)")
	pflag.IntVar(&request.Options.Threshold, "threshold", env.OrDefault("THRESHOLD", defaults.Threshold), "Smallest side in pixels the recursive mode still splits")
	pflag.IntVar(&request.Options.TileEdge, "tile-edge", env.OrDefault("TILE_EDGE", defaults.TileEdge), "Tile edge in pixels for the linear mode")
	pflag.IntVar(&request.Options.DistanceThreshold, "linear-threshold", env.OrDefault("LINEAR_THRESHOLD", defaults.DistanceThreshold), "Hash distance at which the linear mode marks a tile")
	pflag.StringVar(&request.Options.Discriminator, "discriminator", env.OrDefault("DISCRIMINATOR", defaults.Discriminator), "Equality check for regions with equal hashes (sample or exact)")
	pflag.BoolVar(&request.Options.Outline, "outline", env.OrDefault("OUTLINE", defaults.Outline), "Outline marked regions")
	pflag.StringVar(&request.Options.Format, "format", env.OrDefault("FORMAT", defaults.Format), "Diff image format (png, jpeg or qoi)")
	pflag.IntVar(&request.Options.Workers, "workers", env.OrDefault("WORKERS", defaults.Workers), "Parallel tile hashing in the linear mode")
	pflag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	pflag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	pflag.StringVar(&callbackURL, "callback-url", env.OrDefault("CALLBACK_URL", ""), "Callback URL to send results to")
	pflag.BoolVar(&skipInstall, "skip-install", env.OrDefault("SKIP_INSTALL", false), "Do not install playwright browsers")
	pflag.BoolVar(&debug, "debug", env.OrDefault("DEBUG", false), "Enable debug logging")
	pflag.Parse()

	args := pflag.Args()
	if len(args) < 1 || len(args) > 2 {
		log.Fatalf("usage: worker [flags] <url> [compared-url]")
	}
	request.ReferenceURL = args[0]
	if len(args) == 2 {
		request.ComparedURL = args[1]
	}
	request.Headers = capture.ParseHeaders(headers)

	var err error
	if request.ReferenceBrowser, err = capture.ParseBrowser(referenceBrowser); err != nil {
		log.Fatalf("invalid reference browser: %v", err)
	}
	if request.ComparedBrowser, err = capture.ParseBrowser(comparedBrowser); err != nil {
		log.Fatalf("invalid compared browser: %v", err)
	}
	if request.Options.Mode, err = pipeline.ParseMode(mode); err != nil {
		log.Fatalf("invalid mode: %v", err)
	}
	if request.Options.Algorithm, err = phash.ParseAlgorithm(algorithm); err != nil {
		log.Fatalf("invalid algorithm: %v", err)
	}

	logger, err := telemetry.NewLogger(os.Stderr, debug)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	ctx := context.Background()

	if !skipInstall {
		browsers := []string{string(request.ReferenceBrowser)}
		if request.ComparedBrowser != request.ReferenceBrowser {
			browsers = append(browsers, string(request.ComparedBrowser))
		}
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: browsers,
		}); err != nil {
			log.Fatalf("failed to install playwright browsers: %v", err)
		}
	}

	config := capture.DefaultPlaywrightConfig()
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	}

	var s storage.Storage
	switch storageBackend {
	case "file":
		s = storage.NewFileStorage(storage.FileConfig{
			Directory: env.OrDefault("DIRECTORY", "/tmp"),
		})
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:      os.Getenv("S3_BUCKET"),
			Prefix:      os.Getenv("S3_PREFIX"),
			EndpointURL: os.Getenv("S3_ENDPOINT_URL"),
		})
		if err != nil {
			log.Fatalf("failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("unknown storage backend: %s", storageBackend)
	}

	runner := &pipeline.Runner{
		Capturer: capture.NewPlaywrightCapturer(config),
		Storage:  s,
		Logger:   logger,
	}

	result, err := runner.Run(ctx, request)
	if err != nil {
		log.Fatalf("failed to process comparison: %v", err)
	}

	if callbackURL == "" {
		j, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("failed to marshal result: %v", err)
		}
		fmt.Println(string(j))
		return
	}
	if err := pipeline.Notify(ctx, nil, callbackURL, result); err != nil {
		log.Fatalf("failed to send callback: %v", err)
	}
}

package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"regiondiff/internal/capture"
	"regiondiff/internal/env"
	"regiondiff/internal/raster"
	"regiondiff/internal/storage"

	"github.com/spf13/pflag"
)

type CaptureOutput struct {
	ScreenshotPath string `json:"screenshotPath"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

func main() {
	if err := env.Load(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	var (
		directory                 string
		browser                   string
		maskSelectors             []string
		headers                   []string
		delay                     time.Duration
		viewportWidth             int
		viewportHeight            int
		trimRight                 int
		chromeDevtoolsProtocolURL string
	)
	pflag.StringVarP(&directory, "directory", "d", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	pflag.StringVarP(&browser, "browser", "b", env.OrDefault("BROWSER", string(capture.Chromium)), "Browser (chromium, firefox or webkit)")
	pflag.StringSliceVar(&maskSelectors, "mask-selectors", env.OrDefault("MASK_SELECTORS", []string{}), "Comma-separated list of CSS selectors to mask during capture")
	pflag.DurationVar(&delay, "delay", env.OrDefault("DELAY", time.Second), "Delay before capturing")
	pflag.IntVar(&viewportWidth, "viewport-width", env.OrDefault("VIEWPORT_WIDTH", 1280), "Viewport width in pixels")
	pflag.IntVar(&viewportHeight, "viewport-height", env.OrDefault("VIEWPORT_HEIGHT", 800), "Viewport height in pixels")
	pflag.IntVar(&trimRight, "trim-right", env.OrDefault("TRIM_RIGHT", 0), "Columns to cut from the right edge, e.g. the scrollbar")
	pflag.StringVar(&chromeDevtoolsProtocolURL, "chrome-devtools-protocol-url", env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", ""), "Connect to existing browser via Chrome DevTools Protocol URL (e.g., http://localhost:9222)")
	pflag.StringArrayVarP(&headers, "header", "H", nil, "Add HTTP header (can be used multiple times, e.g., -H 'Accept: text/html' -H 'Authorization: Bearer token')")
	pflag.Parse()

	args := pflag.Args()
	if len(args) == 0 {
		log.Fatalf("url not specified")
	}
	url := args[0]
	if err := capture.ValidateURL(url); err != nil {
		log.Fatalf("Invalid url: %v", err)
	}
	b, err := capture.ParseBrowser(browser)
	if err != nil {
		log.Fatalf("Invalid browser: %v", err)
	}

	ctx := context.Background()

	config := capture.DefaultPlaywrightConfig()
	if delay > 0 {
		config.Delay = delay
	}
	if chromeDevtoolsProtocolURL != "" {
		config.ChromeDevtoolsProtocolURL = chromeDevtoolsProtocolURL
	}
	if display := os.Getenv("DISPLAY"); display != "" {
		config.Headless = false
	}
	if viewportHeight > 0 {
		config.ViewportHeight = viewportHeight
	}

	result, err := capture.NewPlaywrightCapturer(config).Capture(ctx, url, capture.CaptureOptions{
		Browser:       b,
		ViewportWidth: viewportWidth,
		MaskSelectors: maskSelectors,
		Headers:       capture.ParseHeaders(headers),
	})
	if err != nil {
		log.Fatalf("Failed to capture screenshot: %v", err)
	}

	screenshot := result.Screenshot
	img, _, err := raster.Decode(screenshot)
	if err != nil {
		log.Fatalf("Failed to decode screenshot: %v", err)
	}
	if trimRight > 0 {
		img = raster.TrimRight(img, trimRight)
		if screenshot, err = raster.Encode(img, "png"); err != nil {
			log.Fatalf("Failed to encode screenshot: %v", err)
		}
	}

	s := storage.NewFileStorage(storage.FileConfig{
		Directory: directory,
	})
	path, err := s.Put(ctx, storage.Key(storage.KindCapture, url+"@"+string(b), time.Now(), "png"), screenshot)
	if err != nil {
		log.Fatalf("Failed to save screenshot: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(CaptureOutput{
		ScreenshotPath: path,
		Width:          img.Width(),
		Height:         img.Height(),
	}); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

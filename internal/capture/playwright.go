package capture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"golang.org/x/xerrors"
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int

	Timeout time.Duration
	Delay   time.Duration

	Headless bool
	// ChromeDevtoolsProtocolURL attaches to a running Chromium instead of launching one.
	ChromeDevtoolsProtocolURL string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:  1280,
		ViewportHeight: 800,
		Timeout:        30 * time.Second,
		Delay:          time.Second,
		Headless:       true,
	}
}

type playwrightCapturer struct {
	config PlaywrightConfig
}

func NewPlaywrightCapturer(p PlaywrightConfig) Capturer {
	return &playwrightCapturer{
		config: p,
	}
}

func (c *playwrightCapturer) launch(p *playwright.Playwright, b Browser) (playwright.Browser, error) {
	options := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.config.Headless),
	}
	switch b {
	case "", Chromium:
		if c.config.ChromeDevtoolsProtocolURL != "" {
			return p.Chromium.ConnectOverCDP(c.config.ChromeDevtoolsProtocolURL)
		}
		return p.Chromium.Launch(options)
	case Firefox:
		return p.Firefox.Launch(options)
	case WebKit:
		return p.WebKit.Launch(options)
	default:
		return nil, xerrors.Errorf("failed to launch %q: %w", b, UnknownBrowserError)
	}
}

func (c *playwrightCapturer) Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}

	p, err := playwright.Run()
	if err != nil {
		return nil, xerrors.Errorf("failed to start playwright: %w", err)
	}
	defer p.Stop()

	browser, err := c.launch(p, options.Browser)
	if err != nil {
		return nil, xerrors.Errorf("failed to launch %s: %w", options.Browser, err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return nil, xerrors.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	width := c.config.ViewportWidth
	if options.ViewportWidth > 0 {
		width = options.ViewportWidth
	}
	if err := page.SetViewportSize(width, c.config.ViewportHeight); err != nil {
		return nil, xerrors.Errorf("failed to set viewport size: %w", err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if len(options.Headers) > 0 {
		if err := page.SetExtraHTTPHeaders(options.Headers); err != nil {
			return nil, xerrors.Errorf("failed to set HTTP headers: %w", err)
		}
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(c.config.Timeout.Milliseconds())),
	}); err != nil {
		return nil, xerrors.Errorf("failed to navigate to %s: %w", url, err)
	}

	if c.config.Delay > 0 {
		select {
		case <-time.After(c.config.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if len(options.MaskSelectors) > 0 {
		if err := mask(page, options.MaskSelectors); err != nil {
			return nil, err
		}
	}

	screenshot, err := page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to take screenshot: %w", err)
	}

	return &CaptureResult{
		Browser:    options.Browser,
		Screenshot: screenshot,
	}, nil
}

// mask paints matched elements solid black so that volatile content such as ads or clocks
// never shows up as a dissimilar region.
func mask(page playwright.Page, selectors []string) error {
	unique := make([]byte, 8)
	if _, err := rand.Read(unique); err != nil {
		return xerrors.Errorf("failed to generate mask class: %w", err)
	}
	className := fmt.Sprintf("mask-%s", hex.EncodeToString(unique))

	css := fmt.Sprintf(`
.%s {
  position: relative !important;
}
.%s::after {
  content: "" !important;
  position: absolute !important;
  inset: 0 !important;
  background-color: black !important;
  z-index: 2147483646 !important;
  pointer-events: none !important;
}
`, className, className)

	script := fmt.Sprintf(`(selectors) => {
		const style = document.createElement('style');
		style.textContent = %q;
		document.head.appendChild(style);
		for (const selector of selectors) {
			for (const element of document.querySelectorAll(selector)) {
				element.classList.add(%q);
			}
		}
	}`, css, className)

	if _, err := page.Evaluate(script, selectors); err != nil {
		return xerrors.Errorf("failed to mask selectors: %w", err)
	}
	return nil
}

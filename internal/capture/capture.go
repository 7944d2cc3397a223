// Package capture takes full page screenshots of web pages.
package capture

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/xerrors"
)

var (
	InvalidURLError     = errors.New("invalid url")
	UnknownBrowserError = errors.New("unknown browser")
)

type Browser string

const (
	Chromium Browser = "chromium"
	Firefox  Browser = "firefox"
	WebKit   Browser = "webkit"
)

func ParseBrowser(s string) (Browser, error) {
	switch strings.ToLower(s) {
	case "chromium", "chrome":
		return Chromium, nil
	case "firefox":
		return Firefox, nil
	case "webkit", "safari":
		return WebKit, nil
	default:
		return "", xerrors.Errorf("failed to parse %q: %w", s, UnknownBrowserError)
	}
}

type CaptureOptions struct {
	Browser       Browser
	ViewportWidth int
	MaskSelectors []string
	Headers       map[string]string
}

type CaptureResult struct {
	Browser    Browser
	Screenshot []byte
}

type Capturer interface {
	Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error)
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, InvalidURLError)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return xerrors.Errorf("%q has no http or https scheme: %w", raw, InvalidURLError)
	}
	if u.Host == "" {
		return xerrors.Errorf("%q has no host: %w", raw, InvalidURLError)
	}
	return nil
}

// ParseHeaders turns "Name: value" lines into a header map. Lines without a colon are skipped.
func ParseHeaders(lines []string) map[string]string {
	if len(lines) == 0 {
		return nil
	}
	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}

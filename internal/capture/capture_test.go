package capture_test

import (
	"errors"
	"fmt"
	"regiondiff/internal/capture"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"https://example.com/path?q=1",
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"http://localhost:8080",
			nil,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"example.com",
			capture.InvalidURLError,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"ftp://example.com",
			capture.InvalidURLError,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"https://",
			capture.InvalidURLError,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			"http://%zz",
			capture.InvalidURLError,
		},
	}

	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if err := capture.ValidateURL(in); !errors.Is(err, want) {
				t.Errorf("err = %v, want %v", err, want)
			}
		})
	}
}

func TestParseBrowser(t *testing.T) {
	got, err := capture.ParseBrowser("Chrome")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(capture.Chromium, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, err := capture.ParseBrowser("lynx"); !errors.Is(err, capture.UnknownBrowserError) {
		t.Errorf("err = %v, want %v", err, capture.UnknownBrowserError)
	}
}

func TestParseHeaders(t *testing.T) {
	got := capture.ParseHeaders([]string{"Accept: text/html", "Authorization: Bearer a:b", "broken"})
	want := map[string]string{
		"Accept":        "text/html",
		"Authorization": "Bearer a:b",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if got := capture.ParseHeaders(nil); got != nil {
		t.Errorf("want nil, but %v", got)
	}
}

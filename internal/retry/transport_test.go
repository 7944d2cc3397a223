package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regiondiff/internal/retry"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type transportMock struct {
	fakeRoundTrip func(*http.Request) (*http.Response, error)
}

func (m *transportMock) RoundTrip(request *http.Request) (*http.Response, error) {
	return m.fakeRoundTrip(request)
}

type temporaryError struct {
	s string
}

func (te *temporaryError) Error() string {
	return te.s
}

func (te *temporaryError) Temporary() bool {
	return true
}

// sequence replies with the given outcomes in order and repeats the last one.
func sequence(calls *int32, outcomes ...func() (*http.Response, error)) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		i := int(atomic.AddInt32(calls, 1)) - 1
		if i >= len(outcomes) {
			i = len(outcomes) - 1
		}
		return outcomes[i]()
	}
}

func status(code int) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader("fake"))}, nil
	}
}

func failure(err error) func() (*http.Response, error) {
	return func() (*http.Response, error) {
		return nil, err
	}
}

func TestTransportRoundTrip(t *testing.T) {
	type want struct {
		status int
		calls  int32
		err    string
	}

	tests := []struct {
		name     string
		outcomes []func() (*http.Response, error)
		want     want
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){status(http.StatusOK)},
			want{http.StatusOK, 1, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){failure(errors.New("fake"))},
			want{0, 1, "fake"},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){failure(&temporaryError{"fake"}), status(http.StatusOK)},
			want{http.StatusOK, 2, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){status(http.StatusServiceUnavailable), status(http.StatusConflict), status(http.StatusOK)},
			want{http.StatusOK, 3, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){status(http.StatusBadGateway)},
			want{http.StatusBadGateway, 4, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){status(http.StatusNotFound)},
			want{http.StatusNotFound, 1, ""},
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]func() (*http.Response, error){failure(&temporaryError{"fake"})},
			want{0, 4, "fake"},
		},
	}

	for _, tt := range tests {
		name := tt.name
		outcomes := tt.outcomes
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var calls int32
			client := &http.Client{
				Transport: &retry.Transport{
					Base:       &transportMock{fakeRoundTrip: sequence(&calls, outcomes...)},
					On:         retry.NewDefaultOn(),
					NewBackOff: retry.NewExponentialBackOff(time.Millisecond, 5*time.Millisecond, 3),
				},
			}

			request, err := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
			if err != nil {
				t.Fatal(err)
			}
			response, err := client.Do(request)
			if want.err != "" {
				if err == nil || !strings.Contains(err.Error(), want.err) {
					t.Errorf("err = %v, want %q", err, want.err)
				}
			} else {
				if err != nil {
					t.Fatal(err)
				}
				defer response.Body.Close()
				if diff := cmp.Diff(want.status, response.StatusCode); diff != "" {
					t.Errorf("(-want +got):\n%s", diff)
				}
			}
			if diff := cmp.Diff(want.calls, atomic.LoadInt32(&calls)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransportReplaysBody(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := &http.Client{
		Transport: &retry.Transport{
			On:         retry.NewDefaultOn(),
			NewBackOff: retry.NewExponentialBackOff(time.Millisecond, time.Millisecond, 2),
		},
	}
	request, err := http.NewRequest(http.MethodPatch, server.URL, strings.NewReader(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	response, err := client.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	response.Body.Close()

	if diff := cmp.Diff([]string{`{"a":1}`, `{"a":1}`}, bodies); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(http.StatusNoContent, response.StatusCode); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestTransportStopsOnCancel(t *testing.T) {
	var calls int32
	client := &http.Client{
		Transport: &retry.Transport{
			Base:       &transportMock{fakeRoundTrip: sequence(&calls, status(http.StatusServiceUnavailable))},
			On:         retry.NewDefaultOn(),
			NewBackOff: retry.NewExponentialBackOff(time.Hour, time.Hour, 5),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid/", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Do(request); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want %v", err, context.DeadlineExceeded)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

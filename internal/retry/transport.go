// Package retry provides an http.RoundTripper that repeats failed requests with exponential
// backoff.
package retry

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/xerrors"
)

type Transport struct {
	Base http.RoundTripper
	On   *On
	// NewBackOff is called once per request. Nil means no retries.
	NewBackOff func() backoff.BackOff
}

// NewExponentialBackOff returns a factory for jittered backoffs capped at maxRetries attempts
// after the first.
func NewExponentialBackOff(initial time.Duration, maxInterval time.Duration, maxRetries uint64) func() backoff.BackOff {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
		b.MaxElapsedTime = 0
		return backoff.WithMaxRetries(b, maxRetries)
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retriable status %d", e.code)
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()

	var (
		attempt int
		last    *http.Response
	)
	response, err := backoff.RetryWithData[*http.Response](func() (*http.Response, error) {
		if last != nil {
			discard(last)
			last = nil
		}

		r, err := rewind(request, attempt)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		attempt++

		response, err := t.base().RoundTrip(r)
		if err != nil {
			if t.On != nil && t.On.Error(err) {
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		if t.On != nil && t.On.Response(response) {
			last = response
			return nil, &statusError{code: response.StatusCode}
		}
		return response, nil
	}, backoff.WithContext(t.backOff(), ctx))
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && last != nil {
			// Out of attempts: hand the last response to the caller.
			return last, nil
		}
		if last != nil {
			discard(last)
		}
		return nil, err
	}
	return response, nil
}

// rewind gives every attempt after the first a fresh copy of the body.
func rewind(request *http.Request, attempt int) (*http.Request, error) {
	if attempt == 0 || request.Body == nil || request.Body == http.NoBody {
		return request, nil
	}
	if request.GetBody == nil {
		return nil, xerrors.New("request body cannot be replayed")
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, xerrors.Errorf("failed to rewind body: %w", err)
	}
	r := request.Clone(request.Context())
	r.Body = body
	return r, nil
}

func discard(response *http.Response) {
	_, _ = io.Copy(io.Discard, response.Body)
	response.Body.Close()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) backOff() backoff.BackOff {
	if t.NewBackOff != nil {
		return t.NewBackOff()
	}
	return &backoff.StopBackOff{}
}

package retry_test

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regiondiff/internal/retry"
	"runtime"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParseOn(s string) *retry.On {
	o, err := retry.ParseOn(s)
	if err != nil {
		panic(err)
	}
	return o
}

func TestParseOn(t *testing.T) {
	got, err := retry.ParseOn("gateway-error, connect-failure,429")
	if err != nil {
		t.Fatal(err)
	}
	want := &retry.On{GatewayError: true, ConnectFailure: true, StatusCodes: []int{429}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if _, err := retry.ParseOn("sometimes"); err == nil {
		t.Errorf("expected an error")
	}
}

func TestOnResponse(t *testing.T) {
	type in struct {
		first int
	}

	tests := []struct {
		name     string
		receiver *retry.On
		in       in
		want     bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("5xx"),
			in{500},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("5xx"),
			in{404},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("gateway-error"),
			in{503},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("gateway-error"),
			in{500},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("retriable-4xx"),
			in{409},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("retriable-4xx"),
			in{400},
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("429"),
			in{429},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultOn(),
			in{200},
			false,
		},
	}

	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.Response(&http.Response{StatusCode: in.first})
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

var _ net.Error = timeoutError{}

func TestOnError(t *testing.T) {
	tests := []struct {
		name     string
		receiver *retry.On
		in       error
		want     bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("connect-failure"),
			io.EOF,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("connect-failure"),
			&net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("5xx"),
			timeoutError{},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("connect-failure"),
			errors.New("fake"),
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustParseOn("gateway-error"),
			io.EOF,
			false,
		},
	}

	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(want, receiver.Error(in)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

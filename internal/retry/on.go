package retry

import (
	"errors"
	"io"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/xerrors"
)

// On lists the conditions under which a request is attempted again. The condition names follow
// envoy's retry_on header.
type On struct {
	ServerError    bool
	GatewayError   bool
	ConnectFailure bool
	Retriable4xx   bool
	StatusCodes    []int
}

// NewDefaultOn retries gateway errors, conflicts and failed connections.
func NewDefaultOn() *On {
	return &On{
		GatewayError:   true,
		ConnectFailure: true,
		Retriable4xx:   true,
	}
}

// ParseOn reads a comma separated list such as "gateway-error,connect-failure,429".
func ParseOn(s string) (*On, error) {
	o := &On{}
	for _, condition := range strings.Split(s, ",") {
		switch condition = strings.TrimSpace(condition); condition {
		case "":
		case "5xx":
			o.ServerError = true
		case "gateway-error":
			o.GatewayError = true
		case "connect-failure":
			o.ConnectFailure = true
		case "retriable-4xx":
			o.Retriable4xx = true
		default:
			statusCode, err := strconv.Atoi(condition)
			if err != nil {
				return nil, xerrors.Errorf("invalid retry condition: %s", condition)
			}
			o.StatusCodes = append(o.StatusCodes, statusCode)
		}
	}
	return o, nil
}

func (o *On) Response(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.ServerError && code >= 500 && code < 600:
		return true
	case o.GatewayError && code >= 502 && code <= 504:
		return true
	case o.Retriable4xx && code == http.StatusConflict:
		return true
	}
	return slices.Contains(o.StatusCodes, code)
}

func (o *On) Error(err error) bool {
	if !o.ConnectFailure && !o.ServerError {
		return false
	}
	return transient(err)
}

func transient(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	type temporary interface{ Temporary() bool }
	var terr temporary
	return errors.As(err, &terr) && terr.Temporary()
}

package rpcpool

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/rpc"
)

// ErrAllEndpointsFailed is returned when no endpoint answers the liveness
// check after one full pass over the endpoint list
var ErrAllEndpointsFailed = errors.New("no RPC endpoint answered the liveness check")

// transientMarkers are substrings seen in provider error bodies that do not
// map onto a typed error
var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"connection refused",
	"connection reset",
	"timed out",
	"timeout",
	"temporarily unavailable",
	"service unavailable",
}

// IsTransient reports whether an error is a transient transport failure
// worth retrying. Anything else (bad request, decode error, cancellation)
// propagates to the caller immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Caller-initiated cancellation is never retried
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// 429 and 5xx from HTTP providers
	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 || httpErr.StatusCode >= 500
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

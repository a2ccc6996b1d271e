package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "cancellation", err: context.Canceled, want: false},
		{name: "wrapped cancellation", err: fmt.Errorf("call failed: %w", context.Canceled), want: false},
		{name: "deadline", err: context.DeadlineExceeded, want: true},
		{name: "eof", err: io.EOF, want: true},
		{name: "unexpected eof", err: io.ErrUnexpectedEOF, want: true},
		{name: "connection reset", err: syscall.ECONNRESET, want: true},
		{name: "connection refused", err: syscall.ECONNREFUSED, want: true},
		{name: "broken pipe", err: syscall.EPIPE, want: true},
		{name: "net timeout", err: timeoutError{}, want: true},
		{name: "http 429", err: rpc.HTTPError{StatusCode: 429}, want: true},
		{name: "http 503", err: rpc.HTTPError{StatusCode: 503}, want: true},
		{name: "http 400", err: rpc.HTTPError{StatusCode: 400}, want: false},
		{name: "rate limit body", err: errors.New("Rate limit exceeded for key"), want: true},
		{name: "too many requests body", err: errors.New("429 Too Many Requests"), want: true},
		{name: "provider maintenance", err: errors.New("server temporarily unavailable"), want: true},
		{name: "bad params", err: errors.New("invalid argument 0: json: cannot unmarshal"), want: false},
		{name: "execution reverted", err: errors.New("execution reverted"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

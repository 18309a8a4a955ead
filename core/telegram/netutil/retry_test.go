package netutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	retry := []error{
		&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("no route to host")},
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}},
		fmt.Errorf("send: %w", syscall.ECONNRESET),
		io.ErrUnexpectedEOF,
		&net.DNSError{Err: "server misbehaving", IsTemporary: true},
	}
	for _, err := range retry {
		assert.True(t, ShouldRetry(err), err.Error())
	}

	keep := []error{
		nil,
		context.Canceled,
		&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: context.Canceled},
		errors.New("telegram: Bad Request: chat not found (400)"),
		&net.DNSError{Err: "no such host", IsNotFound: true},
	}
	for _, err := range keep {
		assert.False(t, ShouldRetry(err), fmt.Sprint(err))
	}
}

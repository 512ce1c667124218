package netLayer

import (
	"errors"
	"net"
	"os"
	"syscall"
)

// IsCommonConnError reports whether err is one of the "destination is simply
// not reachable right now" conditions: connection refused, reset, aborted,
// broken pipe, or any kind of timeout. Callers treat everything else as
// unexpected.
func IsCommonConnError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

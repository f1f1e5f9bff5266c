package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"syscall"
)

// ErrTransient marks a failure as retryable.
var ErrTransient = errors.New("transient failure")

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() []error { return []error{e.err, ErrTransient} }

// MarkTransient wraps err so that IsTransient reports true while errors.Is/As
// still see the original error.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is a connection-level failure or a timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return IsTransient(urlErr.Err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// errorClass labels a transient failure for metrics.
func errorClass(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout"
	}
	return "network"
}

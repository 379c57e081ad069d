package stt

import (
	"fmt"
	"net/http"
)

// apiError is a non-2xx response from the speech API. 429 and 503 are
// retryable, everything else is not.
type apiError struct {
	op     string
	status int
	detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("stt: %s status %d: %s", e.op, e.status, e.detail)
}

func (e *apiError) Transient() bool {
	return e.status == http.StatusTooManyRequests || e.status == http.StatusServiceUnavailable
}

// transportError covers request-level failures (dial, TLS, timeouts) that
// never produced a response. Always worth a retry.
type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("stt: %s: %v", e.op, e.err)
}

func (e *transportError) Transient() bool { return true }

func (e *transportError) Unwrap() error { return e.err }

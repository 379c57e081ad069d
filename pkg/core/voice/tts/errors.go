package tts

import (
	"fmt"
	"net/http"
)

type apiError struct {
	op     string
	status int
	detail string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("tts: %s status %d: %s", e.op, e.status, e.detail)
}

func (e *apiError) Transient() bool {
	return e.status == http.StatusTooManyRequests || e.status == http.StatusServiceUnavailable
}

type transportError struct {
	op  string
	err error
}

func (e *transportError) Error() string {
	return fmt.Sprintf("tts: %s: %v", e.op, e.err)
}

func (e *transportError) Transient() bool { return true }

func (e *transportError) Unwrap() error { return e.err }

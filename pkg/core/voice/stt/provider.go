// Package stt turns recorded learner audio into text.
package stt

import "context"

// Provider transcribes a complete audio clip. Implementations mark
// retryable failures with a `Transient() bool` method.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

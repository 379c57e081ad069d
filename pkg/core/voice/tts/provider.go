// Package tts turns reply text into streamed speech audio.
package tts

import (
	"context"
	"sync"
)

// Provider synthesizes speech for a voice. Implementations mark retryable
// request failures with a `Transient() bool` method; mid-stream failures
// surface through Stream.Err and are never retryable.
type Provider interface {
	Name() string
	SynthesizeStream(ctx context.Context, text, voiceID string) (*Stream, error)
}

// Stream delivers synthesized audio incrementally. Chunks closes when the
// stream ends; check Err afterwards to distinguish completion from failure.
type Stream struct {
	chunks chan []byte

	mu  sync.Mutex
	err error
}

func NewStream(buffer int) *Stream {
	return &Stream{chunks: make(chan []byte, buffer)}
}

func (s *Stream) Chunks() <-chan []byte { return s.chunks }

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Send delivers one chunk, giving up when ctx ends.
func (s *Stream) Send(ctx context.Context, chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close finishes the stream, recording err if the stream failed partway.
func (s *Stream) Close(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.chunks)
}

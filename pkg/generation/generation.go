// Package generation defines the interface to the local language model
// backend. Sessions consume streamed fragments; the extraction pipeline
// and special intents use single-shot completions.
package generation

import "context"

// Message is a single chat message sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Service defines the interface for talking to a generation backend.
type Service interface {
	// StreamChat starts a streaming chat completion. Fragments arrive
	// on the returned Stream as the model produces them. Cancelling ctx
	// aborts the stream.
	StreamChat(ctx context.Context, messages []Message) (*Stream, error)

	// ChatOnce runs a non-streaming chat completion and returns the
	// full response text.
	ChatOnce(ctx context.Context, messages []Message) (string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the service.
	Close() error
}

// Stream delivers generated text fragment by fragment. The fragments
// channel is closed when generation finishes, fails, or is cancelled;
// Err reports what ended the stream and is valid only after the
// channel closes.
type Stream struct {
	fragments chan string
	err       error
}

// NewStream creates a stream with a small fragment buffer. The
// producer calls Send for each fragment and Finish exactly once.
func NewStream() *Stream {
	return &Stream{
		fragments: make(chan string, 16),
	}
}

// Fragments returns the channel fragments arrive on.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Err returns the error that ended the stream, or nil if generation
// completed. Only valid after Fragments is closed.
func (s *Stream) Err() error {
	return s.err
}

// Send delivers one fragment to the consumer.
func (s *Stream) Send(fragment string) {
	s.fragments <- fragment
}

// Finish ends the stream. Must be called exactly once, after the last
// Send.
func (s *Stream) Finish(err error) {
	s.err = err
	close(s.fragments)
}

package session

import (
	"context"
	"strings"
	"sync"

	"github.com/perpetual-s/gemi/pkg/chat"
)

// State is the lifecycle state of a generation handle.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Handle tracks one in-flight or finished generation. Fragments arrive
// on Fragments in stream order; Text exposes the live accumulated
// value; Done closes once the handle reaches a terminal state and any
// resulting turn has been persisted.
type Handle struct {
	mu      sync.Mutex
	state   State
	text    strings.Builder
	sources []chat.ContextSourceRef

	fragments chan string
	done      chan struct{}
	cancel    context.CancelFunc
}

func newHandle(sources []chat.ContextSourceRef, cancel context.CancelFunc) *Handle {
	return &Handle{
		state:     StateRunning,
		sources:   sources,
		fragments: make(chan string, 16),
		done:      make(chan struct{}),
		cancel:    cancel,
	}
}

// State returns the handle's current state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Text returns the text accumulated so far.
func (h *Handle) Text() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.text.String()
}

// Sources returns the context sources that informed this generation.
func (h *Handle) Sources() []chat.ContextSourceRef {
	return h.sources
}

// Fragments returns the channel live fragments are delivered on. It is
// closed when the handle reaches a terminal state.
func (h *Handle) Fragments() <-chan string {
	return h.fragments
}

// Done returns a channel closed once the handle is terminal and any
// resulting turn has been persisted.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Cancel transitions a running handle to cancelled and stops the
// underlying stream. Idempotent; a no-op on handles that already
// reached a terminal state.
func (h *Handle) Cancel() {
	h.mu.Lock()
	if h.state != StateRunning {
		h.mu.Unlock()
		return
	}
	h.state = StateCancelled
	h.mu.Unlock()

	h.cancel()
}

// append records one fragment. Fragments arriving after cancellation
// are dropped whole.
func (h *Handle) append(fragment string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateRunning {
		return false
	}
	h.text.WriteString(fragment)
	return true
}

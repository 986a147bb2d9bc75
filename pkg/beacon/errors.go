package beacon

import (
	"errors"
	"fmt"
)

// ErrDisposed is returned when an operation is attempted on a disposed
// notifier. Disposed notifiers are inert: every call except Dispose, Init
// and IsDisposed fails with this error until Init re-activates the node.
var ErrDisposed = errors.New("beacon: notifier is disposed")

// ErrActive is returned by Init when the notifier is already active.
// Init is only meaningful on a disposed node.
var ErrActive = errors.New("beacon: notifier is already active")

// ErrSelfReference is returned when a notifier is asked to attach to or
// listen to itself.
var ErrSelfReference = errors.New("beacon: notifier cannot forward to itself")

// ErrCycle is returned when an attach or listen operation would close a
// forwarding loop. The check covers the union of attach and listen edges,
// so a cycle can never form through a mix of the two.
var ErrCycle = errors.New("beacon: operation would create a forwarding cycle")

// ErrNilNotifier is returned when a nil notifier is supplied where a live
// node is required.
var ErrNilNotifier = errors.New("beacon: nil notifier")

// ErrNilListener is returned when an invalid (zero or nil-function)
// listener is supplied.
var ErrNilListener = errors.New("beacon: nil listener")

// ErrDuplicateListener is returned when a listener with the same identity
// is already registered on the node.
var ErrDuplicateListener = errors.New("beacon: listener already registered")

// ErrAlreadyAttached is returned when the target is already a direct
// attach target of the node.
var ErrAlreadyAttached = errors.New("beacon: target already attached")

// ErrAlreadyListening is returned when the node already listens to the
// given source.
var ErrAlreadyListening = errors.New("beacon: already listening to source")

// ErrForwardingListener is returned when a removal addresses a listener
// that realizes a listen edge. Forwarding listeners are removed only as a
// whole edge, via StopListeningTo, so the edge bookkeeping on both nodes
// stays consistent.
var ErrForwardingListener = errors.New("beacon: listener belongs to a listen edge; use StopListeningTo")

// ErrGroupPrecondition is returned by the atomic Group operations when the
// whole-collection precondition fails. No member has been mutated.
var ErrGroupPrecondition = errors.New("beacon: atomic group precondition failed")

// ListenerError wraps an error raised by listener code during a
// notification round. It is what the node's ErrorPolicy receives, and what
// Notify returns when the policy decides Rethrow.
type ListenerError struct {
	// Key is the registry key of the failing listener.
	Key Key

	// Err is the error returned by the listener, or the recovered panic
	// value wrapped as an error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("beacon: listener %d failed: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

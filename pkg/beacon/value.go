package beacon

import "sync"

// ValueNotifier is a broadcast node carrying a typed last-value buffer.
// It is a Notifier in every respect (it joins the same graphs, obeys the
// same lifecycle and error policy) plus value-typed propagation rules:
//
//   - Publish overwrites the buffer, then broadcasts the value.
//   - Notify and Republish rebroadcast the buffered value; before the
//     first Publish or SetValue the buffer is unset and unary listeners
//     receive NoValue.
//   - Nullary listeners registered on a value-carrying node are still
//     invoked; the value is simply discarded for them.
//   - A value arriving over a listen edge is buffered before the node's
//     own listeners run, when its runtime type is assignable to T.
//     An incompatible value triggers a plain round instead.
//
// Attach edges never carry a value in either direction.
type ValueNotifier[T any] struct {
	Notifier

	bufMu  sync.Mutex
	buf    T
	bufSet bool
}

// NewValue creates an active value-carrying notifier with an unset buffer.
func NewValue[T any](opts ...Option) *ValueNotifier[T] {
	v := &ValueNotifier[T]{}
	v.Notifier = Notifier{
		id:         nextID(),
		sources:    make(map[*Notifier]Key),
		attachers:  make(map[*Notifier]struct{}),
		forwardees: make(map[*Notifier]struct{}),
	}
	v.Notifier.payload = v.currentPayload
	v.Notifier.absorb = v.absorbValue
	v.Notifier.reset = v.resetValue

	v.Notifier.opts = opts
	for _, o := range opts {
		o(&v.Notifier)
	}
	return v
}

// NewValueFrom creates a value-carrying notifier with an initial buffered
// value. The initial value is buffered, not broadcast.
func NewValueFrom[T any](initial T, opts ...Option) *ValueNotifier[T] {
	v := NewValue[T](opts...)
	v.SetValue(initial)
	return v
}

// Value returns the buffered value and whether one has been set.
func (v *ValueNotifier[T]) Value() (T, bool) {
	v.bufMu.Lock()
	defer v.bufMu.Unlock()
	return v.buf, v.bufSet
}

// MustValue returns the buffered value, or T's zero value while the
// buffer is unset.
func (v *ValueNotifier[T]) MustValue() T {
	val, _ := v.Value()
	return val
}

// SetValue overwrites the buffer without notifying anyone.
func (v *ValueNotifier[T]) SetValue(val T) {
	v.bufMu.Lock()
	v.buf = val
	v.bufSet = true
	v.bufMu.Unlock()
}

// Publish overwrites the buffer and broadcasts the new value: unary
// listeners receive exactly val, nullary listeners fire without it, and
// attached targets are then triggered valuelessly.
func (v *ValueNotifier[T]) Publish(val T) error {
	if v.disposed.Load() {
		return ErrDisposed
	}
	v.SetValue(val)
	return v.notifyRound(val, true)
}

// Republish rebroadcasts the buffered value, exactly as Notify does.
// While the buffer is unset, unary listeners receive NoValue.
func (v *ValueNotifier[T]) Republish() error {
	return v.notifyRound(nil, false)
}

// PublishAsync schedules Publish on the node's async queue. The buffer is
// overwritten when the round runs, not when the call is issued.
func (v *ValueNotifier[T]) PublishAsync(val T) <-chan error {
	return v.enqueueAsync(func() error { return v.Publish(val) })
}

// currentPayload is the base notifier's payload hook.
func (v *ValueNotifier[T]) currentPayload() (any, bool) {
	v.bufMu.Lock()
	defer v.bufMu.Unlock()
	if !v.bufSet {
		return nil, false
	}
	return v.buf, true
}

// absorbValue is the base notifier's absorb hook for listen-edge
// forwarding: a type-compatible value is buffered, anything else is
// reported incompatible and left alone.
func (v *ValueNotifier[T]) absorbValue(raw any) bool {
	val, ok := raw.(T)
	if !ok {
		return false
	}
	v.SetValue(val)
	return true
}

// resetValue is the base notifier's reset hook: Dispose unsets the buffer
// along with the registry and edges.
func (v *ValueNotifier[T]) resetValue() {
	v.bufMu.Lock()
	var zero T
	v.buf = zero
	v.bufSet = false
	v.bufMu.Unlock()
}

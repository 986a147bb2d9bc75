package beacon

import (
	"fmt"
	"reflect"
)

// Key addresses a registered listener within its notifier. Keys are minted
// per node, stay stable for the listener's registered lifetime, and are
// unique within the node while the registration is live. The zero Key is
// never issued and marks a failed registration in batch results.
type Key uint64

// KeyNone is the zero Key, returned for failed additions in batch results.
const KeyNone Key = 0

// NoValue is delivered to unary listeners when the round carries no
// payload: the node is not value-carrying, or a value-carrying node has
// nothing buffered yet. It is an explicit marker, never coerced to a
// type's zero value.
var NoValue any = noValue{}

type noValue struct{}

func (noValue) String() string { return "beacon.NoValue" }

// Listener is a 0- or 1-argument callable registered on a notifier. The
// arity is fixed at construction by the chosen constructor (On, OnErr,
// OnValue, OnValueErr) and invocation dispatches on it: nullary listeners
// are called with nothing, unary listeners receive the round's payload or
// NoValue.
//
// Listener identity is the wrapped function's code pointer. Registering
// two listeners built from the same function value is rejected as a
// duplicate; two distinct function declarations are always distinct.
type Listener struct {
	id      uintptr
	nullary func() error
	unary   func(any) error
}

// On wraps a 0-argument callback.
func On(fn func()) Listener {
	if fn == nil {
		return Listener{}
	}
	return Listener{
		id:      reflect.ValueOf(fn).Pointer(),
		nullary: func() error { fn(); return nil },
	}
}

// OnErr wraps a 0-argument callback that can report an error. The error
// is routed through the node's ErrorPolicy.
func OnErr(fn func() error) Listener {
	if fn == nil {
		return Listener{}
	}
	return Listener{
		id:      reflect.ValueOf(fn).Pointer(),
		nullary: fn,
	}
}

// OnValue wraps a 1-argument callback. On a value-carrying node the
// callback receives the round's value; on a plain node it receives
// NoValue.
func OnValue(fn func(v any)) Listener {
	if fn == nil {
		return Listener{}
	}
	return Listener{
		id:    reflect.ValueOf(fn).Pointer(),
		unary: func(v any) error { fn(v); return nil },
	}
}

// OnValueErr wraps a 1-argument callback that can report an error.
func OnValueErr(fn func(v any) error) Listener {
	if fn == nil {
		return Listener{}
	}
	return Listener{
		id:    reflect.ValueOf(fn).Pointer(),
		unary: fn,
	}
}

// valid reports whether the listener wraps a callable.
func (l Listener) valid() bool {
	return l.nullary != nil || l.unary != nil
}

// invoke calls the wrapped function, dispatching on arity. A panic in
// listener code is recovered and returned as an error so the node's
// ErrorPolicy can decide its fate.
func (l Listener) invoke(payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("listener panic: %v", r)
			}
		}
	}()

	if l.nullary != nil {
		return l.nullary()
	}
	return l.unary(payload)
}

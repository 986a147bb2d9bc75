package beacon

import "errors"

// NotifierLike is satisfied by anything that can stand in for an ordered
// collection of notifiers: a *Notifier, a *ValueNotifier[T] (each a
// one-element collection of itself) or a Group. Batch operations are
// written once against NotifierLike, so a single node and a collection
// are interchangeable.
type NotifierLike interface {
	nodes() []*Notifier
}

// Group is an ordered collection of notifier handles with no state of its
// own. Its elementwise methods apply a node operation to every member and
// return a same-shaped slice of per-member results; a failing member never
// affects its siblings. The Atomic variants first check a
// whole-collection precondition (every member non-nil and active) and
// mutate nothing at all when it fails.
//
// A nil member yields the operation's failure result at its position.
type Group []Node

// GroupOf flattens the given collections (or single nodes) into one Group.
func GroupOf(parts ...NotifierLike) Group {
	var g Group
	for _, p := range parts {
		if p == nil {
			g = append(g, nil)
			continue
		}
		for _, n := range p.nodes() {
			if n == nil {
				g = append(g, nil)
			} else {
				g = append(g, n)
			}
		}
	}
	return g
}

// nodes implements NotifierLike.
func (g Group) nodes() []*Notifier {
	out := make([]*Notifier, len(g))
	for i, m := range g {
		if m != nil {
			out[i] = m.base()
		}
	}
	return out
}

// each runs fn over the unwrapped members, passing nil for invalid ones.
func (g Group) each(fn func(i int, n *Notifier)) {
	for i, m := range g {
		n, err := unwrap(m)
		if err != nil {
			n = nil
		}
		fn(i, n)
	}
}

// Notify runs a round on every member independently.
func (g Group) Notify() []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.Notify()
	})
	return out
}

// NotifyAsync schedules a round on every member independently.
func (g Group) NotifyAsync() []<-chan error {
	out := make([]<-chan error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			ch := make(chan error, 1)
			ch <- ErrNilNotifier
			out[i] = ch
			return
		}
		out[i] = n.NotifyAsync()
	})
	return out
}

// AddListener registers the listener on every member; KeyNone marks a
// failed member.
func (g Group) AddListener(l Listener) []Key {
	out := make([]Key, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = KeyNone
			return
		}
		out[i], _ = n.AddListener(l)
	})
	return out
}

// RemoveListener removes the listener from every member.
func (g Group) RemoveListener(l Listener) []bool {
	out := make([]bool, len(g))
	g.each(func(i int, n *Notifier) {
		out[i] = n != nil && n.RemoveListener(l)
	})
	return out
}

// ClearListeners clears every member, edge cascades included.
func (g Group) ClearListeners() []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.ClearListeners()
	})
	return out
}

// Attach attaches target to every member.
func (g Group) Attach(target Node) []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.Attach(target)
	})
	return out
}

// Detach detaches target from every member.
func (g Group) Detach(target Node) []bool {
	out := make([]bool, len(g))
	g.each(func(i int, n *Notifier) {
		out[i] = n != nil && n.Detach(target)
	})
	return out
}

// StartListeningTo makes every member listen to source.
func (g Group) StartListeningTo(source Node) []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.StartListeningTo(source)
	})
	return out
}

// StopListeningTo severs every member's listen edge to source.
func (g Group) StopListeningTo(source Node) []bool {
	out := make([]bool, len(g))
	g.each(func(i int, n *Notifier) {
		out[i] = n != nil && n.StopListeningTo(source)
	})
	return out
}

// SetReversed flips traversal direction on every member.
func (g Group) SetReversed(reversed bool) []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.SetReversed(reversed)
	})
	return out
}

// SetErrorPolicy replaces the error policy on every member.
func (g Group) SetErrorPolicy(p ErrorPolicy) []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.SetErrorPolicy(p)
	})
	return out
}

// Dispose disposes every member independently.
func (g Group) Dispose() []bool {
	out := make([]bool, len(g))
	g.each(func(i int, n *Notifier) {
		out[i] = n != nil && n.Dispose()
	})
	return out
}

// Init re-activates every disposed member with its own retained options.
func (g Group) Init() []error {
	out := make([]error, len(g))
	g.each(func(i int, n *Notifier) {
		if n == nil {
			out[i] = ErrNilNotifier
			return
		}
		out[i] = n.Init()
	})
	return out
}

// check is the whole-collection precondition of the Atomic variants.
func (g Group) check() error {
	for _, m := range g {
		n, err := unwrap(m)
		if err != nil {
			return ErrGroupPrecondition
		}
		if n.IsDisposed() {
			return ErrGroupPrecondition
		}
	}
	return nil
}

// AtomicNotify notifies every member, but only after the whole-collection
// precondition holds; on precondition failure nothing runs. Member errors
// are joined into the returned error.
func (g Group) AtomicNotify() error {
	if err := g.check(); err != nil {
		return err
	}
	return errors.Join(g.Notify()...)
}

// AtomicAddListener registers the listener on every member, or on none
// when the precondition fails.
func (g Group) AtomicAddListener(l Listener) ([]Key, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	return g.AddListener(l), nil
}

// AtomicAttach attaches target to every member, or to none when the
// precondition fails.
func (g Group) AtomicAttach(target Node) error {
	if err := g.check(); err != nil {
		return err
	}
	return errors.Join(g.Attach(target)...)
}

// AtomicClear clears every member, or none when the precondition fails.
func (g Group) AtomicClear() error {
	if err := g.check(); err != nil {
		return err
	}
	return errors.Join(g.ClearListeners()...)
}

// AtomicDispose disposes every member, or none when any member is already
// disposed (or nil).
func (g Group) AtomicDispose() error {
	if err := g.check(); err != nil {
		return err
	}
	g.Dispose()
	return nil
}

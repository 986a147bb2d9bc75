package beacon

// Option configures a notifier at construction. The same options are
// retained on the node and re-applied by Init after a dispose/init cycle.
//
// Options that pre-populate state (WithListeners, WithAttach, WithListenTo,
// WithMerge) are batch operations: each element succeeds or fails on its
// own and a failing element never aborts construction.
type Option func(*Notifier)

// WithListeners registers the given listeners during construction.
func WithListeners(ls ...Listener) Option {
	return func(n *Notifier) {
		n.AddListeners(ls...)
	}
}

// WithErrorPolicy sets the node's error policy. An unset policy rethrows.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(n *Notifier) {
		n.mu.Lock()
		n.policy = p
		n.mu.Unlock()
	}
}

// WithReversed makes the node traverse its listeners in reverse order
// during every round.
func WithReversed() Option {
	return func(n *Notifier) {
		n.mu.Lock()
		n.reg.reversed = true
		n.mu.Unlock()
	}
}

// WithAttach attaches the given targets during construction.
func WithAttach(targets ...Node) Option {
	return func(n *Notifier) {
		n.AttachAll(targets...)
	}
}

// WithListenTo starts listening to the given sources during construction.
func WithListenTo(sources ...Node) Option {
	return func(n *Notifier) {
		n.StartListeningToAll(sources...)
	}
}

// WithMerge pre-populates the node's registry with a structural copy of
// the given notifiers' listeners. The copy is by value: the new node is
// fully independent afterward, and forwarding listeners realizing the
// originals' listen edges are not carried over.
func WithMerge(parts ...NotifierLike) Option {
	return func(n *Notifier) {
		for _, p := range parts {
			if p == nil {
				continue
			}
			for _, m := range p.nodes() {
				if m == nil {
					continue
				}
				m.mu.Lock()
				snap := m.reg.snapshot()
				m.mu.Unlock()
				for _, e := range snap {
					if e.forward != nil {
						continue
					}
					// Union semantics: duplicate identities across parts
					// collapse to one registration.
					_, _ = n.AddListener(e.l)
				}
			}
		}
	}
}

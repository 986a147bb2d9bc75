package beacon

// entry is one live registration in a registry.
type entry struct {
	key Key
	l   Listener

	// forward is non-nil when the entry realizes a listen edge: the node
	// that registered it to forward notifications to itself. Such entries
	// are only removable as a whole edge.
	forward *Notifier
}

// registry is the ordered listener collection owned by a Notifier.
// It is not safe for concurrent use on its own; the owning node's mutex
// guards every call.
type registry struct {
	entries []entry
	nextKey Key

	// reversed flips snapshot traversal for all subsequent rounds without
	// touching stored order, so keys stay stable.
	reversed bool
}

// indexOfKey returns the position of the live entry with the given key,
// or -1.
func (r *registry) indexOfKey(k Key) int {
	for i := range r.entries {
		if r.entries[i].key == k {
			return i
		}
	}
	return -1
}

// indexOfID returns the position of the live plain entry with the given
// listener identity, or -1. Forwarding entries are excluded: their
// closures share a code pointer, so their identity is the peer node.
func (r *registry) indexOfID(id uintptr) int {
	for i := range r.entries {
		if r.entries[i].forward == nil && r.entries[i].l.id == id {
			return i
		}
	}
	return -1
}

// add appends a listener and mints its key. It fails on an invalid
// listener or when the same identity is already registered: the function
// identity for a plain listener, the forwarding peer for a listen edge.
func (r *registry) add(l Listener, forward *Notifier) (Key, error) {
	if !l.valid() {
		return KeyNone, ErrNilListener
	}
	if forward == nil {
		if r.indexOfID(l.id) >= 0 {
			return KeyNone, ErrDuplicateListener
		}
	} else {
		for i := range r.entries {
			if r.entries[i].forward == forward {
				return KeyNone, ErrAlreadyListening
			}
		}
	}

	r.nextKey++
	k := r.nextKey
	r.entries = append(r.entries, entry{key: k, l: l, forward: forward})
	return k, nil
}

// removeAt deletes the entry at position i preserving order.
func (r *registry) removeAt(i int) entry {
	e := r.entries[i]
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return e
}

// clear drops every entry unconditionally, forwarding entries included.
// The caller is responsible for severing the matching edges.
func (r *registry) clear() {
	r.entries = nil
}

// live reports whether the key still addresses a registration. Used for
// the per-entry liveness check during snapshot dispatch, so removals made
// by a reentrant listener are honored mid-round.
func (r *registry) live(k Key) bool {
	return r.indexOfKey(k) >= 0
}

// get returns the live entry for the key.
func (r *registry) get(k Key) (entry, bool) {
	if i := r.indexOfKey(k); i >= 0 {
		return r.entries[i], true
	}
	return entry{}, false
}

// snapshot copies the current entries in traversal order. A round iterates
// the copy: listeners added after the snapshot are not invoked in that
// round, removed ones are skipped by the liveness check.
func (r *registry) snapshot() []entry {
	out := make([]entry, len(r.entries))
	if r.reversed {
		for i := range r.entries {
			out[len(r.entries)-1-i] = r.entries[i]
		}
	} else {
		copy(out, r.entries)
	}
	return out
}

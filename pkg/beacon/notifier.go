package beacon

import (
	"sync"
	"sync/atomic"
)

// graphMu guards the forwarding-edge sets (attach targets, listen sources
// and their reverse indexes) of every node in the process. A single lock
// keeps cross-node edge updates (attach, listen, clear cascades, dispose)
// atomic with respect to a concurrently running round, and makes the cycle
// check race-free. It is never held while listener code runs.
//
// Lock order: graphMu before any node's mu, never the reverse.
var graphMu sync.Mutex

// Node is anything with a notifier at its core: a *Notifier or a
// *ValueNotifier[T]. Every graph operation (attach, listen, group
// membership) accepts a Node so plain and value-carrying notifiers mix
// freely in one graph.
type Node interface {
	base() *Notifier
}

// Notifier is a broadcast node: an ordered listener registry plus
// forwarding edges to other nodes. Notifying it runs its listeners in
// registry order, routes listener errors through the node's error policy,
// and then triggers each attached target.
//
// All methods are safe for concurrent use. Listener callbacks run with no
// locks held, so a listener may reenter the node (add, remove, notify,
// dispose) without deadlocking; mutations made mid-round are honored by a
// per-entry liveness check, never by editing the running snapshot.
type Notifier struct {
	id uint64

	// mu guards the registry and the error policy.
	mu     sync.Mutex
	reg    registry
	policy ErrorPolicy

	// disposed gates every operation except Dispose, Init and IsDisposed.
	disposed atomic.Bool

	// opts are the construction options, retained so Init can re-apply
	// them after a dispose/init cycle.
	opts []Option

	// Edge sets, all guarded by graphMu.
	targets    []*Notifier              // attach order is notification order
	sources    map[*Notifier]Key        // source → key of our forwarding listener in it
	attachers  map[*Notifier]struct{}   // nodes that attached us as a target
	forwardees map[*Notifier]struct{}   // nodes listening to us

	// Value hooks, installed by ValueNotifier. payload yields the buffered
	// value for unary listeners; absorb buffers a forwarded value and
	// reports whether its type was compatible. Both nil on a plain node.
	payload func() (any, bool)
	absorb  func(any) bool
	reset   func()

	// Async dispatch queue, guarded by asyncMu.
	asyncMu sync.Mutex
	asyncQ  []asyncJob
	asyncOn bool
}

// New creates an active notifier with an empty registry and applies the
// given options. The options are retained and re-applied by Init.
func New(opts ...Option) *Notifier {
	n := &Notifier{
		id:         nextID(),
		sources:    make(map[*Notifier]Key),
		attachers:  make(map[*Notifier]struct{}),
		forwardees: make(map[*Notifier]struct{}),
	}
	n.opts = opts
	for _, o := range opts {
		o(n)
	}
	return n
}

// Merge creates a new notifier whose registry starts as the union of the
// given notifiers' listeners. The copy is structural: the new node shares
// no edges or state with the originals.
func Merge(parts ...NotifierLike) *Notifier {
	return New(WithMerge(parts...))
}

// ID returns the unique identifier for this notifier.
func (n *Notifier) ID() uint64 { return n.id }

// base implements Node.
func (n *Notifier) base() *Notifier { return n }

// nodes implements NotifierLike: a single notifier is a one-element
// collection of itself.
func (n *Notifier) nodes() []*Notifier { return []*Notifier{n} }

// unwrap validates a Node argument and returns its core.
func unwrap(x Node) (*Notifier, error) {
	if x == nil {
		return nil, ErrNilNotifier
	}
	b := x.base()
	if b == nil {
		return nil, ErrNilNotifier
	}
	return b, nil
}

// =============================================================================
// Listener registry
// =============================================================================

// AddListener registers a listener at the end of the registry and returns
// its addressable key. It fails on an invalid listener, when the same
// identity is already registered, or on a disposed node.
func (n *Notifier) AddListener(l Listener) (Key, error) {
	if n.disposed.Load() {
		return KeyNone, ErrDisposed
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.reg.add(l, nil)
}

// AddListeners registers each listener independently and returns one key
// per input position; KeyNone marks a failed element.
func (n *Notifier) AddListeners(ls ...Listener) []Key {
	keys := make([]Key, len(ls))
	for i, l := range ls {
		keys[i], _ = n.AddListener(l)
	}
	return keys
}

// RemoveListener removes the registration with the given listener's
// identity. It returns true iff a matching entry existed and was removed.
// Listeners realizing a listen edge are not individually removable; use
// StopListeningTo.
func (n *Notifier) RemoveListener(l Listener) bool {
	if n.disposed.Load() || !l.valid() {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	i := n.reg.indexOfID(l.id)
	if i < 0 {
		return false
	}
	n.reg.removeAt(i)
	return true
}

// RemoveKey removes the registration addressed by key. Same contract as
// RemoveListener.
func (n *Notifier) RemoveKey(k Key) bool {
	if n.disposed.Load() {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	i := n.reg.indexOfKey(k)
	if i < 0 || n.reg.entries[i].forward != nil {
		return false
	}
	n.reg.removeAt(i)
	return true
}

// RemoveListeners removes each listener independently, order-preserving.
func (n *Notifier) RemoveListeners(ls ...Listener) []bool {
	out := make([]bool, len(ls))
	for i, l := range ls {
		out[i] = n.RemoveListener(l)
	}
	return out
}

// RemoveKeys removes each key independently, order-preserving.
func (n *Notifier) RemoveKeys(keys ...Key) []bool {
	out := make([]bool, len(keys))
	for i, k := range keys {
		out[i] = n.RemoveKey(k)
	}
	return out
}

// ClearListeners empties the registry and severs every attach and listen
// edge in both directions. This is the one operation whose blast radius
// crosses node boundaries; the whole cascade is applied atomically with
// respect to any concurrently running round.
func (n *Notifier) ClearListeners() error {
	if n.disposed.Load() {
		return ErrDisposed
	}
	graphMu.Lock()
	n.severAllEdgesLocked()
	graphMu.Unlock()

	n.mu.Lock()
	n.reg.clear()
	n.mu.Unlock()
	return nil
}

// SetReversed flips the traversal direction for all subsequent rounds.
// Stored order and listener keys are unaffected.
func (n *Notifier) SetReversed(reversed bool) error {
	if n.disposed.Load() {
		return ErrDisposed
	}
	n.mu.Lock()
	n.reg.reversed = reversed
	n.mu.Unlock()
	return nil
}

// SetErrorPolicy replaces the node's error policy. A nil policy rethrows.
func (n *Notifier) SetErrorPolicy(p ErrorPolicy) error {
	if n.disposed.Load() {
		return ErrDisposed
	}
	n.mu.Lock()
	n.policy = p
	n.mu.Unlock()
	return nil
}

// =============================================================================
// Introspection
// =============================================================================

// IsDisposed reports whether the node has been disposed and not since
// re-initialized. This is the only read permitted on a disposed node.
func (n *Notifier) IsDisposed() bool { return n.disposed.Load() }

// HasListeners reports whether the registry is non-empty.
func (n *Notifier) HasListeners() bool { return n.ListenerCount() > 0 }

// ListenerCount returns the number of live registrations, forwarding
// listeners included.
func (n *Notifier) ListenerCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.reg.entries)
}

// IsListeningTo reports whether the node currently forwards from x.
func (n *Notifier) IsListeningTo(x Node) bool {
	s, err := unwrap(x)
	if err != nil {
		return false
	}
	graphMu.Lock()
	defer graphMu.Unlock()
	_, ok := n.sources[s]
	return ok
}

// HasAttached reports whether x is a direct attach target of the node.
func (n *Notifier) HasAttached(x Node) bool {
	t, err := unwrap(x)
	if err != nil {
		return false
	}
	graphMu.Lock()
	defer graphMu.Unlock()
	return n.indexOfTargetLocked(t) >= 0
}

// =============================================================================
// Composition: attach edges
// =============================================================================

func (n *Notifier) indexOfTargetLocked(t *Notifier) int {
	for i, x := range n.targets {
		if x == t {
			return i
		}
	}
	return -1
}

// reachableLocked reports whether to can be reached from from by following
// forwarding edges: attach edges (node → target) and listen edges
// (source → listener). Callers hold graphMu.
func reachableLocked(from, to *Notifier) bool {
	if from == to {
		return true
	}
	seen := map[*Notifier]struct{}{from: {}}
	stack := []*Notifier{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range cur.targets {
			if next == to {
				return true
			}
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				stack = append(stack, next)
			}
		}
		for next := range cur.forwardees {
			if next == to {
				return true
			}
			if _, ok := seen[next]; !ok {
				seen[next] = struct{}{}
				stack = append(stack, next)
			}
		}
	}
	return false
}

// Attach adds target to this node's attach targets: every future round of
// this node also triggers target, after this node's own listeners,
// recursively. Attach never forwards a value. The operation is rejected,
// with no state mutated, when target is nil, disposed, the node itself,
// already attached, or when the new edge would close a forwarding loop.
func (n *Notifier) Attach(target Node) error {
	t, err := unwrap(target)
	if err != nil {
		return err
	}
	if t == n {
		return ErrSelfReference
	}

	graphMu.Lock()
	defer graphMu.Unlock()
	// Checked under graphMu: a concurrent Dispose flips the flag before it
	// takes the lock to sever edges, so a disposed node can never gain one.
	if n.disposed.Load() || t.disposed.Load() {
		return ErrDisposed
	}
	if n.indexOfTargetLocked(t) >= 0 {
		return ErrAlreadyAttached
	}
	if reachableLocked(t, n) {
		return ErrCycle
	}
	n.targets = append(n.targets, t)
	t.attachers[n] = struct{}{}
	return nil
}

// AttachAll attaches each target independently and returns one result per
// input position.
func (n *Notifier) AttachAll(targets ...Node) []error {
	out := make([]error, len(targets))
	for i, t := range targets {
		out[i] = n.Attach(t)
	}
	return out
}

// Detach removes target from the attach targets. It returns true iff the
// target was previously attached.
func (n *Notifier) Detach(target Node) bool {
	t, err := unwrap(target)
	if err != nil {
		return false
	}
	graphMu.Lock()
	defer graphMu.Unlock()
	i := n.indexOfTargetLocked(t)
	if i < 0 {
		return false
	}
	n.targets = append(n.targets[:i], n.targets[i+1:]...)
	delete(t.attachers, n)
	return true
}

// DetachAll detaches each target independently.
func (n *Notifier) DetachAll(targets ...Node) []bool {
	out := make([]bool, len(targets))
	for i, t := range targets {
		out[i] = n.Detach(t)
	}
	return out
}

// =============================================================================
// Composition: listen edges
// =============================================================================

// StartListeningTo registers a forwarding listener on source: every round
// of source also triggers this node, carrying the value across when both
// ends are value-carrying and the types are compatible. The edge is
// recorded on both nodes so StopListeningTo, ClearListeners and Dispose
// can sever it symmetrically. Rejected, with no state mutated, under the
// same nil/disposed/self conditions as Attach, when the node already
// listens to source, or when the new edge would close a forwarding loop.
func (n *Notifier) StartListeningTo(source Node) error {
	s, err := unwrap(source)
	if err != nil {
		return err
	}
	if s == n {
		return ErrSelfReference
	}

	graphMu.Lock()
	defer graphMu.Unlock()
	// Same discipline as Attach: the flag is re-read under graphMu so the
	// edge cannot slip in between a Dispose's flag flip and its sever.
	if n.disposed.Load() || s.disposed.Load() {
		return ErrDisposed
	}
	if _, ok := n.sources[s]; ok {
		return ErrAlreadyListening
	}
	// The new edge points source → n; a path n ⇝ source closes a loop.
	if reachableLocked(n, s) {
		return ErrCycle
	}

	fwd := OnValueErr(func(v any) error { return n.forwardFrom(v) })

	s.mu.Lock()
	key, err := s.reg.add(fwd, n)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	n.sources[s] = key
	s.forwardees[n] = struct{}{}
	return nil
}

// StartListeningToAll starts listening to each source independently.
func (n *Notifier) StartListeningToAll(sources ...Node) []error {
	out := make([]error, len(sources))
	for i, s := range sources {
		out[i] = n.StartListeningTo(s)
	}
	return out
}

// StopListeningTo severs the listen edge to source, removing the
// forwarding listener from source's registry. It returns true iff the
// node was listening to source.
func (n *Notifier) StopListeningTo(source Node) bool {
	s, err := unwrap(source)
	if err != nil {
		return false
	}
	graphMu.Lock()
	defer graphMu.Unlock()
	return n.stopListeningLocked(s)
}

// StopListeningToAll severs each listen edge independently.
func (n *Notifier) StopListeningToAll(sources ...Node) []bool {
	out := make([]bool, len(sources))
	for i, s := range sources {
		out[i] = n.StopListeningTo(s)
	}
	return out
}

func (n *Notifier) stopListeningLocked(s *Notifier) bool {
	key, ok := n.sources[s]
	if !ok {
		return false
	}
	delete(n.sources, s)
	delete(s.forwardees, n)

	s.mu.Lock()
	if i := s.reg.indexOfKey(key); i >= 0 {
		s.reg.removeAt(i)
	}
	s.mu.Unlock()
	return true
}

// severInboundLocked removes the listen edge by which x listens to n.
// Used when the error policy decides Remove for a forwarding listener.
func (n *Notifier) severInboundLocked(x *Notifier) {
	key, ok := x.sources[n]
	if !ok {
		return
	}
	delete(x.sources, n)
	delete(n.forwardees, x)

	n.mu.Lock()
	if i := n.reg.indexOfKey(key); i >= 0 {
		n.reg.removeAt(i)
	}
	n.mu.Unlock()
}

// forwardFrom is the body of every forwarding listener this node plants in
// its sources. A compatible value is buffered first, then the node runs
// its own round with it; anything else triggers a plain round.
func (n *Notifier) forwardFrom(v any) error {
	if n.disposed.Load() {
		return nil
	}
	if n.absorb != nil && v != NoValue {
		if n.absorb(v) {
			return n.notifyRound(v, true)
		}
	}
	return n.notifyRound(nil, false)
}

// severAllEdgesLocked clears every edge touching n, in both directions.
// Forwarding entries that other nodes planted in n's registry are left for
// the caller to clear along with the rest of the registry.
func (n *Notifier) severAllEdgesLocked() {
	for s, key := range n.sources {
		delete(s.forwardees, n)
		s.mu.Lock()
		if i := s.reg.indexOfKey(key); i >= 0 {
			s.reg.removeAt(i)
		}
		s.mu.Unlock()
	}
	n.sources = make(map[*Notifier]Key)

	for x := range n.forwardees {
		delete(x.sources, n)
	}
	n.forwardees = make(map[*Notifier]struct{})

	for _, t := range n.targets {
		delete(t.attachers, n)
	}
	n.targets = nil

	for a := range n.attachers {
		if i := a.indexOfTargetLocked(n); i >= 0 {
			a.targets = append(a.targets[:i], a.targets[i+1:]...)
		}
	}
	n.attachers = make(map[*Notifier]struct{})
}

// =============================================================================
// Notification
// =============================================================================

// Notify runs one synchronous round: the registry snapshot is iterated in
// order (or reversed, per SetReversed), listener errors are routed through
// the error policy, and then each attached target is notified in
// attachment order. On a value-carrying node the buffered value is
// (re-)broadcast; on a plain node unary listeners receive NoValue.
//
// Under the Rethrow policy the first listener error aborts the remainder
// of the round (listeners already invoked are not rolled back, and
// targets not yet reached are skipped) and is returned as a
// *ListenerError.
func (n *Notifier) Notify() error {
	return n.notifyRound(nil, false)
}

// notifyRound is the notification entry point shared by Notify, Publish,
// forwarding listeners and the async queue. hasValue marks an explicit
// payload for this round; otherwise a value-carrying node rebroadcasts its
// buffer.
func (n *Notifier) notifyRound(v any, hasValue bool) error {
	if n.disposed.Load() {
		return ErrDisposed
	}

	payload := NoValue
	if hasValue {
		payload = v
	} else if n.payload != nil {
		if pv, ok := n.payload(); ok {
			payload = pv
		}
	}

	n.mu.Lock()
	snap := n.reg.snapshot()
	policy := n.policy
	n.mu.Unlock()

	for _, e := range snap {
		n.mu.Lock()
		live := n.reg.live(e.key)
		n.mu.Unlock()
		if !live {
			continue
		}

		err := e.l.invoke(payload)
		if err == nil {
			continue
		}
		lerr := &ListenerError{Key: e.key, Err: err}
		if decision := decide(policy, lerr); decision == Keep {
			continue
		} else if decision == Remove {
			n.removeFailed(e)
			continue
		}
		return lerr
	}

	// Cascade to attached targets, in attachment order. Attach never
	// forwards the value.
	graphMu.Lock()
	targets := make([]*Notifier, len(n.targets))
	copy(targets, n.targets)
	graphMu.Unlock()

	for _, t := range targets {
		if err := t.notifyRound(nil, false); err != nil {
			return err
		}
	}
	return nil
}

// decide applies the policy; a nil policy rethrows.
func decide(policy ErrorPolicy, err *ListenerError) Decision {
	if policy == nil {
		return Rethrow
	}
	return policy(err)
}

// removeFailed drops a listener condemned by the Remove decision. A plain
// listener is deleted from the registry; a forwarding listener is severed
// as a whole edge, as StopListeningTo would.
func (n *Notifier) removeFailed(e entry) {
	if e.forward != nil {
		graphMu.Lock()
		n.severInboundLocked(e.forward)
		graphMu.Unlock()
		return
	}
	n.mu.Lock()
	if i := n.reg.indexOfKey(e.key); i >= 0 {
		n.reg.removeAt(i)
	}
	n.mu.Unlock()
}

// NotifyKey invokes only the listener addressed by key, bypassing the
// rest of the registry and the attached targets. The found result reports
// whether the key addressed a live listener; a listener error is routed
// through the error policy exactly as in a full round.
func (n *Notifier) NotifyKey(k Key) (found bool, err error) {
	if n.disposed.Load() {
		return false, ErrDisposed
	}

	n.mu.Lock()
	e, ok := n.reg.get(k)
	policy := n.policy
	n.mu.Unlock()
	if !ok {
		return false, nil
	}

	payload := NoValue
	if n.payload != nil {
		if pv, pok := n.payload(); pok {
			payload = pv
		}
	}

	ierr := e.l.invoke(payload)
	if ierr == nil {
		return true, nil
	}
	lerr := &ListenerError{Key: k, Err: ierr}
	switch decide(policy, lerr) {
	case Keep:
		return true, nil
	case Remove:
		n.removeFailed(e)
		return true, nil
	default:
		return true, lerr
	}
}

// NotifyKeys invokes each addressed listener independently and returns
// one found-result per key. Under the Rethrow policy the first listener
// error aborts the remaining keys and is returned alongside the results
// gathered so far.
func (n *Notifier) NotifyKeys(keys ...Key) ([]bool, error) {
	out := make([]bool, len(keys))
	for i, k := range keys {
		found, err := n.NotifyKey(k)
		out[i] = found
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// =============================================================================
// Lifecycle
// =============================================================================

// Dispose transitions the node to disposed: the registry is cleared and
// every attach and listen edge is severed in both directions. It returns
// true on the transition and false when the node was already disposed;
// calling it twice is safe. A disposed node is inert until Init.
func (n *Notifier) Dispose() bool {
	if n.disposed.Swap(true) {
		return false
	}

	graphMu.Lock()
	n.severAllEdgesLocked()
	graphMu.Unlock()

	n.mu.Lock()
	n.reg.clear()
	n.mu.Unlock()

	if n.reset != nil {
		n.reset()
	}
	return true
}

// Init re-activates a disposed node with an empty registry and re-applies
// the construction options: the retained ones, or opts when given (which
// then become the retained set). It fails with ErrActive on a node that
// has not been disposed.
func (n *Notifier) Init(opts ...Option) error {
	if !n.disposed.Load() {
		return ErrActive
	}

	n.mu.Lock()
	n.reg = registry{}
	n.mu.Unlock()

	if len(opts) > 0 {
		n.opts = opts
	}
	n.disposed.Store(false)
	for _, o := range n.opts {
		o(n)
	}
	return nil
}

// Package beacon provides the reactive notification graph at the core of
// Beacon: addressable broadcast nodes that hold ordered listener
// registries and propagate notification rounds, optionally carrying a
// typed value, across explicit attach and listen edges, with loop
// prevention and a full dispose/init lifecycle.
//
// # Core Types
//
// Notifier is a plain broadcast node:
//
//	n := beacon.New()
//	key, _ := n.AddListener(beacon.On(func() { fmt.Println("fired") }))
//	n.Notify()        // runs listeners in registry order
//	n.RemoveKey(key)
//
// ValueNotifier[T] adds a typed last-value buffer:
//
//	v := beacon.NewValueFrom(0)
//	v.AddListener(beacon.OnValue(func(x any) { fmt.Println(x) }))
//	v.Publish(42)     // buffer := 42, then broadcast 42
//	v.Republish()     // broadcast 42 again
//
// # Composition
//
// Attach makes one node trigger another after its own round; listen makes
// a node forward from a source, carrying the value across when both ends
// are value-carrying and type-compatible:
//
//	a.Attach(b)             // a fires → b fires (no value crosses)
//	c.StartListeningTo(v)   // v publishes → c receives (and buffers) the value
//
// The union of attach and listen edges is kept acyclic: an operation that
// would close a forwarding loop fails with ErrCycle before any state
// changes.
//
// # Groups
//
// A Group applies node operations elementwise over a collection; a single
// node is itself a valid one-element collection wherever a NotifierLike
// is accepted:
//
//	g := beacon.GroupOf(a, b, c)
//	g.Notify()                    // one result per member
//	beacon.Merge(g, d).Notify()   // merged structural copy
//
// # Error Policy
//
// Listener errors (returned or panicked) are routed per-listener through
// the node's ErrorPolicy: Remove drops the listener and continues, Keep
// swallows, and Rethrow (the default) aborts the rest of the round and
// surfaces a *ListenerError from Notify.
//
// # Thread Safety
//
// All operations are safe for concurrent use. Rounds iterate a snapshot
// taken when the round begins, and listener callbacks run with no locks
// held, so reentrant mutation from inside a listener is legal.
package beacon

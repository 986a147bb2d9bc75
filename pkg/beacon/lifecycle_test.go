package beacon

import "testing"

func TestDisposeGatesOperations(t *testing.T) {
	n := New()
	n.AddListener(On(func() {}))

	if !n.Dispose() {
		t.Fatal("first dispose should transition")
	}
	if n.Dispose() {
		t.Error("second dispose should report already disposed")
	}
	if !n.IsDisposed() {
		t.Error("IsDisposed should report true")
	}

	if _, err := n.AddListener(On(func() {})); err != ErrDisposed {
		t.Errorf("AddListener on disposed: expected ErrDisposed, got %v", err)
	}
	if err := n.Notify(); err != ErrDisposed {
		t.Errorf("Notify on disposed: expected ErrDisposed, got %v", err)
	}
	if err := n.ClearListeners(); err != ErrDisposed {
		t.Errorf("ClearListeners on disposed: expected ErrDisposed, got %v", err)
	}
	if err := n.Attach(New()); err != ErrDisposed {
		t.Errorf("Attach on disposed: expected ErrDisposed, got %v", err)
	}
	if err := New().Attach(n); err != ErrDisposed {
		t.Errorf("attaching a disposed target: expected ErrDisposed, got %v", err)
	}
	if err := n.SetReversed(true); err != ErrDisposed {
		t.Errorf("SetReversed on disposed: expected ErrDisposed, got %v", err)
	}
	if n.HasListeners() {
		t.Error("disposed node must report no listeners")
	}
}

func TestDisposeSeversEdges(t *testing.T) {
	hub := New()
	up := New()
	down := New()
	peer := New()

	hub.Attach(down)           // hub → down
	up.Attach(hub)             // up → hub
	hub.StartListeningTo(peer) // peer's registry holds hub's forwarder
	down.StartListeningTo(hub) // hub's registry holds down's forwarder

	hub.Dispose()

	if up.HasAttached(hub) {
		t.Error("inbound attach edge must be severed")
	}
	if down.IsListeningTo(hub) {
		t.Error("inbound listen edge must be severed")
	}
	if got := peer.ListenerCount(); got != 0 {
		t.Errorf("hub's forwarder must be removed from peer, count=%d", got)
	}

	// up's rounds must no longer involve hub at all.
	if err := up.Notify(); err != nil {
		t.Errorf("notifying a former attacher must succeed: %v", err)
	}
}

func TestInitRestoresActive(t *testing.T) {
	n := New()

	if err := n.Init(); err != ErrActive {
		t.Errorf("Init on an active node: expected ErrActive, got %v", err)
	}

	n.AddListener(On(func() {}))
	n.Dispose()

	if err := n.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if n.IsDisposed() {
		t.Error("node must be active after Init")
	}
	if n.HasListeners() {
		t.Error("Init must start with an empty registry")
	}
	if _, err := n.AddListener(On(func() {})); err != nil {
		t.Errorf("add after Init failed: %v", err)
	}
}

func TestInitReappliesConstructionOptions(t *testing.T) {
	fired := 0
	n := New(WithListeners(On(func() { fired++ })))

	n.Notify()
	if fired != 1 {
		t.Fatalf("construction listener should fire, count=%d", fired)
	}

	n.Dispose()
	n.Init()
	n.Notify()
	if fired != 2 {
		t.Errorf("Init must re-apply the retained options, count=%d", fired)
	}
}

func TestInitWithNewOptions(t *testing.T) {
	a := 0
	b := 0
	n := New(WithListeners(On(func() { a++ })))

	n.Dispose()
	if err := n.Init(WithListeners(On(func() { b++ }))); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	n.Notify()
	if a != 0 || b != 1 {
		t.Errorf("explicit Init options replace the retained set, a=%d b=%d", a, b)
	}

	// The replacement set is what a later bare Init re-applies.
	n.Dispose()
	n.Init()
	n.Notify()
	if a != 0 || b != 2 {
		t.Errorf("replacement options must be retained, a=%d b=%d", a, b)
	}
}

func TestConstructionOptionsCompose(t *testing.T) {
	downstream := New()
	fired := 0
	downstream.AddListener(On(func() { fired++ }))

	src := New()
	n := New(
		WithAttach(downstream),
		WithListenTo(src),
		WithListeners(On(func() {})),
	)

	if !n.HasAttached(downstream) {
		t.Error("WithAttach must attach during construction")
	}
	if !n.IsListeningTo(src) {
		t.Error("WithListenTo must listen during construction")
	}

	src.Notify()
	if fired != 1 {
		t.Errorf("src → n → downstream chain should fire, count=%d", fired)
	}
}

func TestDisposedNodeReentersGraphAfterInit(t *testing.T) {
	a := New()
	b := New()

	a.Attach(b)
	b.Dispose()
	b.Init()

	// The old edge is gone; a fresh one is legal.
	if a.HasAttached(b) {
		t.Error("dispose must have severed the old edge")
	}
	if err := a.Attach(b); err != nil {
		t.Errorf("re-attach after init failed: %v", err)
	}
}

func TestDisposeRacingEdgeCreation(t *testing.T) {
	// A node disposed concurrently with Attach/StartListeningTo must never
	// end up holding an edge: either the operation is rejected, or the
	// dispose severs the edge it briefly gained.
	for i := 0; i < 200; i++ {
		n := New()
		target := New()
		done := make(chan struct{})
		go func() {
			target.Dispose()
			close(done)
		}()
		err := n.Attach(target)
		<-done
		if err == nil && n.HasAttached(target) {
			t.Fatal("attach edge survived a concurrent dispose of the target")
		}
	}

	for i := 0; i < 200; i++ {
		n := New()
		src := New()
		done := make(chan struct{})
		go func() {
			src.Dispose()
			close(done)
		}()
		err := n.StartListeningTo(src)
		<-done
		if err == nil && n.IsListeningTo(src) {
			t.Fatal("listen edge survived a concurrent dispose of the source")
		}
		if src.ListenerCount() != 0 {
			t.Fatal("disposed source retained a forwarding listener")
		}
	}
}

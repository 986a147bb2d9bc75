package beacon

import (
	"errors"
	"testing"
)

func TestGroupElementwiseNotify(t *testing.T) {
	a := New()
	b := New()
	c := New()
	fired := map[uint64]int{}

	for _, n := range []*Notifier{a, b, c} {
		n := n
		n.AddListener(On(func() { fired[n.ID()]++ }))
	}
	c.Dispose()

	g := GroupOf(a, b, c)
	results := g.Notify()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0] != nil || results[1] != nil {
		t.Errorf("active members must succeed: %v", results)
	}
	if results[2] != ErrDisposed {
		t.Errorf("disposed member must report ErrDisposed, got %v", results[2])
	}
	if fired[a.ID()] != 1 || fired[b.ID()] != 1 {
		t.Error("siblings must fire despite a failing member")
	}
}

func TestGroupNilMember(t *testing.T) {
	a := New()
	g := Group{a, nil}

	results := g.Notify()
	if results[0] != nil {
		t.Errorf("live member should succeed: %v", results[0])
	}
	if results[1] != ErrNilNotifier {
		t.Errorf("nil member must report ErrNilNotifier, got %v", results[1])
	}
}

func TestGroupOfFlattens(t *testing.T) {
	a := New()
	b := New()
	inner := GroupOf(a, b)
	c := New()

	g := GroupOf(inner, c)
	if len(g) != 3 {
		t.Fatalf("expected flattened length 3, got %d", len(g))
	}
}

func TestSingleNodeAsCollection(t *testing.T) {
	n := New()
	fired := 0
	n.AddListener(On(func() { fired++ }))

	// A single node stands in wherever a collection is accepted.
	g := GroupOf(n)
	if len(g) != 1 {
		t.Fatalf("expected 1 member, got %d", len(g))
	}
	g.Notify()
	if fired != 1 {
		t.Errorf("expected the node to fire, count=%d", fired)
	}
}

func TestGroupAttachAndListen(t *testing.T) {
	a := New()
	b := New()
	sink := New()
	fired := 0
	sink.AddListener(On(func() { fired++ }))

	g := GroupOf(a, b)
	for i, err := range g.Attach(sink) {
		if err != nil {
			t.Fatalf("member %d attach failed: %v", i, err)
		}
	}

	a.Notify()
	b.Notify()
	if fired != 2 {
		t.Errorf("sink should fire once per member round, count=%d", fired)
	}

	detached := g.Detach(sink)
	if !detached[0] || !detached[1] {
		t.Errorf("both detaches should succeed: %v", detached)
	}
}

func TestGroupDisposeAndInit(t *testing.T) {
	a := New()
	b := New()
	g := GroupOf(a, b)

	disposed := g.Dispose()
	if !disposed[0] || !disposed[1] {
		t.Errorf("both disposes should transition: %v", disposed)
	}
	disposed = g.Dispose()
	if disposed[0] || disposed[1] {
		t.Errorf("second dispose should report false: %v", disposed)
	}

	for i, err := range g.Init() {
		if err != nil {
			t.Errorf("member %d init failed: %v", i, err)
		}
	}
	if a.IsDisposed() || b.IsDisposed() {
		t.Error("members must be active after group init")
	}
}

func TestAtomicPreconditionFailure(t *testing.T) {
	a := New()
	b := New()
	b.Dispose()
	g := GroupOf(a, b)

	fired := 0
	a.AddListener(On(func() { fired++ }))

	if err := g.AtomicNotify(); !errors.Is(err, ErrGroupPrecondition) {
		t.Errorf("expected ErrGroupPrecondition, got %v", err)
	}
	if fired != 0 {
		t.Error("atomic failure must mutate nothing: no member may fire")
	}

	if _, err := g.AtomicAddListener(On(func() {})); !errors.Is(err, ErrGroupPrecondition) {
		t.Errorf("expected ErrGroupPrecondition, got %v", err)
	}
	if got := a.ListenerCount(); got != 1 {
		t.Errorf("atomic add must not touch any member, count=%d", got)
	}

	if err := g.AtomicDispose(); !errors.Is(err, ErrGroupPrecondition) {
		t.Errorf("expected ErrGroupPrecondition, got %v", err)
	}
	if a.IsDisposed() {
		t.Error("atomic dispose must not dispose the healthy member")
	}
}

func TestAtomicSuccess(t *testing.T) {
	a := New()
	b := New()
	g := GroupOf(a, b)

	keys, err := g.AtomicAddListener(On(func() {}))
	if err != nil {
		t.Fatalf("atomic add failed: %v", err)
	}
	if len(keys) != 2 || keys[0] == KeyNone || keys[1] == KeyNone {
		t.Errorf("expected two live keys, got %v", keys)
	}

	if err := g.AtomicNotify(); err != nil {
		t.Errorf("atomic notify failed: %v", err)
	}

	if err := g.AtomicDispose(); err != nil {
		t.Fatalf("atomic dispose failed: %v", err)
	}
	if !a.IsDisposed() || !b.IsDisposed() {
		t.Error("atomic dispose must dispose every member")
	}
}

func TestMergeAcceptsGroupsAndNodes(t *testing.T) {
	a := New()
	b := New()
	c := New()
	total := 0

	a.AddListener(On(func() { total++ }))
	b.AddListener(OnValue(func(any) { total++ }))
	c.AddListener(OnErr(func() error { total++; return nil }))

	m := Merge(GroupOf(a, b), c)
	if got := m.ListenerCount(); got != 3 {
		t.Fatalf("expected union of 3, got %d", got)
	}
	m.Notify()
	if total != 3 {
		t.Errorf("all copied listeners must fire, total=%d", total)
	}
}

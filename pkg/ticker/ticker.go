// Package ticker provides time-driven convenience wrappers around beacon
// notifiers: fixed-interval pulses, cron-scheduled pulses, and a
// rate-limited forwarding notifier. Each wrapper is an ordinary client of
// the core: it owns a notifier handle and calls Notify on it.
package ticker

import (
	"context"
	"sync"
	"time"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Interval notifies its node at a fixed period while started.
type Interval struct {
	n      *beacon.Notifier
	period time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewInterval creates a stopped interval pulse around a fresh notifier.
func NewInterval(period time.Duration, opts ...beacon.Option) *Interval {
	return &Interval{
		n:      beacon.New(opts...),
		period: period,
	}
}

// Notifier returns the underlying node, for listener registration and
// graph composition.
func (iv *Interval) Notifier() *beacon.Notifier { return iv.n }

// Start begins pulsing. The pulse loop stops when ctx is canceled, Stop
// is called, or the node is disposed. Starting an already started
// interval is a no-op.
func (iv *Interval) Start(ctx context.Context) {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.cancel != nil {
		return
	}
	ctx, iv.cancel = context.WithCancel(ctx)

	go func() {
		t := time.NewTicker(iv.period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := iv.n.Notify(); err == beacon.ErrDisposed {
					return
				}
			}
		}
	}()
}

// Stop halts the pulse loop. The node and its listeners are untouched.
func (iv *Interval) Stop() {
	iv.mu.Lock()
	defer iv.mu.Unlock()
	if iv.cancel != nil {
		iv.cancel()
		iv.cancel = nil
	}
}

// Close stops the pulse loop and disposes the node.
func (iv *Interval) Close() {
	iv.Stop()
	iv.n.Dispose()
}

// Elapsed is a value-carrying interval: each pulse publishes the time at
// which it fired, so listeners and downstream value nodes receive the
// tick timestamp.
type Elapsed struct {
	v      *beacon.ValueNotifier[time.Time]
	period time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewElapsed creates a stopped timestamp pulse.
func NewElapsed(period time.Duration, opts ...beacon.Option) *Elapsed {
	return &Elapsed{
		v:      beacon.NewValue[time.Time](opts...),
		period: period,
	}
}

// Notifier returns the underlying value node.
func (e *Elapsed) Notifier() *beacon.ValueNotifier[time.Time] { return e.v }

// Start begins publishing tick timestamps until ctx is canceled or Stop
// is called.
func (e *Elapsed) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return
	}
	ctx, e.cancel = context.WithCancel(ctx)

	go func() {
		t := time.NewTicker(e.period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				if err := e.v.Publish(now); err == beacon.ErrDisposed {
					return
				}
			}
		}
	}()
}

// Stop halts the pulse loop.
func (e *Elapsed) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Package tween provides value interpolation over beacon notifiers: a
// generic Tween maps animation progress onto any value range, and an
// Animator drives the interpolated values through a ValueNotifier at a
// fixed frame interval. It is an ordinary client of the core; every
// frame is a Publish on the owned node.
package tween

import (
	"context"
	"sync"
	"time"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Tween interpolates between From and To based on progress in [0, 1].
// Use the helper constructors (Float64, Int) for common types, or supply
// a custom Lerp for anything else.
type Tween[T any] struct {
	// From is the starting value (at t = 0).
	From T
	// To is the ending value (at t = 1).
	To T
	// Lerp interpolates between From and To at progress t.
	Lerp func(a, b T, t float64) T
}

// Evaluate returns the interpolated value at t (0.0 to 1.0).
func (tw *Tween[T]) Evaluate(t float64) T {
	if tw.Lerp == nil {
		return tw.To
	}
	return tw.Lerp(tw.From, tw.To, t)
}

// LerpFloat64 linearly interpolates between two float64 values.
func LerpFloat64(a, b float64, t float64) float64 {
	return a + (b-a)*t
}

// Float64 creates a tween for float64 values.
func Float64(from, to float64) *Tween[float64] {
	return &Tween[float64]{From: from, To: to, Lerp: LerpFloat64}
}

// Int creates a tween for int values.
func Int(from, to int) *Tween[int] {
	return &Tween[int]{
		From: from,
		To:   to,
		Lerp: func(a, b int, t float64) int {
			return a + int(float64(b-a)*t)
		},
	}
}

// Animator runs a tween over a duration, publishing each frame's value on
// its ValueNotifier. Progress is shaped by Curve before interpolation.
type Animator[T any] struct {
	v     *beacon.ValueNotifier[T]
	tween *Tween[T]

	// Duration is the total animation time.
	Duration time.Duration

	// Frame is the publish interval (default ~60fps).
	Frame time.Duration

	// Curve shapes progress; nil means linear.
	Curve func(float64) float64

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAnimator creates a stopped animator around a fresh value node.
func NewAnimator[T any](tw *Tween[T], d time.Duration, opts ...beacon.Option) *Animator[T] {
	return &Animator[T]{
		v:        beacon.NewValue[T](opts...),
		tween:    tw,
		Duration: d,
		Frame:    16 * time.Millisecond,
	}
}

// Notifier returns the node receiving the interpolated frames.
func (a *Animator[T]) Notifier() *beacon.ValueNotifier[T] { return a.v }

// Start runs the animation once, from From to To, publishing a frame per
// Frame interval and always ending on the exact To value. The returned
// channel closes when the run completes or is canceled.
func (a *Animator[T]) Start(ctx context.Context) <-chan struct{} {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()
		t := time.NewTicker(a.Frame)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				progress := float64(now.Sub(start)) / float64(a.Duration)
				if progress >= 1 {
					_ = a.v.Publish(a.tween.Evaluate(1))
					return
				}
				if a.Curve != nil {
					progress = a.Curve(progress)
				}
				if err := a.v.Publish(a.tween.Evaluate(progress)); err == beacon.ErrDisposed {
					return
				}
			}
		}
	}()
	return done
}

// Stop cancels a running animation; the last published frame stays
// buffered on the node.
func (a *Animator[T]) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

package ticker

import (
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Throttle relays rounds from source notifiers to its own node, capped by
// a token-bucket rate limiter. Rounds arriving above the rate are dropped,
// not queued; notification is fire-and-forget, so there is nothing to
// buffer.
type Throttle struct {
	n       *beacon.Notifier
	limiter *rate.Limiter
	dropped atomic.Uint64
	relay   beacon.Listener
}

// NewThrottle creates a throttled relay allowing ratePerSec rounds per
// second with the given burst.
func NewThrottle(ratePerSec float64, burst int, opts ...beacon.Option) *Throttle {
	t := &Throttle{limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst)}
	t.n = beacon.New(opts...)
	t.relay = beacon.On(func() {
		if t.limiter.Allow() {
			_ = t.n.Notify()
		} else {
			t.dropped.Add(1)
		}
	})
	return t
}

// Notifier returns the relay's own node; register listeners here.
func (t *Throttle) Notifier() *beacon.Notifier { return t.n }

// Forward registers the relay's gate as an ordinary listener on source.
func (t *Throttle) Forward(source *beacon.Notifier) error {
	_, err := source.AddListener(t.relay)
	return err
}

// Unforward removes the gate from source.
func (t *Throttle) Unforward(source *beacon.Notifier) bool {
	return source.RemoveListener(t.relay)
}

// Dropped returns the number of rounds dropped by the limiter.
func (t *Throttle) Dropped() uint64 { return t.dropped.Load() }

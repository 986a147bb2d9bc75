package beacon

import "sync/atomic"

// idCounter mints node identities. Each New/NewValue takes the next
// value, so two nodes never compare equal by id even across graphs.
var idCounter uint64

func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}

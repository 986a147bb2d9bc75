package beacon

// Decision is what an ErrorPolicy returns for a failing listener.
type Decision uint8

const (
	// Rethrow aborts the remainder of the round and surfaces the error to
	// the caller of Notify. Listeners already invoked in the round are not
	// rolled back; attached targets not yet reached are skipped. This is
	// the zero value, so an unset policy rethrows.
	Rethrow Decision = iota

	// Remove deletes the failing listener from the registry and continues
	// the round. A listener realizing a listen edge is removed as a whole
	// edge, exactly as StopListeningTo would.
	Remove

	// Keep swallows the error and continues the round.
	Keep
)

// String returns a human-readable name for the decision.
func (d Decision) String() string {
	switch d {
	case Rethrow:
		return "Rethrow"
	case Remove:
		return "Remove"
	case Keep:
		return "Keep"
	default:
		return "Unknown"
	}
}

// ErrorPolicy decides, per failing listener, whether the error removes the
// listener, is swallowed, or aborts the round. The error passed in is
// always a *ListenerError. A nil policy behaves as Rethrow.
type ErrorPolicy func(err error) Decision

// RemoveOnError is a ready-made policy that drops every failing listener.
func RemoveOnError(error) Decision { return Remove }

// KeepOnError is a ready-made policy that swallows every listener error.
func KeepOnError(error) Decision { return Keep }

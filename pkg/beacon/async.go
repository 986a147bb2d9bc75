package beacon

// asyncJob is one deferred round waiting on a node's dispatch queue.
type asyncJob struct {
	run  func() error
	done chan error
}

// NotifyAsync schedules a full round without blocking the caller and
// returns a channel that yields the round's outcome (buffered, so the
// result may be ignored). Rounds queued on the same node run strictly in
// issue order, one at a time; no ordering is guaranteed across nodes.
//
// A round scheduled before Dispose but not yet run resolves to
// ErrDisposed.
func (n *Notifier) NotifyAsync() <-chan error {
	return n.enqueueAsync(n.Notify)
}

// enqueueAsync appends a job to the node's FIFO dispatch queue and starts
// the drainer if it is not already running. The drainer goroutine lives
// only while the queue is non-empty.
func (n *Notifier) enqueueAsync(run func() error) <-chan error {
	job := asyncJob{run: run, done: make(chan error, 1)}

	n.asyncMu.Lock()
	n.asyncQ = append(n.asyncQ, job)
	start := !n.asyncOn
	if start {
		n.asyncOn = true
	}
	n.asyncMu.Unlock()

	if start {
		go n.drainAsync()
	}
	return job.done
}

func (n *Notifier) drainAsync() {
	for {
		n.asyncMu.Lock()
		if len(n.asyncQ) == 0 {
			n.asyncOn = false
			n.asyncMu.Unlock()
			return
		}
		job := n.asyncQ[0]
		n.asyncQ = n.asyncQ[1:]
		n.asyncMu.Unlock()

		job.done <- job.run()
	}
}

// Package task implements a periodic, stoppable callback goroutine —
// the Go analogue of the original SDK's RepeatableTask.
package task

import (
	"sync"
	"time"
)

// Repeatable runs fn every interval until Stop is called. Unlike a bare
// time.Ticker, Stop is idempotent and blocks until the goroutine has
// actually exited, so callers can rely on fn never firing again once Stop
// returns.
type Repeatable struct {
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// Start launches a Repeatable that calls fn every interval, starting after
// the first interval elapses (fn is not called immediately on start).
func Start(interval time.Duration, fn func()) *Repeatable {
	r := &Repeatable{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go r.run(interval, fn)
	return r
}

func (r *Repeatable) run(interval time.Duration, fn func()) {
	defer close(r.doneCh)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Stop signals the goroutine to exit and waits for it to do so. Safe to
// call more than once.
func (r *Repeatable) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	<-r.doneCh
}

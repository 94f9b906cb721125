package task

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestRepeatableFiresPeriodically(t *testing.T) {
	var count int32
	r := Start(10*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	defer r.Stop()

	time.Sleep(55 * time.Millisecond)
	if atomic.LoadInt32(&count) < 2 {
		t.Fatalf("expected at least 2 firings in 55ms at a 10ms interval, got %d", count)
	}
}

func TestStopPreventsFurtherFirings(t *testing.T) {
	var count int32
	r := Start(5*time.Millisecond, func() { atomic.AddInt32(&count, 1) })
	time.Sleep(20 * time.Millisecond)
	r.Stop()

	afterStop := atomic.LoadInt32(&count)
	time.Sleep(30 * time.Millisecond)
	if atomic.LoadInt32(&count) != afterStop {
		t.Fatalf("expected no firings after Stop, count grew from %d to %d", afterStop, count)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	r := Start(time.Second, func() {})
	r.Stop()
	r.Stop()
}

package notice

import (
	"log"
	"os"
	"sync"
	"testing"
	"time"
)

func TestBroadcastDeliversInOrder(t *testing.T) {
	b := New(log.New(os.Stderr, "[notice-test] ", 0))
	defer b.Stop()

	var mu sync.Mutex
	var received []string

	b.AddListener(FlagChangedNoticeType, func(n Notice) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, n.(FlagChangedNotice).FlagKey)
	})

	b.Broadcast(FlagChangedNotice{FlagKey: "a"})
	b.Broadcast(FlagChangedNotice{FlagKey: "b"})
	b.Broadcast(FlagChangedNotice{FlagKey: "c"})

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 3 || received[0] != "a" || received[1] != "b" || received[2] != "c" {
		t.Fatalf("expected [a b c] in order, got %v", received)
	}
}

func TestListenerPanicDoesNotStallOthers(t *testing.T) {
	b := New(log.New(os.Stderr, "[notice-test] ", 0))
	defer b.Stop()

	var mu sync.Mutex
	secondCalled := false

	b.AddListener(FlagChangedNoticeType, func(Notice) { panic("boom") })
	b.AddListener(FlagChangedNoticeType, func(Notice) {
		mu.Lock()
		defer mu.Unlock()
		secondCalled = true
	})

	b.Broadcast(FlagChangedNotice{FlagKey: "x"})

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		ok := secondCalled
		mu.Unlock()
		if ok || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if !secondCalled {
		t.Fatalf("expected second listener to still run after first panicked")
	}
}

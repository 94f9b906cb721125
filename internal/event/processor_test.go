package event

import (
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

// fakeSender records every batch handed to it and can be told to fail.
type fakeSender struct {
	mu      sync.Mutex
	batches [][]byte
	fail    bool
	closed  bool
}

func (f *fakeSender) PostJSON(_ string, body []byte, _ bool) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, false
	}
	cp := make([]byte, len(body))
	copy(cp, body)
	f.batches = append(f.batches, cp)
	return nil, true
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[event-test] ", 0)
}

func newTestUser(t *testing.T, keyID string) model.User {
	t.Helper()
	u, err := model.NewUser(keyID, "user-name")
	if err != nil {
		t.Fatalf("unexpected error constructing user: %v", err)
	}
	return u
}

func TestProcessorFlushesShippableEvents(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(Config{
		EventURL:      "http://example.invalid/track",
		MaxInQueue:    MinInboxCapacity,
		FlushInterval: 3 * time.Second,
		Sender:        sender,
		Logger:        testLogger(),
	})

	p.SendFlagEvent(FlagEvent{
		User: newTestUser(t, "user-1"),
		Variations: []FlagEventVariation{
			{FeatureFlagKey: "ff-test", VariationID: "v-true", VariationValue: "true"},
		},
	})
	p.Flush()
	p.Close()

	if sender.count() == 0 {
		t.Fatalf("expected at least one batch to be shipped")
	}
	if !sender.closed {
		t.Errorf("expected sender to be closed on processor shutdown")
	}
}

func TestProcessorDropsUnshippableEvents(t *testing.T) {
	sender := &fakeSender{}
	p := NewProcessor(Config{
		EventURL:      "http://example.invalid/track",
		MaxInQueue:    MinInboxCapacity,
		FlushInterval: 3 * time.Second,
		Sender:        sender,
		Logger:        testLogger(),
	})

	// A flag event with no variations is not shippable per isSendEvent.
	p.SendFlagEvent(FlagEvent{User: newTestUser(t, "user-1")})
	p.Flush()
	p.Close()

	if sender.count() != 0 {
		t.Errorf("expected unshippable event to never reach the sender, got %d batches", sender.count())
	}
}

func TestProcessorDropsEventsAfterFailedSend(t *testing.T) {
	sender := &fakeSender{fail: true}
	p := NewProcessor(Config{
		EventURL:      "http://example.invalid/track",
		MaxInQueue:    MinInboxCapacity,
		FlushInterval: 3 * time.Second,
		Sender:        sender,
		Logger:        testLogger(),
	})

	p.SendUser(newTestUser(t, "user-1"))
	p.Flush()
	p.Close()

	if sender.count() != 0 {
		t.Errorf("expected failed batches to be dropped, not retried, got %d recorded batches", sender.count())
	}
}

func TestNullProcessorIsANoOp(t *testing.T) {
	var p EventProcessor = NewNullProcessor()
	p.SendUser(newTestUser(t, "user-1"))
	p.SendFlagEvent(FlagEvent{})
	p.SendMetricEvent(MetricEvent{})
	p.Flush()
	p.Close()
}

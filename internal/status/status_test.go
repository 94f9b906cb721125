package status

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
	"github.com/TimurManjosov/fbgo-sdk/internal/store"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[status-test] ", 0)
}

func TestInitializingToInterruptedIsSuppressed(t *testing.T) {
	p := NewProvider(store.NewMemoryStore(), testLogger())

	p.UpdateState(model.InterruptedState(1, model.ErrNetwork, "boom"))

	if got := p.CurrentState().StateType; got != model.StateInitializing {
		t.Fatalf("expected INITIALIZING -> INTERRUPTED to be suppressed, got %s", got)
	}
}

func TestSameTypeUpdateRefreshesErrorButKeepsSince(t *testing.T) {
	p := NewProvider(store.NewMemoryStore(), testLogger())
	p.UpdateState(model.OKState(10))
	p.UpdateState(model.InterruptedState(20, model.ErrNetwork, "first"))

	since := p.CurrentState().StateSince
	p.UpdateState(model.InterruptedState(30, model.ErrNetwork, "second"))

	state := p.CurrentState()
	if state.StateSince != since {
		t.Errorf("expected stateSince to stay at %v for a same-type update, got %v", since, state.StateSince)
	}
	if state.ErrorTrack.Message != "second" {
		t.Errorf("expected error track to refresh to the latest message, got %q", state.ErrorTrack.Message)
	}
}

func TestWaitForOKReturnsTrueOnTransitionToOK(t *testing.T) {
	p := NewProvider(store.NewMemoryStore(), testLogger())

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.UpdateState(model.OKState(1))
	}()

	if !p.WaitForOK(time.Second) {
		t.Fatalf("expected WaitForOK to return true once state becomes OK")
	}
}

func TestWaitForOKReturnsFalseOnOff(t *testing.T) {
	p := NewProvider(store.NewMemoryStore(), testLogger())

	go func() {
		time.Sleep(10 * time.Millisecond)
		p.UpdateState(model.OffState(1, model.ErrRequestInvalid, "fatal"))
	}()

	if p.WaitForOK(time.Second) {
		t.Fatalf("expected WaitForOK to return false when state becomes OFF")
	}
}

func TestWaitForOKTimesOut(t *testing.T) {
	p := NewProvider(store.NewMemoryStore(), testLogger())

	if p.WaitForOK(20 * time.Millisecond) {
		t.Fatalf("expected WaitForOK to return false after timing out")
	}
}

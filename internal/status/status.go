// Package status implements the Update-Status Provider: it wraps a data
// store, owns the lifecycle state machine described in the SDK design, and
// lets callers block until the state reaches OK or OFF.
package status

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/TimurManjosov/fbgo-sdk/internal/category"
	"github.com/TimurManjosov/fbgo-sdk/internal/model"
	"github.com/TimurManjosov/fbgo-sdk/internal/store"
)

// Provider wraps a store.Store, delegating init/upsert calls to it while
// tracking the resulting lifecycle state under a monitor (mutex + sync.Cond)
// so waitForOK can block until a terminal-for-now state is reached.
type Provider struct {
	logger *log.Logger
	store  store.Store

	mu    sync.Mutex
	cond  *sync.Cond
	state model.UpdateState
}

// NewProvider wraps s, starting in INITIALIZING.
func NewProvider(s store.Store, logger *log.Logger) *Provider {
	p := &Provider{
		logger: logger,
		store:  s,
		state:  model.InitializingState(nowSeconds()),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// Store exposes the wrapped store for read paths (the streaming pipeline
// reads latestVersion through it).
func (p *Provider) Store() store.Store { return p.store }

// Init delegates to the store, logging a rejected init. A panic raised by
// the store is recovered, logged, and moves the state to INTERRUPTED
// (DATA_STORAGE_INIT_ERROR). The in-memory store never panics; this hook
// exists so a custom injected store implementation can fail safely.
func (p *Provider) Init(allData map[category.Category]map[string]model.Entity, version int64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("[status] init failed for version=%d: %v", version, r)
			p.UpdateState(model.InterruptedState(nowSeconds(), model.ErrDataStorageInit, fmt.Sprint(r)))
			ok = false
		}
	}()
	ok = p.store.Init(allData, version)
	if !ok {
		p.logger.Printf("[status] init rejected or failed for version=%d", version)
	}
	return ok
}

// Upsert delegates to the store the same way Init does, using
// DATA_STORAGE_UPDATE_ERROR for a recovered panic.
func (p *Provider) Upsert(c category.Category, key string, entity model.Entity, version int64) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Printf("[status] upsert failed for key=%s category=%s version=%d: %v", key, c, version, r)
			p.UpdateState(model.InterruptedState(nowSeconds(), model.ErrDataStorageUpdate, fmt.Sprint(r)))
			ok = false
		}
	}()
	ok = p.store.Upsert(c, key, entity, version)
	if !ok {
		p.logger.Printf("[status] upsert rejected for key=%s category=%s version=%d", key, c, version)
	}
	return ok
}

// CurrentState returns a snapshot of the current lifecycle state.
func (p *Provider) CurrentState() model.UpdateState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// UpdateState requests a transition to newState. INITIALIZING -> INTERRUPTED
// is suppressed: the state machine only leaves INITIALIZING through a
// successful start (-> OK) or a fatal error (-> OFF). A same-type update
// (e.g. INTERRUPTED -> INTERRUPTED with a new error) refreshes the error
// track but keeps stateSince from the original transition. Every real
// transition wakes every waiter.
func (p *Provider) UpdateState(newState model.UpdateState) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.StateType == model.StateInitializing && newState.StateType == model.StateInterrupted {
		return
	}

	if p.state.StateType == newState.StateType {
		p.state.ErrorTrack = newState.ErrorTrack
		return
	}

	p.state = newState
	p.cond.Broadcast()
}

// WaitForOK blocks until the state becomes OK (returns true), OFF (returns
// false), or timeout elapses (returns false). timeout <= 0 waits forever.
func (p *Provider) WaitForOK(timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timeout <= 0 {
		for p.state.StateType != model.StateOK && p.state.StateType != model.StateOff {
			p.cond.Wait()
		}
		return p.state.StateType == model.StateOK
	}

	deadline := time.Now().Add(timeout)
	for p.state.StateType != model.StateOK && p.state.StateType != model.StateOff {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		waitWithTimeout(p.cond, remaining)
	}
	return p.state.StateType == model.StateOK
}

// waitWithTimeout adapts sync.Cond (which has no timed wait) to a bounded
// wait: a timer fires a spurious broadcast after d, and the caller's loop
// re-checks its own deadline against time.Now on every wake.
func waitWithTimeout(cond *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, cond.Broadcast)
	defer timer.Stop()
	cond.Wait()
}

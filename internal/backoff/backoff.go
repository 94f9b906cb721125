// Package backoff implements the exponential-backoff-with-jitter strategy
// used by the streaming pipeline's reconnection loop.
package backoff

import (
	"math/rand"
	"time"
)

const (
	maxDelay     = 60 * time.Second
	resetInterval = 60 * time.Second
)

// Strategy computes reconnection delays: backoff doubles with each retry up
// to maxDelay, the actual delay adds jitter up to half the backoff, and the
// retry counter resets once a connection has stayed up longer than
// resetInterval.
type Strategy struct {
	firstDelay time.Duration
	retryCount int
	lastGoodAt time.Time
	rng        *rand.Rand
}

// NewStrategy builds a Strategy whose first retry waits firstDelay,
// clamped to (0, 60s]; a non-positive firstDelay falls back to 1s.
func NewStrategy(firstDelay time.Duration) *Strategy {
	if firstDelay <= 0 {
		firstDelay = time.Second
	} else if firstDelay > maxDelay {
		firstDelay = maxDelay
	}
	return &Strategy{
		firstDelay: firstDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetGoodRun records that a connection just succeeded, resetting the retry
// counter if the previous run lasted longer than resetInterval.
func (s *Strategy) SetGoodRun() {
	now := time.Now()
	if !s.lastGoodAt.IsZero() && now.Sub(s.lastGoodAt) > resetInterval {
		s.retryCount = 0
	}
	s.lastGoodAt = now
}

// NextDelay returns the delay to sleep before the next reconnection
// attempt and advances the retry counter. forceMax restarts at the longest
// possible backoff (used after a fatal-looking error where a quick retry
// would likely just repeat it).
func (s *Strategy) NextDelay(forceMax bool) time.Duration {
	var backoffDur time.Duration
	if forceMax {
		backoffDur = maxDelay
	} else {
		backoffDur = s.firstDelay * time.Duration(1<<uint(s.retryCount))
		if backoffDur > maxDelay || backoffDur <= 0 {
			backoffDur = maxDelay
		}
	}
	s.retryCount++

	jitter := time.Duration(s.rng.Int63n(int64(backoffDur/2) + 1))
	return backoffDur/2 + jitter
}

// Reset zeroes the retry counter, used when the caller wants to restart
// the backoff schedule from scratch (e.g. after an explicit reconnect
// request rather than a failure).
func (s *Strategy) Reset() {
	s.retryCount = 0
}

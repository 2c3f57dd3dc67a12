package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Allow while the breaker is rejecting
// requests outright or its half-open trial budget is spent.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitStateClosed   CircuitState = "closed"
	CircuitStateOpen     CircuitState = "open"
	CircuitStateHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips after a streak of consecutive failures against
// the club backend. While open it rejects everything until the open
// window lapses, then lets a bounded number of trial requests through
// and closes again once they all succeed.
type CircuitBreaker struct {
	mu    sync.Mutex
	clock func() time.Time

	threshold   int
	openWindow  time.Duration
	trialBudget int

	state     CircuitState
	streak    int
	trippedAt time.Time
	trialsOut int
	trialsOK  int
}

func NewCircuitBreaker(failureThreshold int, openTimeout time.Duration, halfOpenMaxReq int) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if openTimeout <= 0 {
		openTimeout = 15 * time.Second
	}
	if halfOpenMaxReq < 1 {
		halfOpenMaxReq = 1
	}

	return &CircuitBreaker{
		clock:       time.Now,
		threshold:   failureThreshold,
		openWindow:  openTimeout,
		trialBudget: halfOpenMaxReq,
		state:       CircuitStateClosed,
	}
}

// Allow reports whether a request may proceed. A half-open breaker
// reserves one trial slot per allowed request; callers must follow up
// with RecordSuccess or RecordFailure.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.windowElapsed() {
		b.transition(CircuitStateHalfOpen)
	}

	switch b.state {
	case CircuitStateOpen:
		return ErrCircuitOpen
	case CircuitStateHalfOpen:
		if b.trialsOut >= b.trialBudget {
			return ErrCircuitOpen
		}
		b.trialsOut++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.streak = 0
	case CircuitStateHalfOpen:
		if b.trialsOut > 0 {
			b.trialsOut--
		}
		b.trialsOK++
		if b.trialsOK >= b.trialBudget && b.trialsOut == 0 {
			b.transition(CircuitStateClosed)
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitStateClosed:
		b.streak++
		if b.streak >= b.threshold {
			b.transition(CircuitStateOpen)
		}
	case CircuitStateHalfOpen:
		if b.trialsOut > 0 {
			b.trialsOut--
		}
		b.transition(CircuitStateOpen)
	case CircuitStateOpen:
		// keep the window sliding while failures keep arriving
		b.trippedAt = b.clock()
	}
}

// State reports the effective state: an open breaker whose window has
// already lapsed reads as half-open.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitStateOpen && b.windowElapsed() {
		return CircuitStateHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) transition(next CircuitState) {
	b.state = next
	b.streak = 0
	b.trialsOut = 0
	b.trialsOK = 0
	if next == CircuitStateOpen {
		b.trippedAt = b.clock()
	} else {
		b.trippedAt = time.Time{}
	}
}

func (b *CircuitBreaker) windowElapsed() bool {
	return b.clock().Sub(b.trippedAt) >= b.openWindow
}

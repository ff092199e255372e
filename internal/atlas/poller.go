package atlas

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrPollTimeout marks a run that exhausted its attempts while the map
// was still building.
var ErrPollTimeout = errors.New("atlas polling timed out")

// State names the phases of a polling run.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateSucceeded
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	}
	return "unknown"
}

// FetchFunc produces topic groups, or ErrMapBuilding while they are not
// ready yet. Any other error is fatal.
type FetchFunc func(ctx context.Context) ([]TopicGroup, error)

// Poller drives a FetchFunc through a bounded retry loop with a fixed
// interval. The state and attempt counter are observable while a run is
// in flight.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int

	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	state   State
	attempt int
}

func NewPoller(interval time.Duration, maxAttempts int) *Poller {
	return &Poller{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State reports the current phase and, while polling, the attempt number.
func (p *Poller) State() (State, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.attempt
}

func (p *Poller) set(state State, attempt int) {
	p.mu.Lock()
	p.state = state
	p.attempt = attempt
	p.mu.Unlock()
}

// Run polls fetch until it succeeds, fails fatally, or attempts run out.
// A canceled context is a fatal failure.
func (p *Poller) Run(ctx context.Context, fetch FetchFunc) ([]TopicGroup, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		p.set(StatePolling, attempt)

		topics, err := fetch(ctx)
		if err == nil {
			p.set(StateSucceeded, attempt)
			return topics, nil
		}
		if !errors.Is(err, ErrMapBuilding) {
			p.set(StateFailed, attempt)
			return nil, err
		}
		if attempt == attempts {
			break
		}
		if err := p.sleep(ctx, p.Interval); err != nil {
			p.set(StateFailed, attempt)
			return nil, err
		}
	}
	p.set(StateTimedOut, attempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrPollTimeout, attempts)
}

package atlas

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestPoller(maxAttempts int) (*Poller, *int) {
	p := NewPoller(5*time.Second, maxAttempts)
	sleeps := 0
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if d != 5*time.Second {
			return fmt.Errorf("unexpected interval %v", d)
		}
		sleeps++
		return nil
	}
	return p, &sleeps
}

func TestPollerStartsIdle(t *testing.T) {
	p := NewPoller(time.Second, 3)
	state, attempt := p.State()
	if state != StateIdle || attempt != 0 {
		t.Fatalf("state = %v(%d), want idle(0)", state, attempt)
	}
}

func TestPollerSucceedsAfterRetries(t *testing.T) {
	p, sleeps := newTestPoller(10)
	calls := 0
	topics, err := p.Run(context.Background(), func(ctx context.Context) ([]TopicGroup, error) {
		calls++
		if calls < 3 {
			return nil, ErrMapBuilding
		}
		return []TopicGroup{{TopicID: 1, ShortDescription: "auth"}}, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(topics) != 1 || topics[0].ShortDescription != "auth" {
		t.Fatalf("topics = %v", topics)
	}
	if calls != 3 || *sleeps != 2 {
		t.Fatalf("calls/sleeps = %d/%d, want 3/2", calls, *sleeps)
	}
	state, attempt := p.State()
	if state != StateSucceeded || attempt != 3 {
		t.Fatalf("state = %v(%d), want succeeded(3)", state, attempt)
	}
}

func TestPollerFatalErrorStopsImmediately(t *testing.T) {
	p, sleeps := newTestPoller(10)
	fatal := errors.New("dataset deleted")
	_, err := p.Run(context.Background(), func(ctx context.Context) ([]TopicGroup, error) {
		return nil, fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("err = %v, want fatal error", err)
	}
	if *sleeps != 0 {
		t.Fatalf("slept %d times on a fatal error", *sleeps)
	}
	state, _ := p.State()
	if state != StateFailed {
		t.Fatalf("state = %v, want failed", state)
	}
}

func TestPollerTimesOut(t *testing.T) {
	p, sleeps := newTestPoller(4)
	calls := 0
	_, err := p.Run(context.Background(), func(ctx context.Context) ([]TopicGroup, error) {
		calls++
		return nil, ErrMapBuilding
	})
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("err = %v, want poll timeout", err)
	}
	if calls != 4 || *sleeps != 3 {
		t.Fatalf("calls/sleeps = %d/%d, want 4/3", calls, *sleeps)
	}
	state, attempt := p.State()
	if state != StateTimedOut || attempt != 4 {
		t.Fatalf("state = %v(%d), want timed_out(4)", state, attempt)
	}
}

func TestPollerCanceledDuringSleep(t *testing.T) {
	p := NewPoller(time.Second, 10)
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	_, err := p.Run(ctx, func(ctx context.Context) ([]TopicGroup, error) {
		return nil, ErrMapBuilding
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context canceled", err)
	}
	state, _ := p.State()
	if state != StateFailed {
		t.Fatalf("state = %v, want failed", state)
	}
}

func TestPollerStateObservableDuringRun(t *testing.T) {
	p, _ := newTestPoller(5)
	var midState State
	var midAttempt int
	_, err := p.Run(context.Background(), func(ctx context.Context) ([]TopicGroup, error) {
		midState, midAttempt = p.State()
		return []TopicGroup{}, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if midState != StatePolling || midAttempt != 1 {
		t.Fatalf("mid-run state = %v(%d), want polling(1)", midState, midAttempt)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:      "idle",
		StatePolling:   "polling",
		StateSucceeded: "succeeded",
		StateFailed:    "failed",
		StateTimedOut:  "timed_out",
		State(42):      "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Fatalf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

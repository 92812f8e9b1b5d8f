package engine

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer is a pausable one-tick-per-second countdown. Each tick invokes
// onTick with the seconds left; reaching zero invokes onExpire exactly once
// and stops the timer. Pausing freezes the remaining count without
// resetting it. Callbacks run outside the timer's lock.
type Timer struct {
	clock    clockwork.Clock
	onTick   func(secondsLeft int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	running   bool
	paused    bool
	stopped   bool
	stopCh    chan struct{}
}

// NewTimer builds a timer counting down from seconds. It does not start
// ticking until Start is called.
func NewTimer(clock clockwork.Clock, seconds int, onTick func(int), onExpire func()) *Timer {
	return &Timer{
		clock:     clock,
		remaining: seconds,
		onTick:    onTick,
		onExpire:  onExpire,
		stopCh:    make(chan struct{}),
	}
}

// Start begins ticking. Calling Start while already running is a no-op, so
// duplicate starts never create duplicate tick sources.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running || t.stopped {
		t.mu.Unlock()
		return
	}
	t.running = true
	stop := t.stopCh
	t.mu.Unlock()

	go t.loop(stop)
}

func (t *Timer) loop(stop chan struct{}) {
	ticker := t.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			t.mu.Lock()
			if t.paused || t.stopped {
				t.mu.Unlock()
				continue
			}
			t.remaining--
			left := t.remaining
			expired := left <= 0
			if expired {
				t.running = false
				t.stopped = true
			}
			t.mu.Unlock()

			if t.onTick != nil {
				t.onTick(left)
			}
			if expired {
				if t.onExpire != nil {
					t.onExpire()
				}
				return
			}
		}
	}
}

// Pause freezes the countdown. No-op if already paused or stopped.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.paused = true
}

// Resume continues the countdown from its frozen value.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.paused = false
}

// Stop halts the timer for good. Safe to call multiple times; a stop on an
// already-stopped timer is a silent no-op. onExpire will not fire.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	t.running = false
	close(t.stopCh)
}

// Remaining returns the seconds left.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

package engine

import (
	"sync"
	"time"
)

// TimerController runs the per-question countdown. Exactly one countdown is
// alive at a time; Start cancels any previous one. Each Start advances a
// generation counter that the timeout callback carries, so a tick that commits
// just before a restart can be recognized as stale and discarded downstream.
type TimerController struct {
	interval  time.Duration
	onTimeout func(gen uint64)

	mu        sync.Mutex
	gen       uint64
	remaining int
	max       int
	fired     bool
	running   bool
	stop      chan struct{}
}

// NewTimerController returns a controller ticking at one-second resolution.
func NewTimerController(onTimeout func(gen uint64)) *TimerController {
	return NewTimerControllerWithInterval(time.Second, onTimeout)
}

// NewTimerControllerWithInterval is used by tests to compress time.
func NewTimerControllerWithInterval(interval time.Duration, onTimeout func(gen uint64)) *TimerController {
	return &TimerController{interval: interval, onTimeout: onTimeout}
}

// Start begins a fresh countdown of limitSec seconds.
func (t *TimerController) Start(limitSec int) {
	t.mu.Lock()
	t.cancelLocked()
	t.gen++
	t.remaining = limitSec
	t.max = limitSec
	t.fired = false
	t.running = true
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	go t.run(stop)
}

func (t *TimerController) run(stop chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.tick() {
				return
			}
		}
	}
}

// tick decrements the countdown and reports whether the loop should exit.
// The timeout callback is invoked without holding the lock so it may call
// back into Cancel or Start.
func (t *TimerController) tick() bool {
	t.mu.Lock()
	if !t.running || t.fired {
		t.mu.Unlock()
		return true
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining > 0 {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.running = false
	cb := t.onTimeout
	gen := t.gen
	t.mu.Unlock()

	if cb != nil {
		cb(gen)
	}
	return true
}

// Extend adds deltaSec to the countdown. The ceiling grows with it so a
// progress indicator never reads above 100%.
func (t *TimerController) Extend(deltaSec int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired {
		return
	}
	t.remaining += deltaSec
	if t.remaining > t.max {
		t.max = t.remaining
	}
}

// Cancel stops the countdown without firing the timeout.
func (t *TimerController) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *TimerController) cancelLocked() {
	if t.running {
		close(t.stop)
		t.running = false
	}
}

// Generation identifies the current countdown. A callback carrying an older
// generation committed before a restart and must be ignored.
func (t *TimerController) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Remaining returns the seconds left on the countdown.
func (t *TimerController) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Max returns the display ceiling for the countdown.
func (t *TimerController) Max() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.max
}

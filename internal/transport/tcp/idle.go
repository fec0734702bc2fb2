package tcp

import (
	"sync"
	"time"
)

// idleWatchdog fires once after the server has had zero active sessions for
// the configured duration. It is armed while the session count is zero and
// disarmed whenever a connection is admitted. A non-positive duration
// disables it.
type idleWatchdog struct {
	d    time.Duration
	fire func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func newIdleWatchdog(d time.Duration, fire func()) *idleWatchdog {
	return &idleWatchdog{d: d, fire: fire}
}

// arm starts (or restarts) the countdown.
func (w *idleWatchdog) arm() {
	if w.d <= 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.d, w.fire)
}

// disarm cancels a pending countdown.
func (w *idleWatchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// stop disarms permanently. Used once shutdown has begun.
func (w *idleWatchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

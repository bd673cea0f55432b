package usecase

import (
	"sync"
	"time"
)

// Countdown emits a monotonically decreasing remaining-seconds value once
// per second while active and invokes the completion callback exactly once
// when it reaches zero. Pausing clears the scheduled tick without resetting
// the remaining time; resuming never creates a second concurrent tick loop.
// Disposal suppresses any callback that would otherwise fire afterwards.
type Countdown struct {
	mu         sync.Mutex
	clock      Clock
	onTick     func(remaining int)
	onComplete func()

	duration  int
	remaining int
	active    bool
	completed bool
	disposed  bool
	ticker    Ticker
	stopCh    chan struct{}
}

func NewCountdown(clock Clock, onTick func(int), onComplete func()) *Countdown {
	if clock == nil {
		clock = SystemClock()
	}
	return &Countdown{
		clock:      clock,
		onTick:     onTick,
		onComplete: onComplete,
	}
}

// Start resets the counter to durationSeconds and begins ticking. A
// non-positive duration completes immediately without ticking.
func (c *Countdown) Start(durationSeconds int) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.haltLocked()
	c.active = false
	c.duration = durationSeconds
	c.completed = false

	if durationSeconds <= 0 {
		c.remaining = 0
		c.completed = true
		c.mu.Unlock()
		c.emit(0)
		c.finish()
		return
	}

	c.remaining = durationSeconds
	c.activateLocked()
	c.mu.Unlock()
	c.emit(durationSeconds)
}

// Pause clears the scheduled tick, keeping the remaining time.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return
	}
	c.active = false
	c.haltLocked()
}

// Resume continues ticking from the current remaining time. It is a no-op
// while active, after completion, or after disposal.
func (c *Countdown) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.completed || c.remaining <= 0 {
		return
	}
	c.activateLocked()
}

// SetDuration resets the remaining time to a new duration. Only allowed
// while the countdown is not ticking.
func (c *Countdown) SetDuration(durationSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active || c.disposed {
		return
	}
	c.duration = durationSeconds
	c.remaining = durationSeconds
	c.completed = false
}

// Dispose stops the countdown permanently. No tick or completion callback
// fires after Dispose returns.
func (c *Countdown) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	c.active = false
	c.haltLocked()
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// activateLocked starts the tick loop unless one is already running.
func (c *Countdown) activateLocked() {
	if c.active {
		return
	}
	c.ticker = c.clock.NewTicker(time.Second)
	c.stopCh = make(chan struct{})
	c.active = true
	go c.run(c.ticker, c.stopCh)
}

func (c *Countdown) haltLocked() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}

func (c *Countdown) run(ticker Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			remaining, done, ok := c.advance()
			if !ok {
				return
			}
			c.emit(remaining)
			if done {
				c.finish()
				return
			}
		}
	}
}

// advance consumes one tick. ok is false when the tick raced a pause,
// completion, or disposal and must be discarded.
func (c *Countdown) advance() (remaining int, done bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active || c.completed || c.disposed {
		return 0, false, false
	}

	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.completed = true
		c.active = false
		c.haltLocked()
		return 0, true, true
	}
	return c.remaining, false, true
}

func (c *Countdown) emit(remaining int) {
	if c.onTick != nil {
		c.onTick(remaining)
	}
}

func (c *Countdown) finish() {
	if c.onComplete != nil {
		c.onComplete()
	}
}

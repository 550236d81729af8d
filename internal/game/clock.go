package game

import (
	"sync"
	"time"
)

const (
	DefaultDuration     = 60
	DefaultTickInterval = time.Second
	DefaultLowTime      = 10
)

// TickSource starts a repeating task and returns a function that cancels it.
// The cancel function must be safe to call more than once and from inside fn.
type TickSource interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

type tickerSource struct{}

// RealTicks is a TickSource backed by time.Ticker.
var RealTicks TickSource = tickerSource{}

func (tickerSource) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// Tick is delivered to clock callbacks. Run identifies the Start call that
// produced it so owners can drop ticks from a superseded run.
type Tick struct {
	Remaining int
	Expired   bool
	Run       uint64
}

// Clock is a countdown that decrements once per interval while running
type Clock struct {
	mu        sync.Mutex
	source    TickSource
	interval  time.Duration
	remaining int
	running   bool
	run       uint64
	cancel    func()

	onTick   func(Tick)
	onExpire func(Tick)
}

func NewClock(duration int, interval time.Duration, source TickSource, onTick, onExpire func(Tick)) *Clock {
	if source == nil {
		source = RealTicks
	}
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if duration < 0 {
		duration = 0
	}
	return &Clock{
		source:    source,
		interval:  interval,
		remaining: duration,
		onTick:    onTick,
		onExpire:  onExpire,
	}
}

// Start begins ticking. It reports false and changes nothing when the clock
// is already running or has no time left.
func (c *Clock) Start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.remaining <= 0 {
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.run++
	run := c.run
	c.running = true
	c.cancel = c.source.Every(c.interval, func() { c.tick(run) })
	return true
}

// Stop halts the clock and invalidates every tick still in flight.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Clock) Reset(duration int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	if duration < 0 {
		duration = 0
	}
	c.remaining = duration
}

func (c *Clock) stopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.running = false
	c.run++
}

func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Current reports whether run is still the clock's live run.
func (c *Clock) Current(run uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run == run
}

func (c *Clock) tick(run uint64) {
	c.mu.Lock()
	if !c.running || run != c.run {
		c.mu.Unlock()
		return
	}
	c.remaining--
	t := Tick{Remaining: c.remaining, Expired: c.remaining <= 0, Run: run}
	if t.Expired {
		c.remaining = 0
		t.Remaining = 0
		c.running = false
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	onTick, onExpire := c.onTick, c.onExpire
	c.mu.Unlock()

	// callbacks run without c.mu so owners may call back into the clock
	if onTick != nil {
		onTick(t)
	}
	if t.Expired && onExpire != nil {
		onExpire(t)
	}
}

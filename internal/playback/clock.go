package playback

import (
	"context"
	"sync"
	"time"
)

const DefaultTickInterval = 100 * time.Millisecond

// TickFunc advances playback by delta seconds and reports whether playback
// should continue.
type TickFunc func(deltaSeconds float64) bool

// Clock drives a TickFunc from a ticker goroutine. A Clock can be started
// and stopped any number of times; at most one goroutine runs at once.
type Clock struct {
	interval time.Duration
	tick     TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClock(interval time.Duration, tick TickFunc) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Clock{interval: interval, tick: tick}
}

// Start launches the ticker unless it is already running. The goroutine ends
// when ctx is done, Stop is called, or the tick function returns false.
func (c *Clock) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
		default:
			return
		}
	}

	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go c.run(ctx, done)
}

// Stop cancels the ticker and waits for its goroutine to exit. It must not be
// called from inside the tick function.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Clock) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last).Seconds()
			last = now
			if !c.tick(delta) {
				return
			}
		}
	}
}

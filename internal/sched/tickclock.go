// internal/sched/tickclock.go

package sched

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickClock is the hardware-timer stand-in for the simulator: it emits
// tick numbers on a channel at a fixed interval. The scheduler core never
// depends on it; Tick() can be driven directly, which is what the tests do.
type TickClock struct {
	Ch    chan int64
	count atomic.Int64
	stop  chan struct{}
	once  sync.Once
}

// NewTickClock creates a clock but does not start it.
func NewTickClock(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan int64, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at the given interval.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n := c.count.Add(1)
				select {
				case c.Ch <- n:
				default:
					// a missed beat is better than a stalled timer
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks. Safe to call twice.
func (c *TickClock) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// Count returns the number of ticks emitted so far.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

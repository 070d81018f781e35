package world

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultFrameInterval is roughly sixty frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Listener receives frame ticks.
type Listener interface {
	OnTick(now time.Time)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(now time.Time)

func (f ListenerFunc) OnTick(now time.Time) { f(now) }

// Clock drives the office animation at a fixed frame interval.
type Clock struct {
	interval  time.Duration
	listeners []Listener
	frames    uint64
	paused    bool
	mu        sync.RWMutex
	cancel    context.CancelFunc
	done      chan struct{}
	logger    *zap.Logger
}

// NewClock creates a clock ticking every interval.
func NewClock(interval time.Duration, logger *zap.Logger) *Clock {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Clock{
		interval: interval,
		logger:   logger,
	}
}

// AddListener registers a tick listener.
func (c *Clock) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Frames returns how many ticks have been delivered.
func (c *Clock) Frames() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frames
}

// SetPaused freezes or resumes delivery without stopping the loop.
func (c *Clock) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

// Paused reports whether ticks are currently withheld.
func (c *Clock) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// Start begins the tick loop in a background goroutine.
func (c *Clock) Start() {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.loop(ctx)
	c.logger.Info("frame clock started",
		zap.Duration("interval", c.interval))
}

// Stop halts the tick loop and waits for the in-flight tick to finish.
func (c *Clock) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Info("frame clock stopped", zap.Uint64("frames", c.Frames()))
}

func (c *Clock) loop(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Step(now)
		}
	}
}

// Step delivers one tick to every listener unless the clock is paused.
func (c *Clock) Step(now time.Time) {
	c.mu.Lock()
	if c.paused {
		c.mu.Unlock()
		return
	}
	c.frames++
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		l.OnTick(now)
	}
}

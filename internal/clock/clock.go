// Package clock drives the instant shown by the world map. In realtime mode
// every tick shows the wall clock; in simulated mode the instant starts at a
// configured time and advances by a calendar step on every tick.
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/star/sunclock/internal/metrics"
)

// Mode selects how the clock chooses the next instant.
type Mode string

const (
	Realtime  Mode = "realtime"
	Simulated Mode = "simulated"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case Realtime, Simulated:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown clock mode %q (want realtime or simulated)", s)
}

// TimeSetter receives every instant the clock publishes.
type TimeSetter interface {
	SetTime(t time.Time)
}

// Config holds clock configuration.
type Config struct {
	Mode     Mode
	Start    time.Time     // simulated mode; zero means now
	Step     Step          // simulated mode advance per tick
	Interval time.Duration // time between ticks (default: 3s)
}

// Tick is one published instant.
type Tick struct {
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Title string    `json:"title"`
}

// Clock publishes instants to a TimeSetter and to subscribers.
type Clock struct {
	config Config
	setter TimeSetter
	logger *slog.Logger

	mu      sync.Mutex
	current time.Time
	seq     uint64
	subs    map[int]chan Tick
	nextSub int
}

// New creates a Clock. setter may be nil.
func New(config Config, setter TimeSetter, logger *slog.Logger) (*Clock, error) {
	if config.Mode == "" {
		config.Mode = Simulated
	}
	if _, err := ParseMode(string(config.Mode)); err != nil {
		return nil, err
	}
	if config.Interval <= 0 {
		config.Interval = 3 * time.Second
	}
	if config.Mode == Simulated && config.Step.IsZero() {
		config.Step = Step{Months: 1}
	}
	start := config.Start
	if start.IsZero() {
		start = time.Now()
	}

	logger.Info("clock initialized",
		"mode", string(config.Mode),
		"start", start.UTC().Format(time.RFC3339),
		"step", config.Step.String(),
		"interval_ms", config.Interval.Milliseconds(),
	)

	return &Clock{
		config:  config,
		setter:  setter,
		logger:  logger,
		current: start.UTC(),
		subs:    make(map[int]chan Tick),
	}, nil
}

// Mode returns the configured mode.
func (c *Clock) Mode() Mode {
	return c.config.Mode
}

// Now returns the instant the clock will publish next.
func (c *Clock) Now() time.Time {
	if c.config.Mode == Realtime {
		return time.Now().UTC()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set jumps a simulated clock to t and publishes it immediately. In
// realtime mode the instant is published once and the next tick returns to
// the wall clock.
func (c *Clock) Set(t time.Time) Tick {
	c.mu.Lock()
	c.current = t.UTC()
	c.mu.Unlock()
	return c.publish(t.UTC())
}

// Subscribe returns a channel of ticks and a function that cancels the
// subscription. Ticks are dropped for subscribers that fall behind.
func (c *Clock) Subscribe() (<-chan Tick, func()) {
	ch := make(chan Tick, 4)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// Start publishes a tick immediately and then every interval. Blocks
// until ctx is cancelled.
func (c *Clock) Start(ctx context.Context) {
	c.tick()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("clock stopped")
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick publishes the current instant, then advances a simulated clock.
func (c *Clock) tick() {
	var t time.Time
	if c.config.Mode == Realtime {
		t = time.Now().UTC()
	} else {
		c.mu.Lock()
		t = c.current
		c.current = c.config.Step.Apply(c.current)
		c.mu.Unlock()
	}
	c.publish(t)
	metrics.IncClockTicks(string(c.config.Mode))
}

func (c *Clock) publish(t time.Time) Tick {
	if c.setter != nil {
		c.setter.SetTime(t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	tick := Tick{Seq: c.seq, Time: t, Title: Title(t)}
	for _, ch := range c.subs {
		select {
		case ch <- tick:
		default:
		}
	}
	c.logger.Debug("clock tick", "seq", tick.Seq, "time", t.Format(time.RFC3339), "subscribers", len(c.subs))
	return tick
}

// Title formats t in UTC as "January @ 15:04:05".
func Title(t time.Time) string {
	return t.UTC().Format("January @ 15:04:05")
}

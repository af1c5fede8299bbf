package session

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	DefaultCollectInterval = 5 * time.Minute
	DefaultExpiration      = 4 * time.Hour
)

// Collector periodically discards documents idle for longer than the
// expiration, then connections left without documents.
type Collector struct {
	conns    *Connections
	interval time.Duration
	expire   time.Duration
	now      func() time.Time
	logger   *slog.Logger

	running atomic.Bool
	passes  atomic.Int64
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

func WithInterval(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.interval = d
		}
	}
}

func WithExpiration(d time.Duration) CollectorOption {
	return func(c *Collector) {
		if d > 0 {
			c.expire = d
		}
	}
}

// WithClock replaces time.Now for tests.
func WithClock(now func() time.Time) CollectorOption {
	return func(c *Collector) { c.now = now }
}

func WithCollectorLogger(l *slog.Logger) CollectorOption {
	return func(c *Collector) { c.logger = l }
}

// NewCollector returns a collector over conns. It does nothing until Run or
// Collect is called.
func NewCollector(conns *Connections, opts ...CollectorOption) *Collector {
	c := &Collector{
		conns:    conns,
		interval: DefaultCollectInterval,
		expire:   DefaultExpiration,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stats reports what one pass discarded.
type Stats struct {
	Documents   int `json:"documents"`
	Connections int `json:"connections"`
}

// Run collects every interval until ctx is done. The timer is re-armed only
// after a pass completes, so passes never overlap.
func (c *Collector) Run(ctx context.Context) {
	timer := time.NewTimer(c.interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if st, ok := c.Collect(); ok && (st.Documents > 0 || st.Connections > 0) {
				c.logger.Info("session: stale collection", "documents", st.Documents, "connections", st.Connections)
			}
			timer.Reset(c.interval)
		}
	}
}

// Collect runs one pass. It returns false without doing anything when
// another pass is already running.
func (c *Collector) Collect() (Stats, bool) {
	if !c.running.CompareAndSwap(false, true) {
		return Stats{}, false
	}
	defer c.running.Store(false)
	c.passes.Add(1)

	var st Stats
	minRequired := c.now().Add(-c.expire)
	for _, conn := range c.conns.Connections() {
		for _, d := range conn.Documents() {
			if d.LastActivity().Before(minRequired) && conn.discard(d.ID(), ReasonExpired) {
				st.Documents++
			}
		}
		if conn.IsEmpty() && c.conns.discardIfEmpty(conn) {
			st.Connections++
		}
	}
	return st, true
}

// Passes returns the number of completed or running passes.
func (c *Collector) Passes() int64 { return c.passes.Load() }

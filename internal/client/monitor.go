package client

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is what the offline banner shows.
type Status struct {
	Online bool `json:"online"`
	Queued int  `json:"queued"`
}

// Monitor polls the server health, flushes the offline queue when the
// server comes back and publishes Status changes.
type Monitor struct {
	c        *Client
	interval time.Duration
	log      *zap.Logger

	mu        sync.Mutex
	status    Status
	checked   bool
	listeners map[int]func(Status)
	nextID    int
	unsub     func()
}

// NewMonitor returns a Monitor polling every interval (30s when <= 0).
func NewMonitor(c *Client, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &Monitor{c: c, interval: interval, log: c.log, listeners: map[int]func(Status){}}
	m.unsub = c.queue.Subscribe(func(n int) {
		m.mu.Lock()
		m.status.Queued = n
		m.mu.Unlock()
		m.publish()
	})
	return m
}

// Close stops following the queue length.
func (m *Monitor) Close() { m.unsub() }

// Status returns the last known state.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Subscribe registers a listener and calls it with the current status.
func (m *Monitor) Subscribe(fn func(Status)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	st := m.status
	m.mu.Unlock()
	fn(st)
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Monitor) publish() {
	m.mu.Lock()
	st := m.status
	ls := make([]func(Status), 0, len(m.listeners))
	for _, l := range m.listeners {
		ls = append(ls, l)
	}
	m.mu.Unlock()
	for _, l := range ls {
		l(st)
	}
}

// Check probes the server once. The queue is flushed on the first check
// that finds the server up and on every offline to online transition.
func (m *Monitor) Check(ctx context.Context) Status {
	online := m.c.Online(ctx)

	m.mu.Lock()
	cameBack := online && (!m.checked || !m.status.Online)
	changed := !m.checked || m.status.Online != online
	m.checked = true
	m.status.Online = online
	m.mu.Unlock()

	if changed {
		m.log.Info("connectivity changed", zap.Bool("online", online))
		m.publish()
	}
	if cameBack {
		if n, err := m.c.queue.Len(ctx); err == nil && n > 0 {
			res, err := m.c.Flush(ctx)
			if err != nil {
				m.log.Warn("offline queue flush failed", zap.Error(err))
			} else if res.Processed > 0 {
				m.log.Info("offline queue replayed", zap.Int("processed", res.Processed), zap.Int("remaining", res.Remaining))
			}
		}
	}
	return m.Status()
}

// Run checks immediately and then on every tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Check(ctx)
		}
	}
}

package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rickgao/feedstream/internal/metrics"
)

// Errors
var (
	ErrStaleConnection = errors.New("no heartbeat within stale timeout")
)

// Probe labels used for metrics and logs.
const (
	ProbePing      = "ping"
	ProbeKeepalive = "keepalive"
)

// Prober sends the two liveness probes over a live connection.
type Prober interface {
	// Ping writes a websocket ping control frame.
	Ping() error
	// Keepalive writes the text keep-alive message.
	Keepalive() error
}

// EventLogger receives domain events. *eventlog.Sink satisfies it.
type EventLogger interface {
	Log(msg string)
}

// FailureFunc is called once with the first probe failure. ctx is cancelled
// when the monitor is stopped, so a callback that blocks must also watch it.
type FailureFunc func(ctx context.Context, err error)

// Config holds probe intervals. A zero interval disables that probe; a zero or
// negative StaleTimeout disables stale detection.
type Config struct {
	PingInterval      time.Duration
	KeepaliveInterval time.Duration
	StaleTimeout      time.Duration
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock sets the clock driving the tickers.
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Monitor) { m.metrics = mt }
}

// WithEventLog sets where "Heartbeat sent." events go.
func WithEventLog(events EventLogger) Option {
	return func(m *Monitor) { m.events = events }
}

// Monitor runs the probe loop for one connection at a time. Seen may be
// called from any goroutine.
type Monitor struct {
	cfg     Config
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  EventLogger

	lastSeen atomic.Int64 // unix nanos

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Monitor. Call Start to begin probing a connection.
func New(cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:   cfg,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "heartbeat")
	return m
}

// Start launches the probe loop against p. onFailure is invoked at most once
// per Start. Starting a running monitor has no effect.
func (m *Monitor) Start(ctx context.Context, p Prober, onFailure FailureFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.Seen()

	go m.run(ctx, p, onFailure, m.done)
}

// Stop cancels the probe loop and waits for it to exit. Safe to call on a
// monitor that was never started or has already failed.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Seen records that the connection showed a sign of life.
func (m *Monitor) Seen() {
	m.lastSeen.Store(m.clock.Now().UnixNano())
}

// LastSeen returns the last time Seen was called.
func (m *Monitor) LastSeen() time.Time {
	return time.Unix(0, m.lastSeen.Load())
}

func (m *Monitor) run(ctx context.Context, p Prober, onFailure FailureFunc, done chan struct{}) {
	defer close(done)

	var pingC, keepC <-chan time.Time
	if m.cfg.PingInterval > 0 {
		t := m.clock.Ticker(m.cfg.PingInterval)
		defer t.Stop()
		pingC = t.C
	}
	if m.cfg.KeepaliveInterval > 0 {
		t := m.clock.Ticker(m.cfg.KeepaliveInterval)
		defer t.Stop()
		keepC = t.C
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-pingC:
			if err = m.checkStale(); err == nil {
				err = m.probe(ProbePing, p.Ping)
			}
		case <-keepC:
			err = m.probe(ProbeKeepalive, p.Keepalive)
		}

		if err != nil {
			// A failure racing with Stop is not reported.
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("heartbeat failed", "error", err)
			if onFailure != nil {
				onFailure(ctx, err)
			}
			return
		}
	}
}

func (m *Monitor) probe(name string, send func() error) error {
	if err := send(); err != nil {
		m.metrics.ProbeFailed(name)
		return fmt.Errorf("%s: %w", name, err)
	}
	m.metrics.ProbeSent(name)
	if m.events != nil {
		m.events.Log("Heartbeat sent.")
	}
	return nil
}

func (m *Monitor) checkStale() error {
	if m.cfg.StaleTimeout <= 0 {
		return nil
	}
	since := m.clock.Since(m.LastSeen())
	if since > m.cfg.StaleTimeout {
		m.metrics.ProbeFailed("stale")
		return fmt.Errorf("%w: last seen %s ago", ErrStaleConnection, since.Round(time.Millisecond))
	}
	return nil
}

package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rickgao/feedstream/internal/config"
	"github.com/rickgao/feedstream/internal/heartbeat"
	"github.com/rickgao/feedstream/internal/metrics"
	"github.com/rickgao/feedstream/internal/subscription"
	"github.com/rickgao/feedstream/internal/tokens"
)

// EventLogger receives domain events. *eventlog.Sink satisfies it.
type EventLogger interface {
	Log(msg string)
}

// ControllerConfig configures the Controller.
type ControllerConfig struct {
	Retry       RetryConfig
	Heartbeat   heartbeat.Config
	EventBuffer int // event channel capacity
}

// DefaultControllerConfig returns sensible defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Retry: DefaultRetryConfig(),
		Heartbeat: heartbeat.Config{
			PingInterval:      10 * time.Second,
			KeepaliveInterval: 30 * time.Second,
			StaleTimeout:      90 * time.Second,
		},
		EventBuffer: 64,
	}
}

// ConfigFromStreamer maps the reconnect and heartbeat sections of cfg.
func ConfigFromStreamer(cfg *config.StreamerConfig) ControllerConfig {
	cc := DefaultControllerConfig()
	cc.Retry = RetryConfig{
		BaseDelay:   cfg.Reconnect.BaseDelay,
		Multiplier:  cfg.Reconnect.Multiplier,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
	}
	cc.Heartbeat = heartbeat.Config{
		PingInterval:      cfg.Heartbeat.PingInterval,
		KeepaliveInterval: cfg.Heartbeat.KeepaliveInterval,
		StaleTimeout:      cfg.Heartbeat.StaleTimeout,
	}
	return cc
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for retry timers and the heartbeat.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ctl *Controller) { ctl.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(ctl *Controller) { ctl.metrics = m }
}

// WithEventLog sets where domain events are recorded.
func WithEventLog(events EventLogger) Option {
	return func(ctl *Controller) { ctl.events = events }
}

// WithMessageHandler sets the handler for data messages. The default
// discards them.
func WithMessageHandler(h MessageHandler) Option {
	return func(ctl *Controller) { ctl.onMessage = h }
}

// Controller owns the feed connection and its lifecycle.
type Controller struct {
	cfg       ControllerConfig
	dialer    Dialer
	subs      *subscription.Manager
	groups    []tokens.Group
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *metrics.Metrics
	events    EventLogger
	onMessage MessageHandler

	eventCh chan Event
	state   atomic.Int32
	running atomic.Bool

	closeOnce sync.Once
	closeCh   chan struct{}

	// Owned by the event loop.
	gen        uint64
	conn       Conn
	retry      *RetryPolicy
	retryTimer *clock.Timer

	monitor *heartbeat.Monitor // Seen is called from read loops

	statsMu sync.RWMutex
	stats   Stats
}

// NewController creates a Controller that subscribes groups on the first
// successful open.
func NewController(cfg ControllerConfig, dialer Dialer, subs *subscription.Manager, groups []tokens.Group, opts ...Option) *Controller {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultControllerConfig().EventBuffer
	}

	c := &Controller{
		cfg:     cfg,
		dialer:  dialer,
		subs:    subs,
		groups:  groups,
		clock:   clock.New(),
		eventCh: make(chan Event, cfg.EventBuffer),
		closeCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.retry = NewRetryPolicy(cfg.Retry, c.clock)
	c.monitor = heartbeat.New(cfg.Heartbeat,
		heartbeat.WithClock(c.clock),
		heartbeat.WithLogger(c.logger),
		heartbeat.WithMetrics(c.metrics),
		heartbeat.WithEventLog(c.events),
	)

	c.logger = c.logger.With("component", "connection")
	return c
}

// Run dials the feed and handles events until ctx is cancelled, Close is
// called, or reconnection attempts are exhausted. It returns nil on a
// requested shutdown and ErrRetriesExhausted when the feed could not be
// reached. Run may only be called once.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-c.closeCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	c.dial(ctx)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return nil
		case ev := <-c.eventCh:
			if err := c.handle(ctx, ev); err != nil {
				c.shutdown()
				return err
			}
		}
	}
}

// Close requests shutdown. Run returns once the connection is closed.
func (c *Controller) Close() error {
	err := ErrAlreadyClosed
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = nil
	})
	return err
}

// State returns the current connection state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Stats returns a snapshot of controller counters.
func (c *Controller) Stats() Stats {
	c.statsMu.RLock()
	s := c.stats
	c.statsMu.RUnlock()

	s.State = c.State()
	s.Subscriptions = c.subs.Record().Len()
	s.Tokens = c.subs.Record().TokenCount()
	return s
}

// handle is the single transition function. It returns a non-nil error only
// when the controller must stop.
func (c *Controller) handle(ctx context.Context, ev Event) error {
	if ev.Gen != c.gen {
		c.logger.Debug("dropping stale event", "kind", ev.Kind, "gen", ev.Gen, "current", c.gen)
		if ev.Kind == EventOpened && ev.Conn != nil {
			ev.Conn.Close()
		}
		return nil
	}

	switch ev.Kind {
	case EventOpened:
		c.opened(ctx, ev.Conn)
		return nil

	case EventPong:
		c.monitor.Seen()
		c.updateStats(func(s *Stats) { s.LastPongAt = c.clock.Now() })
		c.logEvent("Heartbeat received.")
		return nil

	case eventRetry:
		if c.State() != StateReconnecting {
			return nil
		}
		c.retryTimer = nil
		c.dial(ctx)
		return nil

	case EventClosed, EventError:
		return c.fail(ctx, ev)
	}

	return nil
}

// dial starts a connection attempt. The result arrives as an Opened or
// Error event.
func (c *Controller) dial(ctx context.Context) {
	c.gen++
	gen := c.gen
	c.setState(StateConnecting)

	c.logger.Info("connecting", "gen", gen, "attempt", c.retry.Attempt())

	go func() {
		conn, err := c.dialer.Dial(ctx, c.handlers(ctx, gen))
		if err != nil {
			c.post(ctx, Event{Kind: EventError, Gen: gen, Err: err})
			return
		}
		if !c.post(ctx, Event{Kind: EventOpened, Gen: gen, Conn: conn}) {
			conn.Close()
		}
	}()
}

// handlers binds transport callbacks to events of generation gen.
func (c *Controller) handlers(ctx context.Context, gen uint64) Handlers {
	return Handlers{
		OnMessage: func(data []byte) {
			c.monitor.Seen()
			c.metrics.MessageReceived()
			if c.onMessage != nil {
				c.onMessage(data)
			}
		},
		OnPong: func() {
			c.post(ctx, Event{Kind: EventPong, Gen: gen})
		},
		OnPing: func() {
			c.monitor.Seen()
		},
		OnClosed: func(err error) {
			c.post(ctx, Event{Kind: EventClosed, Gen: gen, Err: err})
		},
		OnError: func(err error) {
			c.post(ctx, Event{Kind: EventError, Gen: gen, Err: err})
		},
	}
}

// post delivers ev to the event loop. Returns false if ctx ended first.
func (c *Controller) post(ctx context.Context, ev Event) bool {
	select {
	case c.eventCh <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Controller) opened(ctx context.Context, conn Conn) {
	if c.State() != StateConnecting {
		conn.Close()
		return
	}

	c.conn = conn
	c.retry.Reset()
	c.setState(StateConnected)
	c.metrics.Connected()
	c.updateStats(func(s *Stats) {
		s.Connects++
		s.Attempt = 0
		s.LastConnectedAt = c.clock.Now()
	})

	c.logger.Info("connected", "gen", c.gen)
	c.logEvent("Sent connection message")

	if c.subs.Record().Len() == 0 {
		c.subs.Subscribe(ctx, conn, c.groups)
	} else {
		c.subs.Resubscribe(ctx, conn)
	}

	gen := c.gen
	c.monitor.Start(ctx, conn, func(hbCtx context.Context, err error) {
		c.post(hbCtx, Event{Kind: EventError, Gen: gen, Err: fmt.Errorf("heartbeat: %w", err)})
	})
}

// fail handles a transport or probe failure. A failure that arrives while a
// reconnection is already pending is ignored.
func (c *Controller) fail(ctx context.Context, ev Event) error {
	state := c.State()
	if state != StateConnected && state != StateConnecting {
		c.logger.Debug("ignoring failure, reconnection in progress", "kind", ev.Kind, "state", state, "error", ev.Err)
		return nil
	}

	if state == StateConnected {
		c.monitor.Stop()
		c.logEvent(fmt.Sprintf("Connection failed: %v", ev.Err))
	} else {
		c.logEvent(fmt.Sprintf("Connection attempt failed: %v", ev.Err))
	}

	c.logger.Warn("connection lost", "kind", ev.Kind, "state", state, "error", ev.Err)
	c.updateStats(func(s *Stats) {
		s.Failures++
		if ev.Err != nil {
			s.LastError = ev.Err.Error()
		}
	})

	c.closeConn()
	c.setState(StateReconnecting)

	attempt, delay, ok := c.retry.Next()
	if !ok {
		c.setState(StateClosed)
		c.metrics.RetriesExhausted()
		c.logger.Error("max retry attempts reached, giving up", "attempts", c.retry.MaxAttempts())
		c.logEvent("Max retry attempts reached. Connection closed.")
		return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.retry.MaxAttempts(), ev.Err)
	}

	gen := c.gen
	c.retryTimer = c.clock.AfterFunc(delay, func() {
		c.post(ctx, Event{Kind: eventRetry, Gen: gen})
	})

	c.metrics.ReconnectAttempt()
	c.updateStats(func(s *Stats) { s.Attempt = attempt })
	c.logger.Info("scheduling reconnect", "attempt", attempt, "delay", delay)
	c.logEvent(fmt.Sprintf("Attempting to reconnect. Attempt %d", attempt))
	return nil
}

// shutdown moves to Closed and releases the connection. The event log is
// left running for the owner to stop.
func (c *Controller) shutdown() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.monitor.Stop()
	c.closeConn()
	c.drain()

	if c.State() != StateClosed {
		c.setState(StateClosed)
		c.logger.Info("connection closed")
		c.logEvent("Connection closed.")
	}
}

// drain discards queued events, closing any connection that was opened but
// never handed to the loop.
func (c *Controller) drain() {
	for {
		select {
		case ev := <-c.eventCh:
			if ev.Kind == EventOpened && ev.Conn != nil {
				ev.Conn.Close()
			}
		default:
			return
		}
	}
}

// closeConn closes the current connection, if any.
func (c *Controller) closeConn() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, ErrNotConnected) {
		c.logger.Debug("close connection", "error", err)
	}
	c.conn = nil
}

func (c *Controller) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	c.metrics.SetConnectionState(int(s))
	if old != s {
		c.logger.Debug("state transition", "from", old, "to", s)
	}
}

func (c *Controller) updateStats(fn func(*Stats)) {
	c.statsMu.Lock()
	fn(&c.stats)
	c.statsMu.Unlock()
}

func (c *Controller) logEvent(msg string) {
	if c.events != nil {
		c.events.Log(msg)
	}
}

package eventlog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/rickgao/feedstream/internal/metrics"
)

// ErrClosed is returned when enqueueing into a stopped sink.
var ErrClosed = errors.New("event log closed")

// DefaultSource tags entries from the streamer.
const DefaultSource = "AO"

// Sink is the shared event log. Log is safe for concurrent use.
type Sink struct {
	source       string
	queue        *Queue[Entry]
	dest         Destination
	clock        clock.Clock
	logger       *slog.Logger
	metrics      *metrics.Metrics
	writeTimeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// Option configures a Sink.
type Option func(*Sink)

// WithSource sets the Source field stamped on every entry.
func WithSource(source string) Option {
	return func(s *Sink) { s.source = source }
}

// WithClock sets the clock used for timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Sink) { s.clock = c }
}

// WithLogger sets the diagnostic logger used for destination failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sink) { s.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sink) { s.metrics = m }
}

// WithQueueCapacity sets the initial queue capacity. The queue grows as needed.
func WithQueueCapacity(n int) Option {
	return func(s *Sink) { s.queue = NewQueue[Entry](n) }
}

// WithWriteTimeout bounds each destination write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Sink) { s.writeTimeout = d }
}

// NewSink creates a sink writing to dest. Call Start to launch the worker.
func NewSink(dest Destination, opts ...Option) *Sink {
	s := &Sink{
		source:       DefaultSource,
		dest:         dest,
		clock:        clock.New(),
		writeTimeout: 5 * time.Second,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = NewQueue[Entry](256)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Start launches the worker. Calling it more than once has no effect.
func (s *Sink) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

// Log enqueues a message stamped with the current time. Logging is best
// effort: after Stop the entry is counted as dropped.
func (s *Sink) Log(msg string) {
	if err := s.Enqueue(Entry{Source: s.source, Message: msg, Time: s.clock.Now()}); err != nil {
		s.metrics.LogDropped()
		s.logger.Debug("event log closed, dropping entry", "message", msg)
	}
}

// Logf formats and enqueues a message.
func (s *Sink) Logf(format string, args ...any) {
	s.Log(fmt.Sprintf(format, args...))
}

// Enqueue adds an entry. Returns ErrClosed after Stop.
func (s *Sink) Enqueue(e Entry) error {
	if !s.queue.Push(e) {
		return ErrClosed
	}
	s.metrics.SetLogPending(s.queue.Len())
	return nil
}

// Pending returns the number of entries not yet written.
func (s *Sink) Pending() int {
	return s.queue.Len()
}

// Stats returns queue counters.
func (s *Sink) Stats() QueueStats {
	return s.queue.Stats()
}

// Stop closes the queue, waits for the worker to write every remaining entry
// and closes the destination. If ctx expires first the worker keeps draining
// in the background and ctx.Err() is returned.
func (s *Sink) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.queue.Close()
		// A sink that was never started still owes its entries.
		s.Start()

		select {
		case <-s.done:
		case <-ctx.Done():
			err = ctx.Err()
			s.logger.Warn("event log stop timed out", "pending", s.queue.Len())
			return
		}

		if cerr := s.dest.Close(); cerr != nil {
			s.logger.Error("failed to close event log destination", "error", cerr)
			err = cerr
		}
	})
	return err
}

// run drains the queue until it is closed and empty.
func (s *Sink) run() {
	defer close(s.done)

	for {
		e, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.write(e)
	}
}

func (s *Sink) write(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.dest.Write(ctx, e); err != nil {
		s.metrics.LogFailed()
		s.logger.Error("failed to write event log entry",
			"message", e.Message,
			"error", err,
		)
		return
	}
	s.metrics.LogWritten()
	s.metrics.SetLogPending(s.queue.Len())
}

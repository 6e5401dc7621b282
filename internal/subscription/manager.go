package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/rickgao/feedstream/internal/metrics"
	"github.com/rickgao/feedstream/internal/tokens"
	"github.com/rickgao/feedstream/internal/wire"
)

// CorrelationIDLength is the length of generated correlation ids.
const CorrelationIDLength = 10

// Sender writes one text message to the feed.
type Sender interface {
	Send(data []byte) error
}

// EventLogger receives domain events. *eventlog.Sink satisfies it.
type EventLogger interface {
	Log(msg string)
}

// Summary reports the outcome of a Subscribe or Resubscribe pass.
type Summary struct {
	Kind     string
	Messages int
	Sent     int
	Failed   int
	Tokens   int
	Skipped  int // messages not attempted because ctx was cancelled
}

// Kinds reported in Summary and metrics labels.
const (
	KindSubscribe   = "subscribe"
	KindResubscribe = "resubscribe"
)

// Config holds subscription settings.
type Config struct {
	Mode      int
	ChunkSize int
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator replaces the correlation id generator.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// WithEventLog sets where domain events are recorded.
func WithEventLog(events EventLogger) Option {
	return func(m *Manager) { m.events = events }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// Manager chunks token groups into subscribe messages and owns the record
// used to replay them.
type Manager struct {
	cfg     Config
	record  *Record
	newID   func() string
	events  EventLogger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewManager creates a Manager. A chunk size outside 1..MaxTokensPerMessage
// is clamped to the protocol limit.
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.ChunkSize <= 0 || cfg.ChunkSize > wire.MaxTokensPerMessage {
		cfg.ChunkSize = wire.MaxTokensPerMessage
	}
	m := &Manager{
		cfg:    cfg,
		record: NewRecord(),
		newID:  NewCorrelationID,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "subscription")
	return m
}

// Record returns the manager's record.
func (m *Manager) Record() *Record {
	return m.record
}

// NewCorrelationID returns a random id of CorrelationIDLength hex characters.
func NewCorrelationID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:CorrelationIDLength]
}

// Chunk splits tokens into consecutive slices of at most size tokens.
func Chunk(tokens []string, size int) [][]string {
	if size <= 0 {
		size = wire.MaxTokensPerMessage
	}
	chunks := make([][]string, 0, (len(tokens)+size-1)/size)
	for i := 0; i < len(tokens); i += size {
		end := i + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tokens[i:end:end])
	}
	return chunks
}

// Subscribe sends every group, in order, as chunked subscribe messages. A
// group is fully issued before the next one starts. Send failures are logged
// and counted; they never stop later chunks.
func (m *Manager) Subscribe(ctx context.Context, s Sender, groups []tokens.Group) Summary {
	sum := Summary{Kind: KindSubscribe}

	for _, g := range groups {
		m.logEvent(fmt.Sprintf("Total tokens read from %s: %d", g.Name, len(g.Tokens)))

		chunks := Chunk(g.Tokens, m.cfg.ChunkSize)
		for i, chunk := range chunks {
			if ctx.Err() != nil {
				sum.Skipped += len(chunks) - i
				break
			}

			entry := Entry{
				CorrelationID: m.uniqueID(),
				Mode:          m.cfg.Mode,
				TokenList: []TokenBatch{{
					ExchangeType: g.ExchangeType,
					Tokens:       chunk,
					Mode:         m.cfg.Mode,
				}},
			}
			m.record.Put(entry)

			if m.send(s, entry, KindSubscribe, &sum) {
				m.logEvent(fmt.Sprintf("Number of tokens sent to server with exchangeType %d: %d",
					g.ExchangeType, len(chunk)))
			}
		}

		if ctx.Err() == nil {
			m.logEvent(fmt.Sprintf("tokens sent to server: %s", g.Name))
		}
	}

	m.finish(sum)
	return sum
}

// Resubscribe replays every recorded message, in the order first sent, with
// its original correlation id and token list.
func (m *Manager) Resubscribe(ctx context.Context, s Sender) Summary {
	sum := Summary{Kind: KindResubscribe}

	entries := m.record.Snapshot()
	for i, entry := range entries {
		if ctx.Err() != nil {
			sum.Skipped += len(entries) - i
			break
		}
		if m.send(s, entry, KindResubscribe, &sum) {
			m.logEvent(fmt.Sprintf("Resubscribed to tokens for mode: %d", entry.Mode))
		}
	}

	m.finish(sum)
	return sum
}

// send encodes and writes one entry, updating sum. Returns true on success.
func (m *Manager) send(s Sender, entry Entry, kind string, sum *Summary) bool {
	sum.Messages++

	lists := make([]wire.TokenList, len(entry.TokenList))
	for i, b := range entry.TokenList {
		lists[i] = wire.TokenList{ExchangeType: b.ExchangeType, Tokens: b.Tokens}
	}
	data, err := wire.NewSubscribe(entry.CorrelationID, entry.Mode, lists...).Encode()
	if err == nil {
		err = s.Send(data)
	}
	if err != nil {
		sum.Failed++
		m.metrics.ChunkFailed(kind)
		m.logger.Warn("failed to send subscribe message",
			"kind", kind,
			"correlation_id", entry.CorrelationID,
			"tokens", entry.TokenCount(),
			"error", err,
		)
		if kind == KindResubscribe {
			m.logEvent("Resubscription failed: " + err.Error())
		} else {
			m.logEvent("Subscription failed: " + err.Error())
		}
		return false
	}

	sum.Sent++
	sum.Tokens += entry.TokenCount()
	m.metrics.ChunkSent(kind)
	return true
}

func (m *Manager) finish(sum Summary) {
	m.metrics.SetTokensSubscribed(m.record.TokenCount())
	m.logger.Info("subscription pass complete",
		"kind", sum.Kind,
		"messages", sum.Messages,
		"sent", sum.Sent,
		"failed", sum.Failed,
		"skipped", sum.Skipped,
		"tokens", sum.Tokens,
	)
}

// uniqueID draws ids until one is not already recorded.
func (m *Manager) uniqueID() string {
	for {
		id := m.newID()
		if !m.record.Has(id) {
			return id
		}
	}
}

func (m *Manager) logEvent(msg string) {
	if m.events != nil {
		m.events.Log(msg)
	}
}

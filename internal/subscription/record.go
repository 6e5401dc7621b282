package subscription

import "sync"

// TokenBatch is one exchange type's tokens within a single message.
type TokenBatch struct {
	ExchangeType int
	Tokens       []string
	Mode         int
}

// Entry is a recorded subscribe message.
type Entry struct {
	CorrelationID string
	Mode          int
	TokenList     []TokenBatch
}

// TokenCount returns the number of tokens in the entry.
func (e Entry) TokenCount() int {
	n := 0
	for _, b := range e.TokenList {
		n += len(b.Tokens)
	}
	return n
}

// Record maps correlation ids to the messages sent under them, in insertion
// order. Safe for concurrent use.
type Record struct {
	mu      sync.Mutex
	order   []string
	entries map[string]Entry
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{entries: make(map[string]Entry)}
}

// Put stores e under its correlation id. Re-putting an id replaces the entry
// but keeps its original position.
func (r *Record) Put(e Entry) {
	e = cloneEntry(e)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[e.CorrelationID]; !exists {
		r.order = append(r.order, e.CorrelationID)
	}
	r.entries[e.CorrelationID] = e
}

// Has reports whether id is recorded.
func (r *Record) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of recorded messages.
func (r *Record) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// TokenCount returns the number of tokens across all recorded messages.
func (r *Record) TokenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		n += e.TokenCount()
	}
	return n
}

// Snapshot returns a deep copy of every entry in insertion order.
func (r *Record) Snapshot() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneEntry(r.entries[id]))
	}
	return out
}

// Reset forgets every recorded message.
func (r *Record) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.entries = make(map[string]Entry)
}

func cloneEntry(e Entry) Entry {
	list := make([]TokenBatch, len(e.TokenList))
	for i, b := range e.TokenList {
		list[i] = TokenBatch{
			ExchangeType: b.ExchangeType,
			Tokens:       append([]string(nil), b.Tokens...),
			Mode:         b.Mode,
		}
	}
	e.TokenList = list
	return e
}

package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Protocol constants.
const (
	ActionSubscribe     = 1
	MaxTokensPerMessage = 100

	// KeepalivePing is the text frame the feed expects at the keep-alive interval.
	KeepalivePing = "ping"
	// KeepalivePong is the feed's reply to KeepalivePing.
	KeepalivePong = "pong"
)

// Errors
var (
	ErrTooManyTokens = errors.New("token list exceeds per-message limit")
	ErrNoTokens      = errors.New("subscribe request has no tokens")
)

// TokenList is one exchange type's entry in a subscribe request.
type TokenList struct {
	ExchangeType int      `json:"exchangeType"`
	Tokens       []string `json:"tokens"`
}

// Params carries the subscription mode and token lists.
type Params struct {
	Mode      int         `json:"mode"`
	TokenList []TokenList `json:"tokenList"`
}

// Request is a subscribe command sent to the feed.
type Request struct {
	CorrelationID string `json:"correlationID"`
	Action        int    `json:"action"`
	Params        Params `json:"params"`
}

// NewSubscribe builds a subscribe request.
func NewSubscribe(correlationID string, mode int, lists ...TokenList) Request {
	return Request{
		CorrelationID: correlationID,
		Action:        ActionSubscribe,
		Params: Params{
			Mode:      mode,
			TokenList: lists,
		},
	}
}

// TokenCount returns the number of tokens across all lists.
func (r Request) TokenCount() int {
	n := 0
	for _, l := range r.Params.TokenList {
		n += len(l.Tokens)
	}
	return n
}

// Encode validates the request and marshals it to JSON. Token strings are
// escaped by encoding/json, so identifiers containing quotes or control
// characters still produce a valid document.
func (r Request) Encode() ([]byte, error) {
	n := r.TokenCount()
	if n == 0 {
		return nil, ErrNoTokens
	}
	if n > MaxTokensPerMessage {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyTokens, n, MaxTokensPerMessage)
	}
	return json.Marshal(r)
}

// Decode parses a subscribe request.
func Decode(data []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return Request{}, fmt.Errorf("decode subscribe request: %w", err)
	}
	return r, nil
}

// IsPong reports whether a text frame is the keep-alive reply.
func IsPong(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte(KeepalivePong))
}

package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/feedstream/internal/wire"
)

// Handlers receive callbacks from a connection's read loop. Any field may be
// nil. Exactly one of OnClosed or OnError is called when the read loop ends,
// unless the connection was closed locally first.
type Handlers struct {
	OnMessage func(data []byte)
	OnPong    func()
	OnPing    func()
	OnClosed  func(err error)
	OnError   func(err error)
}

// Dialer opens feed connections.
type Dialer interface {
	Dial(ctx context.Context, h Handlers) (Conn, error)
}

// Conn is an open feed connection. Send, Ping and Keepalive may be called
// concurrently with each other and with the read loop.
type Conn interface {
	// Send writes a text message.
	Send(data []byte) error
	// Ping writes a websocket ping control frame.
	Ping() error
	// Keepalive writes the text keep-alive message.
	Keepalive() error
	// Close closes the connection. Calling it more than once is safe.
	Close() error
}

// ClientConfig configures the websocket transport.
type ClientConfig struct {
	URL              string      // e.g. wss://smartapisocket.angelone.in/smart-stream
	Header           http.Header // handshake headers (auth)
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// WSDialer dials the feed with gorilla/websocket.
type WSDialer struct {
	cfg    ClientConfig
	logger *slog.Logger
	dialer websocket.Dialer
}

// NewWSDialer creates a websocket dialer.
func NewWSDialer(cfg ClientConfig, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultClientConfig().WriteTimeout
	}
	return &WSDialer{
		cfg:    cfg,
		logger: logger,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}
}

// Dial opens a connection and starts its read loop.
func (d *WSDialer) Dial(ctx context.Context, h Handlers) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.cfg.URL, d.cfg.Header.Clone())
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.cfg.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.cfg.URL, err)
	}

	c := &client{
		conn:         conn,
		writeTimeout: d.cfg.WriteTimeout,
		logger:       d.logger,
		done:         make(chan struct{}),
	}

	conn.SetPongHandler(func(string) error {
		if h.OnPong != nil {
			h.OnPong()
		}
		return nil
	})

	// Server pings are answered here and count as liveness.
	conn.SetPingHandler(func(data string) error {
		if h.OnPing != nil {
			h.OnPing()
		}
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go c.readLoop(h)

	d.logger.Debug("websocket connected", "url", d.cfg.URL)
	return c, nil
}

// client implements Conn over a gorilla websocket.
type client struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *slog.Logger

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

// Send writes a text message.
func (c *client) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping writes a ping control frame.
func (c *client) Ping() error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Keepalive writes the text keep-alive message.
func (c *client) Keepalive() error {
	return c.Send([]byte(wire.KeepalivePing))
}

// Close sends a close frame and closes the socket.
func (c *client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}

// readLoop reads until the connection fails or is closed.
func (c *client) readLoop(h Handlers) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
			}

			// 1006 is reported for a dropped socket, not a close frame.
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				c.logger.Info("websocket closed by server", "code", closeErr.Code, "text", closeErr.Text)
				if h.OnClosed != nil {
					h.OnClosed(err)
				}
				return
			}

			c.logger.Warn("websocket read failed", "error", err)
			if h.OnError != nil {
				h.OnError(err)
			}
			return
		}

		if wire.IsPong(data) {
			if h.OnPong != nil {
				h.OnPong()
			}
			continue
		}

		if h.OnMessage != nil {
			h.OnMessage(data)
		}
	}
}

package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"safeguard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	// SendBuffer is the per-client outbound queue length.
	SendBuffer = 256
)

// Client is the middleman between one websocket connection and the registry.
type Client struct {
	// The websocket connection. Nil in tests that only exercise queueing.
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	UserID uint

	// IncomingHandler is called for every inbound frame. A returned error
	// ends the read loop.
	IncomingHandler func(*Client, []byte) error

	// OnPong runs on every pong from the peer.
	OnPong func()

	closeOnce sync.Once
	closeCode int
	closeText string
	done      chan struct{}
}

// NewClient creates a Client with a bounded send buffer.
func NewClient(conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, SendBuffer),
		done:   make(chan struct{}),
	}
}

// Close stops the write pump, which sends a normal close frame and closes
// the socket. Safe to call more than once.
func (c *Client) Close() {
	c.CloseWith(websocket.CloseNormalClosure, "")
}

// CloseWith is Close with an explicit close code and reason. Only the first
// call wins.
func (c *Client) CloseWith(code int, text string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeText = text
		close(c.done)
	})
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// ReadPump reads frames until the connection fails or the handler returns
// an error. onExit always runs.
func (c *Client) ReadPump(ctx context.Context, onExit func(reason string)) {
	reason := "closed"
	defer func() {
		onExit(reason)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		if c.OnPong != nil {
			c.OnPong()
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				observability.GlobalLogger.WarnContext(ctx, "websocket read failed",
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("error", err.Error()),
				)
				reason = "read_error"
			}
			return
		}

		if c.IncomingHandler != nil {
			if err := c.IncomingHandler(c, message); err != nil {
				reason = "handler_error"
				return
			}
		}
	}
}

// WritePump drains Send onto the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(c.closeCode, c.closeText))
			return

		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend enqueues message without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) TrySend(message []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues(registryName, "closed").Inc()
		return false
	default:
	}

	select {
	case c.Send <- message:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(registryName, "full").Inc()
		observability.GlobalLogger.Warn("websocket buffer full, dropped message",
			slog.Uint64("user_id", uint64(c.UserID)),
		)
		return false
	}
}

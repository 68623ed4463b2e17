package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/protocol"
)

var (
	// ErrConnectionClosed is returned when emitting to a closed connection
	ErrConnectionClosed = errors.New("connection closed")
	// ErrBufferFull is returned when the client is not reading fast enough
	ErrBufferFull = errors.New("send buffer full")
)

// CloseReason is logged when a connection is torn down
type CloseReason string

const (
	ReasonReadError  CloseReason = "read_error"
	ReasonWriteError CloseReason = "write_error"
	ReasonPingError  CloseReason = "ping_error"
	ReasonBufferFull CloseReason = "buffer_full"
	ReasonClientGone CloseReason = "client_gone"
	ReasonShutdown   CloseReason = "server_shutdown"
)

// Connection is one player websocket. Emit is safe for concurrent use;
// frames are written by WritePump only, and WritePump owns closing the
// underlying socket.
type Connection struct {
	id     model.ConnectionID
	player model.PlayerID
	conn   *websocket.Conn
	config Config
	logger *slog.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	reason    CloseReason
}

func newConnection(id model.ConnectionID, player model.PlayerID, conn *websocket.Conn, config Config, logger *slog.Logger) *Connection {
	return &Connection{
		id:     id,
		player: player,
		conn:   conn,
		config: config,
		logger: logger.With(
			slog.String("conn_id", string(id)),
			slog.String("player", player.String()),
		),
		send: make(chan []byte, config.SendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the connection identifier
func (c *Connection) ID() model.ConnectionID {
	return c.id
}

// Player returns the authenticated player
func (c *Connection) Player() model.PlayerID {
	return c.player
}

// Emit queues an event for delivery
func (c *Connection) Emit(event model.Event) error {
	frame, err := protocol.Encode(event)
	if err != nil {
		return err
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		c.Close(ReasonBufferFull, nil)
		return ErrBufferFull
	}
}

// Close tears the connection down once. Frames already queued are still
// flushed by WritePump, within WriteWait, before the socket closes.
func (c *Connection) Close(reason CloseReason, err error) {
	c.closeOnce.Do(func() {
		attrs := []any{slog.String("reason", string(reason))}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		c.logger.Info("ws connection closed", attrs...)
		c.reason = reason
		close(c.done)
	})
}

// Done is closed once the connection has been torn down
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// WritePump writes queued frames and keepalive pings until the connection closes
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer ticker.Stop()
	defer func() { _ = c.conn.Close() }()

	for {
		select {
		case <-c.done:
			c.drain()
			return

		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close(ReasonWriteError, err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(ReasonPingError, err)
				return
			}
		}
	}
}

// drain writes whatever is still buffered and says goodbye, sharing a single
// WriteWait deadline
func (c *Connection) drain() {
	deadline := time.Now().Add(c.config.WriteWait)
	_ = c.conn.SetWriteDeadline(deadline)
	for {
		select {
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		default:
			code := websocket.CloseNormalClosure
			if c.reason == ReasonShutdown {
				code = websocket.CloseGoingAway
			}
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
			return
		}
	}
}

// ReadPump delivers inbound text frames to handle, in order, until the
// client goes away
func (c *Connection) ReadPump(handle func(raw string)) {
	c.conn.SetReadLimit(c.config.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.Close(ReasonReadError, err)
			} else {
				c.Close(ReasonClientGone, nil)
			}
			return
		}
		handle(string(message))
	}
}

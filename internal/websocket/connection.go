package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"focushub/pkg/types"
)

const writeTimeout = 5 * time.Second

// Connection wraps a WebSocket with a single-writer goroutine so
// concurrent broadcasts never interleave frames. The connection id is
// assigned server-side at construction and is the participant's identity
// for its whole lifetime.
type Connection struct {
	id        string
	conn      *websocket.Conn
	writeCh   chan []byte
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection wraps an upgraded WebSocket and starts its writer.
func NewConnection(conn *websocket.Conn, bufferSize int) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:      uuid.New().String(),
		conn:    conn,
		writeCh: make(chan []byte, bufferSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	go c.writeLoop()

	return c
}

// ID returns the server-assigned connection id.
func (c *Connection) ID() string {
	return c.id
}

// Done is closed when the connection shuts down; used by the handler's
// heartbeat goroutine.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// writeLoop is the single writer. Exiting drains the channel so queued
// senders are not stranded.
func (c *Connection) writeLoop() {
	defer func() {
		for len(c.writeCh) > 0 {
			<-c.writeCh
		}
	}()

	for {
		select {
		case data := <-c.writeCh:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// send queues raw bytes for the writer. Slow consumers surface as a
// write timeout here instead of blocking the caller forever.
func (c *Connection) send(data []byte) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(writeTimeout):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// WriteJSON marshals v and queues it for delivery.
func (c *Connection) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}
	return c.send(data)
}

// WriteEvent builds an event envelope and queues it for delivery.
func (c *Connection) WriteEvent(eventType string, payload interface{}) error {
	evt, err := types.NewEvent(eventType, payload)
	if err != nil {
		return ErrInvalidJSON
	}
	return c.WriteJSON(evt)
}

// Close shuts down the writer and the underlying socket. Idempotent.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
)

// Connection is one subscriber of the event feed. Writes happen on a single
// goroutine fed by a bounded queue.
type Connection struct {
	id         string
	socket     *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	closed     atomic.Bool
	lastActive atomic.Int64
}

// NewConnection tracks socket under id.
func NewConnection(id string, socket *websocket.Conn) *Connection {
	conn := &Connection{
		id:     id,
		socket: socket,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
	conn.touch()
	return conn
}

func (c *Connection) ID() string { return c.id }

// Enqueue queues a text frame; it reports false when the queue is full or the connection closed.
func (c *Connection) Enqueue(payload []byte) bool {
	if c.closed.Load() {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// writeLoop drains the queue until the connection closes.
func (c *Connection) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close(err)
				return
			}
			c.touch()
		}
	}
}

// readLoop consumes client frames so control messages are processed; it returns once the peer goes away.
func (c *Connection) readLoop() error {
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return err
		}
		c.touch()
	}
}

// Close sends a close frame carrying reason and releases the socket.
func (c *Connection) Close(reason error) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		text := ""
		if reason != nil {
			text = reason.Error()
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, text)
		_ = c.socket.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = c.socket.Close()
	})
}

func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// LastActive reports when a frame last went in or out.
func (c *Connection) LastActive() time.Time {
	return time.Unix(0, c.lastActive.Load())
}

func (c *Connection) touch() {
	c.lastActive.Store(time.Now().UnixNano())
}

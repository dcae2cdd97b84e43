package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/cwrk-planet/coderjam/internal/service"
	"github.com/cwrk-planet/coderjam/pkg/metrics"

	"github.com/gorilla/websocket"
)

var (
	errSlowConsumer = errors.New("ws: outbound queue full")
	errConnClosed   = errors.New("ws: connection closed")
)

const writeWait = 5 * time.Second

// wsConn is the service.Peer side of one websocket. Send only queues; the
// write loop owns every data write to the socket.
type wsConn struct {
	conn *websocket.Conn
	id   string

	send      chan service.Event
	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(c *websocket.Conn, id string, queue int) *wsConn {
	return &wsConn{
		conn:   c,
		id:     id,
		send:   make(chan service.Event, queue),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

// Send queues ev without blocking. A full queue closes the connection.
func (c *wsConn) Send(ev service.Event) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- ev:
		return nil
	default:
		metrics.SlowConsumers.Inc()
		_ = c.Close()
		return errSlowConsumer
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) write(ev service.Event) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(ev)
}

func (c *wsConn) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

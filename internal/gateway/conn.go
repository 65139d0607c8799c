// Package gateway is the server side of the live connection: it accepts
// websocket clients, tracks which rooms each one wants, and fans injected
// events out to room members.
package gateway

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var ErrBackpressure = errors.New("backpressure")

// liveConn wraps one client websocket with a bounded send queue. A slow
// client loses frames instead of stalling the hub.
type liveConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newLiveConn(conn *websocket.Conn, buffer int) *liveConn {
	return &liveConn{
		conn: conn,
		send: make(chan []byte, buffer),
	}
}

func (c *liveConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *liveConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()
}

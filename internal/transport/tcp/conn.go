// Package tcp provides the raw byte-stream transport of the relay.
package tcp

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/omochice/toy-socket-relay/internal/chat"
)

// DefaultReadBufferSize bounds how many bytes a single Read returns.
const DefaultReadBufferSize = 1024

// Conn adapts net.Conn to chat.Conn interface.
type Conn struct {
	conn    net.Conn
	bufSize int
	writeMu sync.Mutex
	closed  atomic.Bool
}

// NewConn wraps a net.Conn. A non-positive bufSize selects DefaultReadBufferSize.
func NewConn(conn net.Conn, bufSize int) *Conn {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	return &Conn{conn: conn, bufSize: bufSize}
}

// Read implements chat.Conn.
// It returns whatever one read from the socket delivered; no line splitting is done.
// A zero-length read is reported as io.EOF.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	buf := make([]byte, c.bufSize)
	n, err := c.conn.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.EOF
	}
	return nil, err
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(data)
	return err
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.conn.Close()
}

// Open implements chat.Conn.
func (c *Conn) Open() bool {
	return !c.closed.Load()
}

// Kind implements chat.Conn.
func (c *Conn) Kind() chat.Transport {
	return chat.TransportStream
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Package ws provides the WebSocket transport of the relay.
package ws

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/toy-socket-relay/internal/chat"
)

const closeTimeout = time.Second

// Conn adapts an upgraded gobwas/ws connection to chat.Conn interface.
type Conn struct {
	conn       net.Conn
	reader     io.Reader
	remoteAddr string
	readLimit  int64
	// writeMu serializes whole frames: data frames from broadcasts and the
	// control replies written while reading.
	writeMu   sync.Mutex
	closed    atomic.Bool
	closeSent atomic.Bool
}

// NewConn wraps an upgraded connection. br may hold bytes the client sent
// right after the handshake; pass nil when there is none.
func NewConn(conn net.Conn, br *bufio.Reader, remoteAddr string) *Conn {
	c := &Conn{conn: conn, reader: conn, remoteAddr: remoteAddr}
	if br != nil && br.Buffered() > 0 {
		c.reader = io.MultiReader(br, conn)
	}
	if c.remoteAddr == "" {
		c.remoteAddr = conn.RemoteAddr().String()
	}
	return c
}

// Read implements chat.Conn.
// Reads the next text or binary message. Pings are answered; a close frame is
// acknowledged and reported as io.EOF. A message that is not valid UTF-8 or
// exceeds the read limit is refused with the matching close status.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	control := wsutil.ControlFrameHandler(&frameWriter{c}, ws.StateServerSide)
	rd := wsutil.Reader{
		Source:         c.reader,
		State:          ws.StateServerSide,
		CheckUTF8:      true,
		MaxFrameSize:   c.readLimit,
		OnIntermediate: control,
	}

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return nil, c.readFailed(err)
		}
		if hdr.OpCode.IsControl() {
			if err := control(hdr, &rd); err != nil {
				return nil, c.readFailed(err)
			}
			continue
		}

		data, err := c.readMessage(&rd)
		if err != nil {
			return nil, c.readFailed(err)
		}
		return data, nil
	}
}

func (c *Conn) readMessage(rd *wsutil.Reader) ([]byte, error) {
	if c.readLimit <= 0 {
		return io.ReadAll(rd)
	}
	// Fragments are checked one by one, so bound the whole message too.
	data, err := io.ReadAll(io.LimitReader(rd, c.readLimit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.readLimit {
		return nil, wsutil.ErrFrameTooLarge
	}
	return data, nil
}

func (c *Conn) readFailed(err error) error {
	var closed wsutil.ClosedError
	switch {
	case errors.As(err, &closed):
		// The control handler already echoed the close frame.
		c.closeSent.Store(true)
		c.closed.Store(true)
		return io.EOF
	case errors.Is(err, wsutil.ErrInvalidUTF8):
		c.sendClose(ws.StatusInvalidFramePayloadData, "invalid utf8")
	case errors.Is(err, wsutil.ErrFrameTooLarge):
		c.sendClose(ws.StatusMessageTooBig, "message too big")
	}
	return err
}

// Write implements chat.Conn.
// Writes data as one text frame.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return wsutil.WriteServerText(c.conn, data)
}

// Close implements chat.Conn.
// Sends a normal-closure frame unless one was already exchanged, then closes the socket.
func (c *Conn) Close() error {
	c.sendClose(ws.StatusNormalClosure, "bye")
	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// sendClose writes a close frame once per connection and marks it closed.
func (c *Conn) sendClose(code ws.StatusCode, reason string) {
	c.closed.Store(true)
	if !c.closeSent.CompareAndSwap(false, true) {
		return
	}
	// Unblocks a write stuck on a stalled peer so the close frame can go out.
	_ = c.conn.SetWriteDeadline(time.Now().Add(closeTimeout))
	body := ws.NewCloseFrameBody(code, reason)
	c.writeMu.Lock()
	_ = ws.WriteFrame(c.conn, ws.NewCloseFrame(body))
	c.writeMu.Unlock()
}

// SetReadLimit bounds the size of one inbound message. Zero means no limit.
func (c *Conn) SetReadLimit(n int64) {
	c.readLimit = n
}

// Open implements chat.Conn.
func (c *Conn) Open() bool {
	return !c.closed.Load()
}

// Kind implements chat.Conn.
func (c *Conn) Kind() chat.Transport {
	return chat.TransportFramed
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

// frameWriter lets the wsutil control handler write pong and close replies
// under the same lock as data frames. The handler emits each reply in a single
// Write call.
type frameWriter struct {
	c *Conn
}

func (w *frameWriter) Write(p []byte) (int, error) {
	w.c.writeMu.Lock()
	defer w.c.writeMu.Unlock()
	return w.c.conn.Write(p)
}

// Package ws provides a WebSocket client for the relay.
package ws

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/omochice/toy-socket-relay/internal/client"
)

// Client is a WebSocket relay client. Each text message it sends is one unit
// on the relay; each message it receives carries one line.
type Client struct {
	url string
	log *zerolog.Logger

	mu    sync.RWMutex
	conn  *websocket.Conn
	lines chan string
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

var _ client.Client = (*Client)(nil)

// New creates a client for the relay at address. A bare host:port is dialed
// as ws://host:port/.
func New(address string, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		url:   URL(address),
		log:   logger,
		lines: make(chan string, 16),
		done:  make(chan struct{}),
	}
}

// URL normalizes address into a WebSocket URL.
func URL(address string) string {
	if strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://") {
		return address
	}
	return "ws://" + address + "/"
}

// Connect performs the upgrade handshake and starts receiving lines.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.wg.Add(1)
	go c.receiveLines(conn)
	return nil
}

// Disconnect performs the closing handshake and waits for the receiver to stop.
func (c *Client) Disconnect() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()
		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "")
		}
	})
	c.wg.Wait()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Send writes text as one text message.
func (c *Client) Send(text string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return client.ErrNotConnected
	}
	if err := conn.Write(context.Background(), websocket.MessageText, []byte(text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Lines implements client.Client.
func (c *Client) Lines() <-chan string {
	return c.lines
}

func (c *Client) receiveLines(conn *websocket.Conn) {
	defer c.wg.Done()
	defer close(c.lines)

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				c.log.Debug().Err(err).Msg("error reading from server")
			}
			break
		}
		select {
		case c.lines <- strings.TrimSuffix(string(data), "\n"):
		case <-c.done:
			return
		}
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

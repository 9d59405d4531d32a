// Package tcp provides a TCP client for the relay.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/omochice/toy-socket-relay/internal/client"
)

// Client is a line-oriented TCP relay client.
type Client struct {
	address string
	log     *zerolog.Logger

	mu    sync.RWMutex
	conn  net.Conn
	lines chan string
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

var _ client.Client = (*Client)(nil)

// New creates a client for the relay at address (host:port).
func New(address string, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		address: address,
		log:     logger,
		lines:   make(chan string, 16),
		done:    make(chan struct{}),
	}
}

// Connect dials the relay and starts receiving lines.
func (c *Client) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.address)
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

// Disconnect closes the connection and waits for the receiver to stop.
func (c *Client) Disconnect() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	})
	c.wg.Wait()
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil
}

// Send writes text followed by a newline.
func (c *Client) Send(text string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return client.ErrNotConnected
	}
	if _, err := conn.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Lines implements client.Client.
func (c *Client) Lines() <-chan string {
	return c.lines
}

func (c *Client) receiveLines(conn net.Conn) {
	defer c.wg.Done()
	defer close(c.lines)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case c.lines <- scanner.Text():
		case <-c.done:
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.log.Warn().Err(err).Msg("error reading from server")
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

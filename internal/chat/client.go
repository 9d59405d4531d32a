package chat

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultChannel is the channel label every client starts with.
// The broadcast path does not consult it: every client receives every line.
const DefaultChannel = "global"

// Client is the registry record of one connection.
type Client struct {
	ID      uint64
	Conn    Conn
	Channel string
	// Session is a random key that correlates log lines of one connection.
	Session string

	mu   sync.RWMutex
	name string

	closeOnce sync.Once
}

// NewClient builds a record for conn under the given id. The name stays empty
// until the session reads the first inbound unit.
func NewClient(id uint64, conn Conn) *Client {
	return &Client{
		ID:      id,
		Conn:    conn,
		Channel: DefaultChannel,
		Session: uuid.NewString(),
	}
}

// Name returns the display name announced by the peer.
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// Transport reports which transport the client is connected through.
func (c *Client) Transport() Transport {
	return c.Conn.Kind()
}

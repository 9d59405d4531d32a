// Package chat provides the relay core shared by all transports: the client
// registry, the per-connection session loop and the broadcast fan-out.
package chat

import "context"

// Transport identifies which wire transport a connection arrived on.
type Transport int

const (
	// TransportStream is a raw TCP byte stream.
	TransportStream Transport = iota
	// TransportFramed is a WebSocket connection carrying text frames.
	TransportFramed
)

// String returns the tag used in broadcast lines.
func (t Transport) String() string {
	switch t {
	case TransportStream:
		return "TCP"
	case TransportFramed:
		return "WS"
	default:
		return "UNKNOWN"
	}
}

// Conn abstracts one live connection of either transport.
// A Client holds exactly one Conn, so a record can never carry two transports.
type Conn interface {
	// Read returns the next inbound unit: whatever one socket read delivered
	// for the stream transport, one data frame for the framed transport.
	// Returns io.EOF when the peer shut the connection down cleanly.
	Read(ctx context.Context) ([]byte, error)

	// Write sends data to the peer. Safe for concurrent use.
	Write(ctx context.Context, data []byte) error

	// Close tears the connection down. Calling it more than once is a no-op.
	Close() error

	// Open reports whether the connection can still be written to.
	Open() bool

	// Kind reports the transport variant.
	Kind() Transport

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

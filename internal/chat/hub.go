package chat

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Hub relays lines between all registered clients.
// Both the TCP and the WebSocket acceptor share a single Hub instance.
type Hub struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewHub creates a Hub on top of registry. A nil logger discards output.
func NewHub(registry *Registry, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry: registry,
		log:      logger,
	}
}

// Registry returns the registry the hub broadcasts over.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Accept allocates an id for a freshly accepted connection and registers it.
// The caller runs HandleClient for the returned client.
func (h *Hub) Accept(conn Conn) *Client {
	client := NewClient(h.registry.NextID(), conn)
	h.registry.Register(client)

	h.clientLogger(client).Info().Msg("client connected")
	return client
}

// FormatLine renders a broadcast line: [TCP#3 alice]: hello
func FormatLine(tag Transport, id uint64, name, text string) string {
	return fmt.Sprintf("[%s#%d %s]: %s", tag, id, name, text)
}

func welcomeLine(name string, tag Transport) string {
	return fmt.Sprintf("[Server] Welcome %s on %s", name, tag)
}

// Broadcast formats text as coming from senderID and sends it to every
// registered client, the sender included. Sends run concurrently and Broadcast
// returns once all of them finished. A failed send does not stop the others;
// all failures are joined into the returned error.
func (h *Hub) Broadcast(ctx context.Context, senderID uint64, text string, tag Transport) error {
	sender, ok := h.registry.Lookup(senderID)
	if !ok {
		return fmt.Errorf("%w: client %d", ErrSenderNotFound, senderID)
	}

	line := FormatLine(tag, senderID, sender.Name(), text)
	h.log.Info().Str("line", line).Msg("broadcast")

	p := pool.New().WithErrors()
	for _, recipient := range h.registry.Snapshot() {
		p.Go(func() error {
			if err := h.Send(ctx, recipient, line); err != nil {
				h.clientLogger(recipient).Warn().Err(err).Msg("send failed")
				return fmt.Errorf("send to client %d: %w", recipient.ID, err)
			}
			return nil
		})
	}
	return p.Wait()
}

// Send writes one newline-terminated line to client. It is a no-op when the
// client's transport is already torn down.
func (h *Hub) Send(ctx context.Context, client *Client, line string) error {
	if !client.Conn.Open() {
		return nil
	}
	return client.Conn.Write(ctx, []byte(line+"\n"))
}

// Close runs the cleanup of a session: close the transport, then remove the
// client from the registry. Only the first call does anything; it reports
// whether this call performed the cleanup.
func (h *Hub) Close(client *Client) bool {
	performed := false
	client.closeOnce.Do(func() {
		performed = true
		logger := h.clientLogger(client)
		if err := client.Conn.Close(); err != nil {
			logger.Debug().Err(err).Msg("close transport")
		}
		h.registry.Deregister(client.ID)
		logger.Info().Msg("client disconnected")
	})
	return performed
}

// Shutdown closes the transport of every registered client. Each session then
// observes the failed read and cleans itself up.
func (h *Hub) Shutdown() {
	for _, client := range h.registry.Snapshot() {
		if err := client.Conn.Close(); err != nil {
			h.clientLogger(client).Debug().Err(err).Msg("close transport on shutdown")
		}
	}
}

func (h *Hub) clientLogger(client *Client) *zerolog.Logger {
	logger := h.log.With().
		Uint64("client_id", client.ID).
		Stringer("transport", client.Transport()).
		Str("session", client.Session).
		Str("addr", client.Conn.RemoteAddr()).
		Logger()
	return &logger
}

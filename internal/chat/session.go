package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

type sessionState int

const (
	stateNaming sessionState = iota
	stateRelaying
	stateClosed
)

// HandleClient services one connection until it ends. The first inbound unit
// becomes the client's name; every later unit is broadcast. A read error or a
// clean shutdown by the peer ends the session, after which the transport is
// closed and the client deregistered. Nothing is retried.
func (h *Hub) HandleClient(ctx context.Context, client *Client) {
	defer h.Close(client)

	logger := h.clientLogger(client)
	if err := h.serve(ctx, client); err != nil && !errors.Is(err, io.EOF) {
		logger.Debug().Err(err).Msg("session read failed")
	}
}

// serve runs the naming and relaying states and returns the error that moved
// the session to closed.
func (h *Hub) serve(ctx context.Context, client *Client) error {
	logger := h.clientLogger(client)

	var readErr error
	for state := stateNaming; state != stateClosed; {
		data, err := client.Conn.Read(ctx)
		if err != nil {
			readErr = err
			state = stateClosed
			continue
		}
		text := strings.TrimSpace(decodeText(data))

		switch state {
		case stateNaming:
			client.setName(text)
			logger.Info().Str("name", text).Msg("client named")
			if err := h.Send(ctx, client, welcomeLine(text, client.Transport())); err != nil {
				logger.Warn().Err(err).Msg("send welcome")
			}
			state = stateRelaying
		case stateRelaying:
			if err := h.Broadcast(ctx, client.ID, text, client.Transport()); err != nil {
				logger.Debug().Err(err).Msg("broadcast incomplete")
			}
		}
	}
	return readErr
}

// decodeText reads one inbound unit as UTF-8, replacing invalid sequences
// with U+FFFD. A rune split across two stream reads becomes two replacements.
func decodeText(data []byte) string {
	text, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), string(utf8.RuneError))
	}
	return string(text)
}

// Package client holds the line-oriented chat clients for both relay
// transports and the interactive loop shared by the command-line tools.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// ExitCommand ends an interactive session.
const ExitCommand = "/exit"

// ErrNotConnected is returned by Send before Connect or after Disconnect.
var ErrNotConnected = errors.New("not connected to server")

// Client defines the interface for relay clients.
// Both TCP and WebSocket implementations satisfy this interface.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	// Send delivers one line of text. The first line sent becomes the name.
	Send(text string) error
	// Lines yields every line the relay sends, without the trailing newline.
	// It is closed once the connection ends.
	Lines() <-chan string
}

// Run drives an interactive session: it sends name (or, when name is empty,
// the first line of in), then forwards every further line of in and prints
// every received line to out. It returns when in is exhausted, the user types
// ExitCommand, ctx is done, or the server closes the connection.
func Run(ctx context.Context, c Client, name string, in io.Reader, out io.Writer, logger *zerolog.Logger) error {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	input := make(chan string)
	inputErr := make(chan error, 1)
	go func() {
		defer close(input)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case input <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		inputErr <- scanner.Err()
	}()

	if name != "" {
		if err := c.Send(name); err != nil {
			return fmt.Errorf("send name: %w", err)
		}
	}

	lines := c.Lines()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				logger.Info().Msg("connection closed by server")
				return nil
			}
			fmt.Fprintln(out, line)
		case text, ok := <-input:
			if !ok {
				select {
				case err := <-inputErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			if text == ExitCommand {
				return nil
			}
			if err := c.Send(text); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

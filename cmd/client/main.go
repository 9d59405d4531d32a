package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omochice/toy-socket-relay/internal/client"
	"github.com/omochice/toy-socket-relay/internal/client/tcp"
	"github.com/omochice/toy-socket-relay/internal/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		serverAddr string
		name       string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:          "client",
		Short:        "Chat over the relay's TCP port",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := log.New(logLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := tcp.New(serverAddr, logger)
			if err := c.Connect(ctx); err != nil {
				return err
			}
			defer c.Disconnect()

			logger.Info().Str("server", serverAddr).Msg("connected")
			if name == "" {
				fmt.Println("Enter your name:")
			}
			fmt.Printf("Type your messages (or '%s' to quit):\n", client.ExitCommand)
			return client.Run(ctx, c, name, os.Stdin, os.Stdout, logger)
		},
	}

	cmd.Flags().StringVar(&serverAddr, "server", "localhost:8000", "relay TCP address")
	cmd.Flags().StringVar(&name, "name", "", "display name (prompted when empty)")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	return cmd
}

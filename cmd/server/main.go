package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omochice/toy-socket-relay/internal/app"
	"github.com/omochice/toy-socket-relay/internal/config"
	"github.com/omochice/toy-socket-relay/internal/log"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		flags      config.Config
	)

	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Relay chat lines between TCP and WebSocket clients",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(log.New("info"), configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.New(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().Str("tcp", cfg.TCPAddr).Str("ws", cfg.WSAddr).Msg("starting relay")
			if err := app.New(cfg, logger).Run(ctx); err != nil {
				logger.Fatal().Err(err).Msg("server exited with error")
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (created with defaults if missing)")
	cmd.Flags().StringVar(&flags.TCPAddr, "tcp-addr", "", "TCP listen address (default :8000)")
	cmd.Flags().StringVar(&flags.WSAddr, "ws-addr", "", "WebSocket listen address (default :8080)")
	cmd.Flags().StringVar(&flags.WSPath, "ws-path", "", "WebSocket upgrade path (default /)")
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	return cmd
}

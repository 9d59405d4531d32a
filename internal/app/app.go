// Package app wires the TCP and WebSocket acceptors to one shared hub.
package app

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/toy-socket-relay/internal/chat"
	"github.com/omochice/toy-socket-relay/internal/config"
	"github.com/omochice/toy-socket-relay/internal/transport/tcp"
	"github.com/omochice/toy-socket-relay/internal/transport/ws"
)

// App is the relay: one registry and hub serving both transports.
type App struct {
	hub *chat.Hub
	tcp *tcp.Server
	ws  *ws.Server
	log *zerolog.Logger
}

// New builds the relay from cfg. Nothing is bound until Listen or Run.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	hub := chat.NewHub(chat.NewRegistry(), logger)
	return &App{
		hub: hub,
		tcp: tcp.New(cfg.TCPAddr, hub, logger, tcp.WithReadBufferSize(cfg.ReadBufferSize)),
		ws: ws.New(cfg.WSAddr, hub, logger,
			ws.WithPath(cfg.WSPath),
			ws.WithReadHeaderTimeout(cfg.ReadHeaderTimeout),
			ws.WithReadLimit(cfg.MaxMessageSize),
		),
		log: logger,
	}
}

// Hub returns the hub shared by both transports.
func (a *App) Hub() *chat.Hub {
	return a.hub
}

// TCPAddr returns the bound TCP address, or "" before Listen.
func (a *App) TCPAddr() string {
	return a.tcp.Addr()
}

// WSAddr returns the bound WebSocket address, or "" before Listen.
func (a *App) WSAddr() string {
	return a.ws.Addr()
}

// Listen binds both listening sockets. If the second bind fails the first
// listener is released.
func (a *App) Listen() error {
	if err := a.tcp.Listen(); err != nil {
		return err
	}
	if err := a.ws.Listen(); err != nil {
		a.tcp.Stop()
		return err
	}
	return nil
}

// Serve runs both acceptors until ctx is done or one of them fails, then
// stops accepting and closes every client connection.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.tcp.Serve(gctx)
	})
	g.Go(func() error {
		return a.ws.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.tcp.Stop()
		a.ws.Stop()
		a.hub.Shutdown()
		a.log.Info().Msg("relay stopped")
		return nil
	})

	return g.Wait()
}

// Run binds both transports and serves until ctx is done. A bind failure is
// returned before anything is served.
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		return err
	}
	return a.Serve(ctx)
}

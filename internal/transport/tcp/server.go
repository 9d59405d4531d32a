package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/omochice/toy-socket-relay/internal/chat"
)

// Server accepts TCP connections and hands them to the Hub.
type Server struct {
	address  string
	bufSize  int
	hub      *chat.Hub
	log      *zerolog.Logger
	mu       sync.Mutex
	listener net.Listener
	quit     chan struct{}
	stopOnce sync.Once
}

// Option customizes a Server.
type Option func(*Server)

// WithReadBufferSize sets the per-read buffer size of accepted connections.
func WithReadBufferSize(n int) Option {
	return func(s *Server) {
		s.bufSize = n
	}
}

// New creates a TCP server that uses the provided Hub.
func New(address string, hub *chat.Hub, logger *zerolog.Logger, opts ...Option) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Server{
		address: address,
		bufSize: DefaultReadBufferSize,
		hub:     hub,
		log:     logger,
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("TCP server started")
	return nil
}

// Serve accepts connections until Stop is called or ctx is done. Each
// connection is registered and serviced by its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return errors.New("tcp server: Serve called before Listen")
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.quit:
		}
	}()

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("tcp listener closed: %w", err)
			}

			backoff = nextBackoff(backoff)
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to accept TCP connection")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		client := s.hub.Accept(NewConn(conn, s.bufSize))
		go s.hub.HandleClient(ctx, client)
	}
}

// Start binds and serves; it blocks like Serve.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stop closes the listener. Established sessions are left running.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.listener != nil {
			s.listener.Close()
		}
	})
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func nextBackoff(d time.Duration) time.Duration {
	const maxBackoff = time.Second
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > maxBackoff {
		d = maxBackoff
	}
	return d
}

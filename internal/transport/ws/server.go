package ws

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"

	"github.com/omochice/toy-socket-relay/internal/chat"
)

// DefaultReadLimit is the largest inbound message accepted unless WithReadLimit says otherwise.
const DefaultReadLimit = 64 << 10

// Server handles WebSocket connections and delegates to Hub.
type Server struct {
	address           string
	path              string
	readHeaderTimeout time.Duration
	readLimit         int64
	hub               *chat.Hub
	log               *zerolog.Logger
	engine            *gin.Engine

	mu         sync.Mutex
	listener   net.Listener
	server     *http.Server
	sessionCtx context.Context
}

// Option customizes a Server.
type Option func(*Server)

// WithPath sets the upgrade path. Defaults to "/".
func WithPath(path string) Option {
	return func(s *Server) {
		s.path = path
	}
}

// WithReadHeaderTimeout bounds how long a client may take to send request headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readHeaderTimeout = d
	}
}

// WithReadLimit bounds the size of one inbound message on every upgraded
// connection. Zero disables the bound.
func WithReadLimit(n int64) Option {
	return func(s *Server) {
		s.readLimit = n
	}
}

// New creates a WebSocket server that uses the provided Hub.
func New(address string, hub *chat.Hub, logger *zerolog.Logger, opts ...Option) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &Server{
		address:           address,
		path:              "/",
		readHeaderTimeout: 5 * time.Second,
		readLimit:         DefaultReadLimit,
		hub:               hub,
		log:               logger,
		sessionCtx:        context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))

	r.GET("/health", healthHandler)
	r.GET("/clients", clientsHandler(s.hub.Registry()))
	r.Any(s.path, s.handleWebSocket)
	return r
}

// Handler returns the HTTP handler serving upgrades and the status routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen binds the listening socket.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: s.readHeaderTimeout,
	}
	s.mu.Unlock()

	s.log.Info().Str("addr", listener.Addr().String()).Str("path", s.path).Msg("WebSocket server started")
	return nil
}

// Serve answers HTTP requests until Stop is called or ctx is done. Sessions of
// upgraded connections inherit ctx.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener, server := s.listener, s.server
	s.sessionCtx = ctx
	s.mu.Unlock()
	if listener == nil {
		return errors.New("ws server: Serve called before Listen")
	}

	stop := context.AfterFunc(ctx, s.Stop)
	defer stop()

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve websocket: %w", err)
	}
	return nil
}

// Start binds and serves; it blocks like Serve.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Stop closes the listener. Upgraded connections are left running.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.mu.Unlock()
	if server != nil {
		server.Close()
	}
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

// IsUpgradeRequest reports whether r asks for a WebSocket upgrade.
func IsUpgradeRequest(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		httpguts.HeaderValuesContainsToken(r.Header["Connection"], "upgrade") &&
		httpguts.HeaderValuesContainsToken(r.Header["Upgrade"], "websocket")
}

func (s *Server) handleWebSocket(c *gin.Context) {
	if !IsUpgradeRequest(c.Request) {
		s.log.Debug().Str("method", c.Request.Method).Str("remote", c.Request.RemoteAddr).Msg("rejected non-upgrade request")
		c.String(http.StatusBadRequest, "websocket upgrade required\n")
		return
	}

	conn, rw, _, err := ws.UpgradeHTTP(c.Request, c.Writer)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", c.Request.RemoteAddr).Msg("failed to upgrade WebSocket connection")
		return
	}

	var br *bufio.Reader
	if rw != nil {
		br = rw.Reader
	}

	wsConn := NewConn(conn, br, c.Request.RemoteAddr)
	wsConn.SetReadLimit(s.readLimit)
	client := s.hub.Accept(wsConn)

	s.mu.Lock()
	ctx := s.sessionCtx
	s.mu.Unlock()
	go s.hub.HandleClient(ctx, client)
}

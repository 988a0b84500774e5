package httpserver

import (
	"crypto/tls"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/indigo-web/loop/transport"
)

// Handler is the user callback invoked once per request, after
// prepareRequest has validated and classified it. The response is built
// through Response's own methods before returning. A returned error (or a
// recovered panic) is logged, answered on a best-effort basis with the
// status the error maps to, and ends the connection.
type Handler func(req *Request, resp *Response) error

// RunState is the observable server state machine: Stopped, Running, and
// back to Stopped once every connection has drained, or Closed once
// torn down for good.
type RunState uint32

const (
	StateStopped RunState = iota
	StateRunning
	StateClosed
)

// Server owns one or more bound plaintext TCP listeners (TLS, when enabled,
// is negotiated per connection after accept) and dispatches every accepted
// connection to its own goroutine running connection.serve, per §4.4.
type Server struct {
	settings Settings
	handler  Handler
	logger   *slog.Logger
	certs    []tls.Certificate

	supervisor transport.Supervisor
	state      atomic.Uint32
}

// NewServer constructs a Server bound to no address yet; call Bind before
// Run.
func NewServer(handler Handler, opts ...Option) (*Server, error) {
	settings := New(opts...)

	s := &Server{
		settings:   settings,
		handler:    handler,
		logger:     slog.Default(),
		supervisor: transport.NewSupervisor(),
	}

	if settings.Secure && settings.AutoCert == nil {
		cert, err := tls.X509KeyPair(settings.CertPEM, settings.KeyPEM)
		if err != nil {
			return nil, err
		}

		s.certs = []tls.Certificate{cert}
	}

	return s, nil
}

// SetLogger overrides the default slog logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// State reports the server's current run state.
func (s *Server) State() RunState {
	return RunState(s.state.Load())
}

// Bind registers addr as a plaintext listener. TLS, when settings.Secure
// is set, is handled inside each connection's own handshake step rather
// than at the listener level, so every bound address uses plain
// transport.TCP regardless of Secure — see DESIGN.md for the reasoning.
func (s *Server) Bind(addr string) error {
	return s.supervisor.Add(addr, transport.NewTCP(), s.onAccept)
}

func (s *Server) onAccept(conn net.Conn) {
	if n := s.settings.MaxConnections; n > 0 {
		// TODO: enforce admission control here once a connection counter
		// is wired; for now MaxConnections is advisory only.
		_ = n
	}

	c := newConnection(s, conn)
	c.serve()
}

// Run blocks, accepting connections on every bound address until Stop is
// called or a listener fails.
func (s *Server) Run() error {
	s.state.Store(uint32(StateRunning))
	// Closed, once stored by Stop, is terminal: only Running falls back to Stopped.
	defer s.state.CompareAndSwap(uint32(StateRunning), uint32(StateStopped))

	netCfg := s.settings.Config.NET
	netCfg.Backlog = s.settings.BacklogSize

	return s.supervisor.Run(netCfg)
}

// Stop signals every bound listener to stop accepting new connections and
// waits for in-flight connections to drain.
func (s *Server) Stop() {
	s.supervisor.Stop()
	s.state.Store(uint32(StateClosed))
}

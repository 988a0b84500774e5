// Package httpserver implements the HTTP/1.1 server state machine: a
// per-connection goroutine that parses a request under a headers-size and
// timeout bound, resolves its body framing from Content-Length /
// Transfer-Encoding / Expect, hands it to a user callback, and emits
// either a fixed-length or chunked response while honoring keep-alive.
//
// Grounded on httpserver/httpserver.go and http/server/tcpserver.go for
// the accept-loop/connection-goroutine shape, generalized from their
// channel-driven notifier loop into the goroutine-per-connection loop the
// rest of this module already uses (stream.Reader/Writer are themselves
// blocking calls on the connection's own goroutine).
package httpserver

import (
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/indigo-web/loop/config"
	tlsstream "github.com/indigo-web/loop/stream/tls"
)

const (
	DefaultMaxHeadersSize     = 16 * 1024
	DefaultMaxRequestBodySize = 512 * 1024 * 1024
	DefaultHeadersTimeout     = 30 * time.Second
	DefaultBacklogSize        = 1024
)

// Settings holds every server construction option enumerated for the
// accept loop and per-connection state machine. Zero-value Settings is
// filled in by Default() before a Server is constructed.
type Settings struct {
	Secure              bool
	NoExpectHandler     bool
	MaxConnections      int
	HeadersTimeout      time.Duration
	MaxHeadersSize      int
	MaxRequestBodySize  uint64
	BacklogSize         int
	ServerURI           string

	TLS       tlsstream.Options
	CertPEM   []byte
	KeyPEM    []byte

	// AutoCert, when set, sources certificates from an ACME provider
	// (Let's Encrypt by default) instead of CertPEM/KeyPEM.
	AutoCert *autocert.Manager

	Config *config.Config
}

// Option mutates Settings in place, the way webserver/settings.go's
// struct fields are set directly by its caller, generalized into the
// functional-options form the rest of this module's construction sites
// (config.Default, tlsstream.Options) already favor.
type Option func(*Settings)

// Default returns Settings with every option at its documented default.
// maxConnections defaults to -1 (unlimited), matching §6's enumeration.
func Default() Settings {
	return Settings{
		MaxConnections:     -1,
		HeadersTimeout:     DefaultHeadersTimeout,
		MaxHeadersSize:     DefaultMaxHeadersSize,
		MaxRequestBodySize: DefaultMaxRequestBodySize,
		BacklogSize:        DefaultBacklogSize,
		TLS:                tlsstream.DefaultOptions(),
		Config:             config.Default(),
	}
}

func WithSecure(certPEM, keyPEM []byte) Option {
	return func(s *Settings) {
		s.Secure = true
		s.CertPEM = certPEM
		s.KeyPEM = keyPEM
	}
}

func WithTLSOptions(opts tlsstream.Options) Option {
	return func(s *Settings) { s.TLS = opts }
}

// WithAutoCert turns on Secure and provisions certificates on demand from
// Let's Encrypt via ACME, caching issued certificates under cacheDir. If
// domains is non-empty, only those hosts are allowed to trigger issuance.
func WithAutoCert(cacheDir string, domains ...string) Option {
	return func(s *Settings) {
		s.Secure = true
		m := &autocert.Manager{
			Prompt: autocert.AcceptTOS,
			Cache:  autocert.DirCache(cacheDir),
		}

		if len(domains) > 0 {
			m.HostPolicy = autocert.HostWhitelist(domains...)
		}

		s.AutoCert = m
	}
}

func WithNoExpectHandler() Option {
	return func(s *Settings) { s.NoExpectHandler = true }
}

// WithMaxConnections sets the admission bound; -1 means unlimited.
//
// TODO: actually enforce this at the accept loop. Per the source, the
// connection-semaphore path was planned but never wired; we preserve
// that ambiguity rather than guess at the missing policy (max backlog
// vs. reject-on-accept vs. defer-accept).
func WithMaxConnections(n int) Option {
	return func(s *Settings) { s.MaxConnections = n }
}

func WithHeadersTimeout(d time.Duration) Option {
	return func(s *Settings) { s.HeadersTimeout = d }
}

func WithMaxHeadersSize(n int) Option {
	return func(s *Settings) { s.MaxHeadersSize = n }
}

func WithMaxRequestBodySize(n uint64) Option {
	return func(s *Settings) { s.MaxRequestBodySize = n }
}

func WithBacklogSize(n int) Option {
	return func(s *Settings) { s.BacklogSize = n }
}

func WithServerURI(uri string) Option {
	return func(s *Settings) { s.ServerURI = uri }
}

func WithConfig(cfg *config.Config) Option {
	return func(s *Settings) { s.Config = cfg }
}

func New(opts ...Option) Settings {
	s := Default()
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

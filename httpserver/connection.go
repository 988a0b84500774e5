package httpserver

import (
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/dchest/uniuri"

	"github.com/indigo-web/loop/http/cookie"
	"github.com/indigo-web/loop/http/method"
	"github.com/indigo-web/loop/http/mime"
	"github.com/indigo-web/loop/http/status"
	"github.com/indigo-web/loop/internal/strutil"
	"github.com/indigo-web/loop/stream"
	tlsstream "github.com/indigo-web/loop/stream/tls"
)

// connection realizes §3's "HTTP connection" owner type as a single
// goroutine looping over one socket: ordinary Reader/Writer calls below
// are blocking calls on this goroutine, which is exactly the suspension
// point the spec's cooperative-dispatcher design describes, generalized
// to Go's native goroutine-per-connection scheduling.
type connection struct {
	id      string
	server  *Server
	rawConn net.Conn

	reader stream.Reader
	writer stream.Writer

	keepAlive bool
}

func newConnection(srv *Server, rawConn net.Conn) *connection {
	return &connection{id: uniuri.New(), server: srv, rawConn: rawConn}
}

// serve drives the per-connection loop of §4.4: optional TLS handshake,
// then getRequest/prepareRequest/dispatch/dispose repeated until the
// connection is no longer keep-alive or a disconnect/critical error ends
// it.
func (c *connection) serve() {
	defer func() {
		_ = c.rawConn.Close()
	}()

	if c.server.settings.Secure {
		if err := c.handshake(); err != nil {
			c.server.logger.Warn("tls handshake failed", "conn", c.id, "remote", c.rawConn.RemoteAddr(), "error", err)
			return
		}
	} else {
		bufSize := c.server.settings.Config.NET.ReadBufferSize
		c.reader = stream.NewBufferedReader(c.rawConn, bufSize)
		c.writer = stream.NewSerializedWriter(c.rawConn)
	}

	req := newRequest(c)

	for {
		req.reset()

		if err := c.getRequest(req); err != nil {
			if !isDisconnect(err) {
				c.sendErrorBestEffort(req, err)
			}

			return
		}

		if err := c.prepareRequest(req); err != nil {
			c.sendErrorBestEffort(req, err)
			return
		}

		resp := newResponse(req)

		if err := c.dispatch(req, resp); err != nil {
			c.server.logger.Error("handler panic recovered", "conn", c.id, "error", err)
			c.sendErrorBestEffort(req, err)
			return
		}

		if err := c.dispose(req, resp); err != nil {
			return
		}

		if !resp.Has(FlagKeepAlive) {
			return
		}

		if req.body != nil && !req.body.AtBound() {
			_ = req.body.Consume()
		}
	}
}

// handshake performs the TLS record-layer handshake via stream/tls.Duplex,
// replacing c.reader/c.writer with the duplex's coroutine pair once
// complete. No shared runtime.Dispatcher is needed here: the handshake
// runs synchronously on this connection's own goroutine, and the future
// it returns is already terminal by the time Handshake returns, so a nil
// dispatcher is safe (its ready FIFO is only consulted when a callback
// was registered, and none ever is).
func (c *connection) handshake() error {
	var tlsConfig *tls.Config
	if m := c.server.settings.AutoCert; m != nil {
		tlsConfig = tlsstream.BuildConfigAutocert(c.server.settings.TLS, m.GetCertificate)
	} else {
		tlsConfig = tlsstream.BuildConfig(c.server.settings.TLS, c.server.certs)
	}

	tlsConn := tls.Server(c.rawConn, tlsConfig)

	duplex := tlsstream.NewDuplex(tlsConn)
	fut := duplex.Handshake(nil)

	if _, err := fut.Read(); err != nil {
		return err
	}

	c.rawConn = tlsConn
	bufSize := c.server.settings.Config.NET.ReadBufferSize
	c.reader = duplex.Reader(bufSize)
	c.writer = stream.NewSerializedWriter(duplex.Writer())

	return nil
}

// prepareRequest implements §4.4 step 2's validation and flag
// computation.
func (c *connection) prepareRequest(req *Request) error {
	if req.Method == method.Unknown {
		return ErrMalformedRequest
	}

	if req.Proto != httpProto10 && req.Proto != httpProto11 {
		return ErrUnsupportedVersion
	}

	if len(req.Path) == 0 {
		return ErrMalformedRequest
	}

	if countHeader(req, "content-type") > 1 || countHeader(req, "content-length") > 1 ||
		countHeader(req, "transfer-encoding") > 1 {
		return ErrMalformedRequest
	}

	contentLengthRaw, hasContentLength := req.Headers.Get("Content-Length")
	transferEncodingRaw := req.Headers.Value("Transfer-Encoding")

	if hasContentLength && len(transferEncodingRaw) > 0 {
		return ErrMalformedRequest
	}

	if hasContentLength {
		n, err := strconv.ParseInt(contentLengthRaw, 10, 64)
		if err != nil || n < 0 {
			return ErrMalformedRequest
		}

		if uint64(n) > c.server.settings.MaxRequestBodySize {
			return status.ErrBodyTooLarge
		}

		req.ContentLength = n
	}

	if req.Method == method.TRACE && (req.ContentLength > 0 || len(transferEncodingRaw) > 0) {
		return ErrMalformedRequest
	}

	if err := parseEncodingTokens(transferEncodingRaw, &req.Encoding.Transfer.Tokens); err != nil {
		return err
	}

	req.Encoding.Chunked = containsToken(req.Encoding.Transfer.Tokens, "chunked")

	contentEncodingRaw := req.Headers.Value("Content-Encoding")
	if err := parseEncodingTokens(contentEncodingRaw, &req.Encoding.Content.Tokens); err != nil {
		return err
	}

	switch {
	case req.ContentLength > 0:
		req.Flags |= FlagBoundBody
	case req.Encoding.Chunked:
		req.Flags |= FlagUnboundBody
	}

	contentTypeValue, _ := strutil.CutHeader(req.Headers.Value("Content-Type"))
	switch contentTypeValue {
	case mime.FormUrlencoded:
		req.Flags |= FlagUrlencodedForm
	case mime.Multipart:
		req.Flags |= FlagMultipartForm
	}

	if isClientExpect(req.Headers.Value("Expect")) {
		req.Flags |= FlagClientExpect
	}

	if raw := req.Headers.Value("Cookie"); len(raw) > 0 {
		if err := cookie.Parse(req.Cookies, raw); err != nil {
			return ErrMalformedRequest
		}
	}

	return nil
}

var validEncodingTokens = map[string]struct{}{
	"identity": {}, "chunked": {}, "compress": {}, "deflate": {}, "gzip": {}, "br": {},
}

func parseEncodingTokens(raw string, into *[]string) error {
	if len(raw) == 0 {
		return nil
	}

	for _, tok := range strings.Split(raw, ",") {
		tok = strutil.LStripWS(strutil.RStripWS(tok))
		if len(tok) == 0 {
			continue
		}

		lowered := []byte(tok)
		strutil.ToLowercase(lowered)
		tok = string(lowered)

		if _, ok := validEncodingTokens[tok]; !ok {
			return ErrMalformedRequest
		}

		*into = append(*into, tok)
	}

	return nil
}

func containsToken(tokens []string, want string) bool {
	for _, tok := range tokens {
		if tok == want {
			return true
		}
	}

	return false
}

func isClientExpect(expectHeader string) bool {
	return strutil.CmpFold(strutil.LStripWS(strutil.RStripWS(expectHeader)), "100-continue")
}

func countHeader(req *Request, name string) int {
	return len(req.Headers.Values(name))
}

// dispatch invokes the user callback, recovering a panic into a defect
// error rather than letting it escape this goroutine silently — per §7,
// defects are not supposed to be caught by the loop, but an unrecovered
// panic on a per-connection goroutine would otherwise crash the whole
// process rather than just this connection.
func (c *connection) dispatch(req *Request, resp *Response) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errFromPanic(r)
		}
	}()

	return c.server.handler(req, resp)
}

func errFromPanic(r any) error {
	if e, ok := r.(error); ok {
		return e
	}

	return errors.New("handler panicked")
}

// dispose implements §4.4 step 4's disposal rules: a handler that never
// touched resp gets a 404 written on its behalf; a handler that called
// Prepare but never wrote or finished a chunk left nothing on the wire
// (Prepare defers the header flush) and gets a 409 instead; a response
// that's already Sending has headers and at least one chunk on the wire,
// so it's closed with a terminating empty chunk rather than restarted.
func (c *connection) dispose(req *Request, resp *Response) error {
	switch resp.State() {
	case Empty:
		resp.SetKeepAlive(false)
		return resp.SendError(status.NotFound, []byte(status.Text(status.NotFound)))
	case Prepared:
		resp.SetKeepAlive(false)
		return resp.forceError(status.Conflict, []byte(status.Text(status.Conflict)))
	case Sending:
		return resp.Finish()
	case Finished:
		return nil
	case Failed, Cancelled:
		return errors.New("response failed mid-send")
	default:
		return nil
	}
}

// sendErrorBestEffort emits one mapped error response, per §7's
// propagation policy: write failures during the error path are
// swallowed, never compounding the original error.
func (c *connection) sendErrorBestEffort(req *Request, cause error) error {
	code := statusFor(cause)
	resp := newResponse(req)
	resp.SetKeepAlive(false)
	_ = resp.SendError(code, []byte(status.Text(code)))

	return cause
}

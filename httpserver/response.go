package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/http/httpguts"

	"github.com/indigo-web/loop/http/headers"
	"github.com/indigo-web/loop/http/status"
	"github.com/indigo-web/loop/internal/strutil"
	"github.com/indigo-web/loop/internal/timer"
	"github.com/indigo-web/loop/stream/chunked"
)

// State is the response state machine per §3: it advances monotonically
// except Sending→Sending, which is permitted for repeated chunk writes.
type State uint8

const (
	Empty State = iota
	Prepared
	Sending
	Finished
	Failed
	Cancelled
	Dumb
)

// ResponseFlag mirrors the two response-level traits named in §3.
type ResponseFlag uint8

const (
	FlagKeepAlive ResponseFlag = 1 << iota
	FlagChunked
)

var (
	// ErrNotEmpty is returned by SendBody/SendError/Prepare when the
	// response has already left the Empty state.
	ErrNotEmpty = errors.New("response is not empty")
	// ErrNotSendable is returned by SendChunk when the response is
	// neither Prepared nor Sending.
	ErrNotSendable = errors.New("response is not ready to send chunks")
)

var hopByHopSkip = map[string]struct{}{
	"date":           {},
	"content-type":   {},
	"content-length": {},
}

const defaultContentType = "text/html; charset=utf-8"

// Response is built fresh per request by the user callback and disposed
// of by the connection loop per §4.4 step 4.
type Response struct {
	Code    status.Code
	Proto   Proto
	Headers headers.Headers

	flags ResponseFlag
	state State

	chunkedWriter *chunked.Writer
	conn          *connection
}

func newResponse(req *Request) *Response {
	r := &Response{
		Code:    status.OK,
		Proto:   req.Proto,
		Headers: headers.New(),
		conn:    req.conn,
	}

	// Per-connection default: HTTP/1.1 stays open unless the response says
	// otherwise; HTTP/1.0 closes unless the client explicitly opted into
	// keep-alive.
	if req.Proto == httpProto11 || isKeepAliveRequested(req.Headers.Value("Connection")) {
		r.flags |= FlagKeepAlive
	}

	return r
}

func isKeepAliveRequested(connectionHeader string) bool {
	return strutil.CmpFold(strutil.LStripWS(strutil.RStripWS(connectionHeader)), "keep-alive")
}

func (r *Response) State() State {
	return r.state
}

func (r *Response) Has(flag ResponseFlag) bool {
	return r.flags&flag != 0
}

// SetKeepAlive overrides the default keep-alive decision, e.g. a
// handler explicitly closing the connection after an HTTP/1.1 response.
func (r *Response) SetKeepAlive(v bool) {
	if v {
		r.flags |= FlagKeepAlive
	} else {
		r.flags &^= FlagKeepAlive
	}
}

func (r *Response) SetStatus(code status.Code) *Response {
	r.Code = code
	return r
}

// SetHeader is a no-op if name isn't a valid HTTP field-name (e.g. it
// contains whitespace or control characters), guarding against header
// injection via user-controlled values reaching the wire.
func (r *Response) SetHeader(name, value string) *Response {
	if !httpguts.ValidHeaderFieldName(name) {
		return r
	}

	r.Headers.Set(name, value)
	return r
}

func (r *Response) AddHeader(name, value string) *Response {
	if !httpguts.ValidHeaderFieldName(name) {
		return r
	}

	r.Headers.Add(name, value)
	return r
}

// SendBody implements §4.4's fixed-length emission path.
func (r *Response) SendBody(data []byte) error {
	if r.state != Empty {
		return ErrNotEmpty
	}

	r.state = Prepared

	if err := r.writeHead(int64(len(data))); err != nil {
		r.state = Failed
		return err
	}

	r.state = Sending

	if len(data) > 0 {
		if _, err := r.conn.writer.Write(data); err != nil {
			r.state = Failed
			return err
		}
	}

	r.state = Finished
	return nil
}

// SendJSON marshals model via json-iterator and sends it as the response
// body with Content-Type set to application/json, unless the caller already
// set one.
func (r *Response) SendJSON(model any) error {
	data, err := jsoniter.ConfigDefault.Marshal(model)
	if err != nil {
		return err
	}

	if !r.Headers.Has("content-type") {
		r.Headers.Set("content-type", "application/json; charset=utf-8")
	}

	return r.SendBody(data)
}

// SendError is equivalent to SetStatus(code).SendBody(body), allowed
// only from Empty, per §4.4 step 4's error-response emission.
func (r *Response) SendError(code status.Code, body []byte) error {
	if r.state != Empty {
		return ErrNotEmpty
	}

	r.Code = code
	return r.SendBody(body)
}

// forceError is SendError for the disposal path only: it's reached from
// Prepared, where Prepare has set state and Transfer-Encoding but, since
// the header flush is deferred, nothing has actually reached the wire yet.
// It rewinds the bookkeeping Prepare did and sends a normal error response
// in its place.
func (r *Response) forceError(code status.Code, body []byte) error {
	r.flags &^= FlagChunked
	r.Headers.Delete("transfer-encoding")
	r.state = Empty

	return r.SendError(code, body)
}

// Prepare begins the chunked-transfer path. It only advances the state to
// Prepared; the headers and the chunked writer aren't put on the wire until
// the first SendChunk/Finish call, so a handler that calls Prepare and then
// returns without writing anything has sent nothing yet — disposal can
// still replace the response outright (see connection.dispose).
func (r *Response) Prepare() error {
	if r.state != Empty {
		return ErrNotEmpty
	}

	r.flags |= FlagChunked
	r.Headers.Set("transfer-encoding", "chunked")
	r.state = Prepared
	return nil
}

// flushChunkedHead emits the chunked-transfer headers and allocates the
// chunked writer, once, on the first write after Prepare.
func (r *Response) flushChunkedHead() error {
	if r.chunkedWriter != nil {
		return nil
	}

	if err := r.writeHead(-1); err != nil {
		r.state = Failed
		return err
	}

	r.chunkedWriter = chunked.NewWriter(r.conn.writer)
	return nil
}

// SendChunk writes one chunk; it requires Prepared or Sending.
func (r *Response) SendChunk(data []byte) error {
	if r.state != Prepared && r.state != Sending {
		return ErrNotSendable
	}

	if err := r.flushChunkedHead(); err != nil {
		return err
	}

	if _, err := r.chunkedWriter.Write(data); err != nil {
		r.state = Failed
		return err
	}

	r.state = Sending
	return nil
}

// Finish emits the terminating zero chunk. Called from Prepared (an
// explicitly empty chunked body), it flushes the deferred headers first.
func (r *Response) Finish() error {
	if r.state != Prepared && r.state != Sending {
		return ErrNotSendable
	}

	if err := r.flushChunkedHead(); err != nil {
		return err
	}

	if err := r.chunkedWriter.Finish(); err != nil {
		r.state = Failed
		return err
	}

	r.state = Finished
	return nil
}

// writeHead composes and writes the status line and header block. n<0
// means "no Content-Length" (the chunked path); n==0 omits
// Content-Length per §4.4's "iff n>0" rule; n>0 emits it.
func (r *Response) writeHead(n int64) error {
	statusLine := fmt.Sprintf("%s%d %s\r\n", r.Proto.String(), r.Code, status.Text(r.Code))
	if _, err := r.conn.writer.Write([]byte(statusLine)); err != nil {
		return err
	}

	if err := r.writeHeaderLine("Date", timer.Now().UTC().Format(http.TimeFormat)); err != nil {
		return err
	}

	contentType := r.Headers.ValueOr("content-type", defaultContentType)
	if err := r.writeHeaderLine("Content-Type", contentType); err != nil {
		return err
	}

	if n > 0 {
		if err := r.writeHeaderLine("Content-Length", strconv.FormatInt(n, 10)); err != nil {
			return err
		}
	}

	connectionValue := "close"
	if r.Has(FlagKeepAlive) {
		connectionValue = "keep-alive"
	}

	if !r.Headers.Has("connection") {
		if err := r.writeHeaderLine("Connection", connectionValue); err != nil {
			return err
		}
	}

	for name, value := range r.Headers.Iter() {
		if _, skip := hopByHopSkip[lower(name)]; skip {
			continue
		}

		if err := r.writeHeaderLine(name, value); err != nil {
			return err
		}
	}

	_, err := r.conn.writer.Write([]byte("\r\n"))
	return err
}

func (r *Response) writeHeaderLine(name, value string) error {
	line := headers.Canonical(name) + ": " + value + "\r\n"
	_, err := r.conn.writer.Write([]byte(line))
	return err
}

func lower(s string) string {
	buf := []byte(s)
	strutil.ToLowercase(buf)
	return string(buf)
}

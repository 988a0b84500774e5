package httpserver

import (
	"context"

	"github.com/indigo-web/loop/ctx"
	"github.com/indigo-web/loop/http/cookie"
	"github.com/indigo-web/loop/http/headers"
	"github.com/indigo-web/loop/http/method"
	"github.com/indigo-web/loop/http/proto"
	"github.com/indigo-web/loop/http/query"
	"github.com/indigo-web/loop/kv"
	"github.com/indigo-web/loop/stream"
)

// requestCtxKey is the single key this package ever stores on a request's
// context, letting a handler recover the *Request that produced a
// context.Context it was handed.
type requestCtxKey struct{}

// Flag is a request trait bit, computed once during prepareRequest (§4.4
// step 2) and never modified afterward.
type Flag uint8

const (
	// FlagBoundBody is set iff Content-Length > 0.
	FlagBoundBody Flag = 1 << iota
	// FlagUnboundBody is set iff Transfer-Encoding contains "chunked".
	FlagUnboundBody
	// FlagMultipartForm is set when Content-Type starts with multipart/form-data.
	FlagMultipartForm
	// FlagUrlencodedForm is set when Content-Type starts with application/x-www-form-urlencoded.
	FlagUrlencodedForm
	// FlagClientExpect is set when Expect: 100-continue was sent.
	FlagClientExpect
)

func (f Flag) Has(bit Flag) bool {
	return f&bit != 0
}

// Request is immutable after prepareRequest returns. The POST table is
// the one lazily-computed, memoized exception, per §3.
type Request struct {
	Method Method
	Proto  Proto
	Path   string
	Query  *query.Query
	Headers headers.Headers
	Cookies cookie.Jar

	Encoding      headers.Encoding
	ContentLength int64

	Flags Flag

	conn *connection
	body *stream.Body

	postParsed bool
	post       kv.Storage
	postErr    error

	rctx ctx.ReusableContext[requestCtxKey, *Request]
}

type Method = method.Method
type Proto = proto.Proto

const (
	httpProto10 = proto.HTTP10
	httpProto11 = proto.HTTP11
)

func newRequest(conn *connection) *Request {
	r := &Request{
		Headers: headers.NewPrealloc(conn.server.settings.Config.Headers.Number.Default),
		Cookies: cookie.NewJarPreAlloc(conn.server.settings.Config.Headers.CookiesPrealloc),
		Query:   query.NewQuery(kv.New()),
		conn:    conn,
		rctx:    ctx.NewReusable[requestCtxKey, *Request](),
	}
	r.rctx.Set(context.Background(), requestCtxKey{}, r)

	return r
}

// reset clears a Request for reuse across keep-alive iterations on the
// same connection, the way the teacher's types.Request.Reset resets its
// parser-owned buffers between requests on one socket.
func (r *Request) reset() {
	r.Method = method.Unknown
	r.Proto = proto.Unknown
	r.Path = ""
	r.Headers.Clear()
	r.Cookies.Clear()
	r.Query.Set(nil)
	r.Encoding = headers.Encoding{}
	r.ContentLength = 0
	r.Flags = 0
	r.body = nil
	r.postParsed = false
	r.post = kv.Storage{}
	r.postErr = nil
	r.rctx.Set(context.Background(), requestCtxKey{}, r)
}

// Context returns a context.Context scoped to this request's current
// keep-alive iteration, reused in place across iterations rather than
// reallocated per request.
func (r *Request) Context() context.Context {
	return r.rctx
}

// Body returns the request's body reader, composing it lazily on first
// access per §4.4's body acquisition rule (handleExpect fires on the
// first read, not on request preparation).
func (r *Request) Body() (*stream.Body, error) {
	if r.body != nil {
		return r.body, nil
	}

	body, err := r.conn.getBodyReader(r)
	if err != nil {
		return nil, err
	}

	r.body = body
	return body, nil
}

// Post returns the lazily-parsed POST table per §4.5: a flat multimap
// where urlencoded fields contribute (key, value) directly and multipart
// parts contribute (name, body-as-text). Only methods in {POST, PATCH,
// PUT, DELETE} may carry one; any other method returns an empty table
// with no error, and the result is memoized for the lifetime of the
// request.
func (r *Request) Post() (*kv.Storage, error) {
	if r.postParsed {
		return &r.post, r.postErr
	}

	r.postParsed = true
	post := kv.New()
	r.postErr = decodePost(r, post)
	r.post = *post

	return &r.post, r.postErr
}

package httpserver

import (
	"github.com/indigo-web/loop/stream"
	"github.com/indigo-web/loop/stream/chunked"
)

var continueLine = []byte("HTTP/1.1 100 Continue\r\n\r\n")

// maxChunkSize bounds a single chunk's declared size independent of the
// overall body bound, which limitGuard already enforces: this guards
// against one insane chunk-size header value alone exhausting memory.
const maxChunkSize = 16 * 1024 * 1024

// getBodyReader implements §4.4's body acquisition: a bounded reader for
// BoundBody, or a chunked reader over a maxRequestBodySize-bounded reader
// for UnboundBody. handleExpect fires first so the 100-continue line, if
// owed, always precedes the first body byte.
func (c *connection) getBodyReader(req *Request) (*stream.Body, error) {
	if err := c.handleExpect(req); err != nil {
		return nil, err
	}

	switch {
	case req.Flags.Has(FlagBoundBody):
		bounded := stream.NewBounded(c.reader, req.ContentLength)
		return stream.NewBody(bounded), nil
	case req.Flags.Has(FlagUnboundBody):
		maxSize := int64(c.server.settings.MaxRequestBodySize)
		bounded := stream.NewBounded(c.reader, maxSize)
		guard := &limitGuard{b: bounded}
		chunkedReader := chunked.NewReader(guard, maxChunkSize)
		return stream.NewChainedBody(chunkedReader, bounded), nil
	default:
		return stream.NewBody(stream.NewBounded(c.reader, 0)), nil
	}
}

// handleExpect emits the provisional 100 Continue response the first
// time a request carrying Expect: 100-continue has its body read, per
// §4.4's body acquisition rule. HTTP/1.0 clients never receive it.
func (c *connection) handleExpect(req *Request) error {
	if c.server.settings.NoExpectHandler {
		return nil
	}

	if !req.Flags.Has(FlagClientExpect) || req.Proto != httpProto11 {
		return nil
	}

	_, err := c.writer.Write(continueLine)
	return err
}

// limitGuard wraps a stream.Bounded and turns "the next read would
// exceed the bound" into stream.ErrLimitExceeded immediately, rather
// than letting the caller observe a silently short read: this is what
// lets a chunked body that outgrows maxRequestBodySize map to 413
// instead of being misread as a malformed chunk.
type limitGuard struct {
	b *stream.Bounded
}

func (g *limitGuard) Read(n int) ([]byte, error) {
	if int64(n) > g.b.Remaining() {
		return nil, stream.ErrLimitExceeded
	}

	return g.b.Read(n)
}

func (g *limitGuard) ReadOnce(buf []byte) (int, error) {
	if int64(len(buf)) > g.b.Remaining() {
		return 0, stream.ErrLimitExceeded
	}

	return g.b.ReadOnce(buf)
}

func (g *limitGuard) ReadUntil(maxN int, sep []byte) ([]byte, error) {
	if int64(maxN) > g.b.Remaining() {
		return nil, stream.ErrLimitExceeded
	}

	return g.b.ReadUntil(maxN, sep)
}

func (g *limitGuard) Consume() error {
	return g.b.Consume()
}

func (g *limitGuard) AtEOF() bool {
	return g.b.AtEOF()
}

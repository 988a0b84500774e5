package httpserver

import (
	"net"
	"strings"
	"time"

	"github.com/indigo-web/loop/http/method"
	"github.com/indigo-web/loop/http/proto"
	"github.com/indigo-web/loop/internal/strutil"
	"github.com/indigo-web/loop/internal/timer"
	"github.com/indigo-web/loop/stream"
	"github.com/indigo-web/utils/uf"
)

var crlfcrlf = []byte("\r\n\r\n")

// getRequest implements §4.4 step 1: read into a fixed maxHeadersSize
// buffer until the CRLFCRLF mark under a headersTimeout deadline, then
// parse the request-line and headers into req.
func (c *connection) getRequest(req *Request) error {
	deadline := timer.Now().Add(c.server.settings.HeadersTimeout)
	if err := c.rawConn.SetReadDeadline(deadline); err != nil {
		return err
	}

	raw, err := c.reader.ReadUntil(c.server.settings.MaxHeadersSize, crlfcrlf)
	if err != nil {
		return c.classifyHeadReadError(err)
	}

	if err := c.rawConn.SetReadDeadline(time.Time{}); err != nil {
		return err
	}

	return parseHead(raw, req)
}

func (c *connection) classifyHeadReadError(err error) error {
	switch err {
	case stream.ErrLimitExceeded:
		return ErrHeadersTooLarge
	case stream.ErrIncomplete:
		return ErrDisconnect
	}

	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return ErrHeadersTimeout
	}

	return ErrDisconnect
}

// parseHead splits raw (request-line + header lines + terminating blank
// line, all CRLF-delimited) and fills req. It never reads further from
// the connection; prepareRequest does the semantic validation afterward.
func parseHead(raw []byte, req *Request) error {
	text := uf.B2S(raw)

	line, rest, ok := cutLine(text)
	if !ok {
		return ErrMalformedRequest
	}

	if err := parseRequestLine(line, req); err != nil {
		return err
	}

	for {
		line, rest, ok = cutLine(rest)
		if !ok {
			return ErrMalformedRequest
		}

		if len(line) == 0 {
			return nil
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return ErrMalformedRequest
		}

		name = strutil.RStripWS(name)
		if len(name) == 0 {
			return ErrMalformedRequest
		}

		value = strutil.LStripWS(strutil.RStripWS(value))
		req.Headers.Add(name, value)
	}
}

// cutLine splits text at the first CRLF, returning ok=false if none is
// present (which parseHead treats as malformed, since ReadUntil already
// guaranteed the overall block ends in CRLFCRLF).
func cutLine(text string) (line, rest string, ok bool) {
	idx := strings.Index(text, "\r\n")
	if idx == -1 {
		return "", "", false
	}

	return text[:idx], text[idx+2:], true
}

func parseRequestLine(line string, req *Request) error {
	methodTok, rest, ok := strings.Cut(line, " ")
	if !ok {
		return ErrMalformedRequest
	}

	target, protoTok, ok := strings.Cut(rest, " ")
	if !ok {
		return ErrMalformedRequest
	}

	req.Method = method.Parse(methodTok)
	if req.Method == method.Unknown {
		return ErrMalformedRequest
	}

	req.Proto = proto.FromBytes(uf.S2B(protoTok))
	if req.Proto == proto.Unknown {
		return ErrUnsupportedVersion
	}

	if len(target) == 0 {
		return ErrMalformedRequest
	}

	path, query, _ := strings.Cut(target, "?")
	if len(path) == 0 {
		return ErrMalformedRequest
	}

	req.Path = path
	req.Query.Set(uf.S2B(query))

	return nil
}

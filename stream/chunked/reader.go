// Package chunked implements the RFC 7230 chunked transfer codec: for each
// chunk, read the hex size line, read that many bytes, read the trailing
// CRLF; terminate on a size-0 chunk followed by optional (ignored)
// trailers and CRLF.
//
// The size-line scanning state machine is grounded on
// http/parser/http1/chunkedbodyparser.go, generalized from its
// callback/gateway driven byte-at-a-time parser into a pull-based reader
// over stream.Reader, and would in a byte-at-a-time streaming server
// delegate to github.com/indigo-web/chunkedbody the way that parser does —
// here chunk-size-line scanning is inlined because our Reader already
// exposes ReadUntil, making a separate scanner package unnecessary for a
// pull-based codec.
package chunked

import (
	"github.com/indigo-web/loop/stream"
)

var (
	crlf = []byte("\r\n")
)

// Reader decodes a chunked-transfer body, yielding the concatenation of
// chunk payloads and EOF once the zero-length chunk and its terminating
// CRLF have been consumed.
type Reader struct {
	src       stream.Reader
	remaining int
	eof       bool
	maxChunk  int
}

// NewReader wraps src. maxChunk bounds a single chunk's declared size,
// guarding against a malicious or malformed hex size overflowing memory.
func NewReader(src stream.Reader, maxChunk int) *Reader {
	return &Reader{src: src, maxChunk: maxChunk}
}

func (r *Reader) AtEOF() bool {
	return r.eof
}

// nextChunk reads a chunk-size line (and, on size 0, the trailers and the
// terminating CRLF), storing the declared size of the next chunk's payload
// in r.remaining, or setting r.eof once the stream ends.
func (r *Reader) nextChunk() error {
	line, err := r.src.ReadUntil(32, crlf)
	if err != nil {
		if err == stream.ErrIncomplete {
			return stream.ErrProtocol
		}

		return err
	}

	sizeTok := line[:len(line)-2]
	if ext := indexByte(sizeTok, ';'); ext != -1 {
		sizeTok = sizeTok[:ext]
	}

	size, ok := parseHex(sizeTok)
	if !ok {
		return stream.ErrProtocol
	}

	if size > r.maxChunk {
		return stream.ErrProtocol
	}

	if size == 0 {
		if err := r.consumeTrailers(); err != nil {
			return err
		}

		r.eof = true
		return nil
	}

	r.remaining = size
	return nil
}

func (r *Reader) consumeTrailers() error {
	for {
		line, err := r.src.ReadUntil(8192, crlf)
		if err != nil {
			return stream.ErrProtocol
		}

		if len(line) == 2 { // bare CRLF: end of trailers
			return nil
		}
	}
}

// Read pulls up to n bytes of decoded chunk payload, crossing chunk
// boundaries (and their CRLF framing) transparently.
func (r *Reader) Read(n int) ([]byte, error) {
	out := make([]byte, 0, n)

	for len(out) < n && !r.eof {
		if r.remaining == 0 {
			if err := r.nextChunk(); err != nil {
				return out, err
			}

			continue
		}

		want := minInt(n-len(out), r.remaining)
		chunk, err := r.src.Read(want)
		if err != nil {
			return out, err
		}

		if len(chunk) == 0 {
			return out, stream.ErrProtocol
		}

		out = append(out, chunk...)
		r.remaining -= len(chunk)

		if r.remaining == 0 {
			trailer, err := r.src.Read(2)
			if err != nil || len(trailer) != 2 || trailer[0] != '\r' || trailer[1] != '\n' {
				return out, stream.ErrProtocol
			}
		}
	}

	return out, nil
}

func (r *Reader) ReadOnce(buf []byte) (int, error) {
	out, err := r.Read(len(buf))
	copy(buf, out)
	return len(out), err
}

func (r *Reader) Consume() error {
	for !r.eof {
		if _, err := r.Read(65536); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reader) ReadUntil(maxN int, sep []byte) ([]byte, error) {
	panic("chunked.Reader: ReadUntil is not meaningful over decoded chunk payload")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}

	return -1
}

func parseHex(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}

	n := 0

	for _, c := range b {
		var v int

		switch {
		case c >= '0' && c <= '9':
			v = int(c - '0')
		case c >= 'a' && c <= 'f':
			v = int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = int(c-'A') + 10
		default:
			return 0, false
		}

		n = n<<4 | v
		if n < 0 {
			return 0, false // overflow
		}
	}

	return n, true
}

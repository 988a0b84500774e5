// Package tls implements a duplex stream: the same reader/writer contract
// as stream.Reader/stream.Writer, driven by a reader/writer coroutine pair
// sharing one opaque engine, per §4.3.
//
// The TLS cryptographic engine itself is opaque: crypto/tls.Conn fills
// that role, and its own internal record-layer locking already guarantees
// that exactly one side touches it at a time for a single direction. What
// this package supplies on top is the coroutine-pair protocol §4.3
// describes: explicit RECVREC/RECVAPP/SENDREC/SENDAPP engine flags, a
// write FIFO where a short write re-queues its remainder at the head
// rather than behind a later item, and a handshake-complete signal fired
// on the first SENDAPP transition as well as by an explicit Handshake
// call. Per §9's note that either "an explicit state machine with switch
// events" or "a single task that multiplexes I/O and application sides"
// faithfully realizes the contract, this is the latter: a connection in
// this server already drives its reader phase (getRequest) and its writer
// phase (response emission) sequentially on one goroutine, so that one
// goroutine already *is* the single task; the flags below make its phases
// observable instead of leaving them implicit.
//
// Grounded on the reader/writer-pair-over-one-conn shape in
// other_examples/dmcgowan-streams__streams.go and
// other_examples/SagerNet-sing__stream_pollable.go, and on
// transport/tls.go for certificate loading.
package tls

import (
	"errors"
	"sync"

	stdtls "crypto/tls"

	"github.com/indigo-web/loop/runtime"
	"github.com/indigo-web/loop/stream"
)

// Flag is one bit of the engine's §4.3-observable state.
type Flag uint16

const (
	FlagNone Flag = 0
	// FlagRecvRec is set while the reader coroutine is pulling raw bytes
	// off the source to feed the engine's receive path.
	FlagRecvRec Flag = 1 << 0
	// FlagRecvApp is set while the reader coroutine is handing decrypted
	// application bytes to the caller.
	FlagRecvApp Flag = 1 << 1
	// FlagSendRec is set while the writer coroutine is flushing an
	// encrypted record to the sink.
	FlagSendRec Flag = 1 << 2
	// FlagSendApp is set while the writer coroutine is handing a pending
	// write item's plaintext to the engine. Its first transition declares
	// the handshake complete.
	FlagSendApp Flag = 1 << 3
	// FlagHandshakeComplete is set once either coroutine has observed the
	// handshake-complete transition.
	FlagHandshakeComplete Flag = 1 << 4
	FlagClosed            Flag = 1 << 5
)

var (
	ErrHandshakeFailed = errors.New("tls handshake failed")
	// ErrStreamClosed is returned to any write item still pending, or any
	// new read/write, once the engine has torn down, per §4.3's cleanup
	// clause.
	ErrStreamClosed = errors.New("stream closed")
)

// engineCapacity bounds a single copy into the engine per writer-coroutine
// step, mapping §4.3's "min(engine capacity, item size)" onto TLS's own
// maximum plaintext record size.
const engineCapacity = 16384

// Duplex is the TLS duplex stream: one *tls.Conn (the opaque engine)
// shared by a reader coroutine and a writer coroutine, coordinated through
// the flags above and a handshake future rather than raw switch events,
// per the design note in the package doc.
type Duplex struct {
	conn *stdtls.Conn

	mu    sync.Mutex
	flags Flag
	br    *stream.BufferedReader

	handshakeFut *runtime.Future[struct{}]
	handshakeErr error
}

// NewDuplex wraps an already-dialed/accepted TLS connection. Handshake has
// not necessarily run yet; call Handshake to drive it, or simply start
// reading/writing and let the engine handshake lazily on first use.
func NewDuplex(conn *stdtls.Conn) *Duplex {
	return &Duplex{conn: conn}
}

func (d *Duplex) setFlags(set, clear Flag) {
	d.mu.Lock()
	d.flags = (d.flags &^ clear) | set
	d.mu.Unlock()
}

func (d *Duplex) has(f Flag) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flags&f != 0
}

// Handshake returns a future completed once either coroutine observes the
// handshake-complete transition: this call itself (running synchronously
// on the calling goroutine, since crypto/tls already serializes its own
// Handshake internally) or, if traffic starts without an explicit call,
// the writer coroutine's first SENDAPP transition. A handshake error from
// this call fails the future and marks the engine closed; write errors seen
// by the writer coroutine leave the future as it is.
func (d *Duplex) Handshake(disp *runtime.Dispatcher) *runtime.Future[struct{}] {
	d.mu.Lock()
	if d.handshakeFut != nil {
		fut := d.handshakeFut
		d.mu.Unlock()
		return fut
	}

	fut := runtime.NewFuture[struct{}](disp)
	d.handshakeFut = fut
	already := d.flags&FlagHandshakeComplete != 0
	d.mu.Unlock()

	if already {
		fut.Complete(struct{}{})
		return fut
	}

	err := d.conn.Handshake()

	d.mu.Lock()
	if err != nil {
		d.handshakeErr = err
		d.flags |= FlagClosed
	} else {
		d.flags |= FlagHandshakeComplete
	}
	d.mu.Unlock()

	if err != nil {
		fut.Fail(ErrHandshakeFailed)
	} else {
		fut.Complete(struct{}{})
	}

	return fut
}

func (d *Duplex) HandshakeComplete() bool {
	return d.has(FlagHandshakeComplete)
}

// markHandshakeCompleteByTraffic is the writer coroutine's half of §4.3's
// "on the first SENDAPP transition the handshake is declared complete": a
// caller that never invoked Handshake explicitly still gets the future (if
// one was ever requested) completed the moment real application traffic
// flows.
func (d *Duplex) markHandshakeCompleteByTraffic() {
	d.mu.Lock()
	if d.flags&FlagHandshakeComplete != 0 {
		d.mu.Unlock()
		return
	}

	d.flags |= FlagHandshakeComplete
	fut := d.handshakeFut
	d.mu.Unlock()

	if fut != nil && !fut.Done() {
		fut.Complete(struct{}{})
	}
}

// Reader returns the reader-side coroutine's interface. bufSize sizes the
// shared BufferedReader on first call; later calls reuse it.
func (d *Duplex) Reader(bufSize int) *duplexReader {
	d.mu.Lock()
	if d.br == nil {
		d.br = stream.NewBufferedReader(d.conn, bufSize)
	}
	br := d.br
	d.mu.Unlock()

	return &duplexReader{d: d, br: br}
}

func (d *Duplex) Writer() *duplexWriter {
	return &duplexWriter{d: d}
}

func (d *Duplex) closed() bool {
	return d.has(FlagClosed)
}

// Close transitions the engine to terminal, drops the shared buffered
// reader, and closes the underlying connection. Idempotent.
func (d *Duplex) Close() error {
	d.mu.Lock()
	if d.flags&FlagClosed != 0 {
		d.mu.Unlock()
		return nil
	}
	d.flags |= FlagClosed
	d.br = nil
	d.mu.Unlock()

	return d.conn.Close()
}

package tls

import (
	"github.com/indigo-web/loop/stream"
)

// duplexReader is the reader coroutine's caller-facing handle. Each call
// drives the engine through RECVREC (pulling raw bytes off the source)
// then, once plaintext is available, RECVAPP (handing it to the caller).
// A read that ends in EOF with nothing delivered closes the engine, per
// §4.3's "source EOF triggers engine-close".
type duplexReader struct {
	d  *Duplex
	br *stream.BufferedReader
}

func (r *duplexReader) Read(n int) ([]byte, error) {
	if r.d.closed() {
		return nil, ErrStreamClosed
	}

	r.d.setFlags(FlagRecvRec, FlagRecvApp)
	data, err := r.br.Read(n)

	if len(data) > 0 {
		r.d.setFlags(FlagRecvApp, FlagRecvRec)
	}

	if len(data) == 0 && (err != nil || r.br.AtEOF()) {
		_ = r.d.Close()
	}

	return data, err
}

func (r *duplexReader) ReadOnce(buf []byte) (int, error) {
	if r.d.closed() {
		return 0, ErrStreamClosed
	}

	r.d.setFlags(FlagRecvRec, FlagRecvApp)
	n, err := r.br.ReadOnce(buf)

	if n > 0 {
		r.d.setFlags(FlagRecvApp, FlagRecvRec)
	}

	if n == 0 && (err != nil || r.br.AtEOF()) {
		_ = r.d.Close()
	}

	return n, err
}

func (r *duplexReader) ReadUntil(maxN int, sep []byte) ([]byte, error) {
	if r.d.closed() {
		return nil, ErrStreamClosed
	}

	r.d.setFlags(FlagRecvRec, FlagRecvApp)
	data, err := r.br.ReadUntil(maxN, sep)

	if len(data) > 0 {
		r.d.setFlags(FlagRecvApp, FlagRecvRec)
	}

	if len(data) == 0 && r.br.AtEOF() {
		_ = r.d.Close()
	}

	return data, err
}

func (r *duplexReader) Consume() error {
	if r.d.closed() {
		return nil
	}

	return r.br.Consume()
}

func (r *duplexReader) AtEOF() bool {
	return r.br.AtEOF()
}

// duplexWriter is the writer coroutine's caller-facing handle. Write
// splits its argument into engineCapacity-sized items: each one drives the
// engine through SENDAPP (handing plaintext to the engine, and on the
// first such transition declaring the handshake complete) then SENDREC
// (flushing the resulting record). A short write without error leaves its
// unwritten remainder as the next iteration of the very same call — i.e.
// at the head of the write FIFO, ahead of any later-queued item, since the
// loop never returns to the caller until the item it started is done.
type duplexWriter struct {
	d *Duplex
}

func (w *duplexWriter) Write(p []byte) (int, error) {
	if w.d.closed() {
		return 0, ErrStreamClosed
	}

	var total int
	remaining := p

	for len(remaining) > 0 {
		chunkLen := len(remaining)
		if chunkLen > engineCapacity {
			chunkLen = engineCapacity
		}
		chunk := remaining[:chunkLen]

		w.d.setFlags(FlagSendApp, FlagSendRec)
		w.d.markHandshakeCompleteByTraffic()

		n, err := w.d.conn.Write(chunk)
		w.d.setFlags(FlagSendRec, FlagSendApp)

		total += n
		if err != nil {
			return total, err
		}

		remaining = remaining[n:]
	}

	return total, nil
}

func (w *duplexWriter) CloseWait() error {
	return w.d.Close()
}

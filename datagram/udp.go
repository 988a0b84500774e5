// Package datagram implements a UDP transport: send/recv with queued
// write vectors. It is a thin, self-contained peer of the stream package:
// no other component in the HTTP/1.1 server path depends on it. Unlike
// stream.Writer, whose Write blocks its caller, its sends return a Future,
// so a caller composing UDP sends with timers/timeouts can use the
// runtime.Wait combinator.
//
// Grounded on transport/tcp.go's accept-loop shape (bind, then a loop that
// hands off each unit of work) adapted from connection-oriented accept to
// connectionless recvfrom, and on a write-item-with-completion-future
// discipline applied to write *vectors* (address + payload) instead of
// plain bytes.
package datagram

import (
	"net"
	"sync"

	"github.com/indigo-web/loop/runtime"
)

// Vector is one queued outbound datagram: a payload bound for addr.
type Vector struct {
	Addr    net.Addr
	Payload []byte
}

// Transport wraps a *net.UDPConn with a FIFO of pending write vectors,
// served by a single writer goroutine so concurrent senders still observe
// the same write-ordering discipline as the stream package's writers.
type Transport struct {
	conn *net.UDPConn

	mu      sync.Mutex
	pending []queuedWrite
	writing bool
}

type queuedWrite struct {
	vec Vector
	fut *runtime.Future[int]
}

// Listen binds a UDP socket at addr.
func Listen(network, addr string) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenUDP(network, udpAddr)
	if err != nil {
		return nil, err
	}

	return &Transport{conn: conn}, nil
}

// Recv blocks for the next datagram, returning its payload and sender.
func (t *Transport) Recv(buf []byte) (int, net.Addr, error) {
	return t.conn.ReadFrom(buf)
}

// SendAsync enqueues vec and returns a future completed with the number of
// bytes written once it has been served in FIFO order.
func (t *Transport) SendAsync(d *runtime.Dispatcher, vec Vector) *runtime.Future[int] {
	fut := runtime.NewFuture[int](d)

	t.mu.Lock()
	t.pending = append(t.pending, queuedWrite{vec: vec, fut: fut})
	shouldDrain := !t.writing
	if shouldDrain {
		t.writing = true
	}
	t.mu.Unlock()

	if shouldDrain {
		go t.drain()
	}

	return fut
}

func (t *Transport) drain() {
	for {
		t.mu.Lock()
		if len(t.pending) == 0 {
			t.writing = false
			t.mu.Unlock()
			return
		}

		item := t.pending[0]
		t.pending = t.pending[1:]
		t.mu.Unlock()

		n, err := t.conn.WriteTo(item.vec.Payload, item.vec.Addr)
		if err != nil {
			item.fut.Fail(err)
		} else {
			item.fut.Complete(n)
		}
	}
}

func (t *Transport) Close() error {
	return t.conn.Close()
}

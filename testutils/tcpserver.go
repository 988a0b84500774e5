package testutils

import (
	"fmt"
	"net"
)

// GetListener binds addr:port for tests that need a real socket rather than
// an in-memory pipe, e.g. exercising httpserver's accept loop end to end.
func GetListener(addr string, port uint16) (net.Listener, error) {
	return net.Listen("tcp", fmt.Sprintf("%s:%d", addr, port))
}

// FreePort asks the OS for an ephemeral port by binding to :0 and reading it
// back, then releasing the socket immediately for the real caller to bind.
func FreePort() (uint16, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return uint16(l.Addr().(*net.TCPAddr).Port), nil
}

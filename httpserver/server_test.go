package httpserver

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indigo-web/loop/testutils"
)

func startServer(t *testing.T, handler Handler, opts ...Option) string {
	t.Helper()

	port, err := testutils.FreePort()
	require.NoError(t, err)

	srv, err := NewServer(handler, opts...)
	require.NoError(t, err)

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	require.NoError(t, srv.Bind(addr))

	go func() {
		_ = srv.Run()
	}()

	t.Cleanup(srv.Stop)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			break
		}

		time.Sleep(5 * time.Millisecond)
	}

	return addr
}

func TestServer_PlainGET(t *testing.T) {
	addr := startServer(t, func(req *Request, resp *Response) error {
		require.Equal(t, "/hello", req.Path)
		return resp.SendBody([]byte("world"))
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: test\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "200 OK")

	var body string
	for {
		line, err := reader.ReadString('\n')
		if line == "\r\n" || err != nil {
			break
		}
	}

	buf := make([]byte, 5)
	n, _ := reader.Read(buf)
	body = string(buf[:n])
	require.Equal(t, "world", body)
}

func TestServer_KeepAliveAcrossRequests(t *testing.T) {
	var hits int

	addr := startServer(t, func(req *Request, resp *Response) error {
		hits++
		return resp.SendBody([]byte("ok"))
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	reader := bufio.NewReader(conn)

	for i := 0; i < 2; i++ {
		_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: test\r\n\r\n"))
		require.NoError(t, err)

		statusLine, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Contains(t, statusLine, "200 OK")

		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if line == "\r\n" {
				break
			}
		}

		buf := make([]byte, 2)
		_, err = reader.Read(buf)
		require.NoError(t, err)
		require.Equal(t, "ok", string(buf))
	}

	require.Equal(t, 2, hits)
}

func TestServer_SendJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	addr := startServer(t, func(req *Request, resp *Response) error {
		return resp.SendJSON(payload{Name: "loop"})
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /json HTTP/1.1\r\nHost: test\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "200 OK")

	var sawJSONContentType bool
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		if strings.Contains(strings.ToLower(line), "content-type") {
			sawJSONContentType = strings.Contains(line, "application/json")
		}
	}
	require.True(t, sawJSONContentType)

	body := make([]byte, len(`{"name":"loop"}`))
	_, err = reader.Read(body)
	require.NoError(t, err)
	require.Equal(t, `{"name":"loop"}`, string(body))
}

func TestServer_CookieHeaderParsed(t *testing.T) {
	var gotHello, gotMen string

	addr := startServer(t, func(req *Request, resp *Response) error {
		gotHello = req.Cookies.Value("hello")
		gotMen = req.Cookies.Value("men")
		return resp.SendBody(nil)
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: test\r\nConnection: close\r\n" +
		"Cookie: hello=world; men=in black\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "200 OK")

	require.Equal(t, "world", gotHello)
	require.Equal(t, "in black", gotMen)
}

func TestServer_UnsupportedVersionRejected(t *testing.T) {
	addr := startServer(t, func(req *Request, resp *Response) error {
		return resp.SendBody(nil)
	})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET / HTTP/9.9\r\nHost: test\r\n\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	statusLine, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, statusLine, "505")
}

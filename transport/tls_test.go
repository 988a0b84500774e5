package transport

import (
	"crypto/rand"
	"crypto/rsa"
	stdtls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/indigo-web/loop/config"
)

func selfSignedCert(t *testing.T) stdtls.Certificate {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	cert, err := stdtls.X509KeyPair(certPEM, keyPEM)
	require.NoError(t, err)

	return cert
}

func TestTLS_BindAndAccept(t *testing.T) {
	cert := selfSignedCert(t)
	tr := NewTLS([]stdtls.Certificate{cert})

	require.NoError(t, tr.Bind("127.0.0.1:0"))
	defer tr.Close()

	addr := tr.l.(tlsAdapter).TCPListener.Addr().String()

	accepted := make(chan net.Conn, 1)
	go func() {
		_ = tr.Listen(config.Default().NET, func(conn net.Conn) {
			accepted <- conn
		})
	}()

	clientCfg := &stdtls.Config{InsecureSkipVerify: true}
	conn, err := stdtls.Dial("tcp", addr, clientCfg)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case c := <-accepted:
		require.NotNil(t, c)
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the TLS connection")
	}

	tr.Stop()
}

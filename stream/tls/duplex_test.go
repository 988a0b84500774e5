package tls

import (
	"bytes"
	stdtls "crypto/tls"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"testing"
	"time"

	"github.com/indigo-web/loop/runtime"
	"github.com/stretchr/testify/require"
)

func selfSignedCert(t *testing.T) stdtls.Certificate {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	cert, err := LoadCertificate(certPEM, keyPEM)
	require.NoError(t, err)

	return cert
}

func TestHandshakeAndRoundTrip(t *testing.T) {
	cert := selfSignedCert(t)
	serverConn, clientConn := net.Pipe()

	serverCfg := BuildConfig(DefaultOptions(), []stdtls.Certificate{cert})
	serverCfg.MaxVersion = stdtls.VersionTLS12
	clientCfg := &stdtls.Config{InsecureSkipVerify: true, MaxVersion: stdtls.VersionTLS12}

	server := NewDuplex(stdtls.Server(serverConn, serverCfg))
	client := stdtls.Client(clientConn, clientCfg)

	d := runtime.New(runtime.NewChanReadiness(1))

	done := make(chan error, 1)
	go func() { done <- client.Handshake() }()

	fut := server.Handshake(d)
	_, err := runtime.WaitFor(d, fut)
	require.NoError(t, err)
	require.NoError(t, <-done)
	require.True(t, server.HandshakeComplete())

	writer := server.Writer()
	_, err = writer.Write([]byte("hello"))
	require.NoError(t, err)

	buf := make([]byte, 5)
	_, err = client.Read(buf)
	require.NoError(t, err)
	require.True(t, bytes.Equal(buf, []byte("hello")))
}

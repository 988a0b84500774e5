package tls

import (
	stdtls "crypto/tls"
	"encoding/pem"
)

// Options carries handshake tuning as boolean fields rather than a
// bitmask, matching the functional-options style used elsewhere in the
// config/settings packages rather than introducing a new bitflag type for
// something that's only ever read, never combined.
type Options struct {
	MinVersion uint16
	MaxVersion uint16

	NoVerifyHost        bool
	NoVerifyServerName  bool
	EnforceServerPref   bool
	NoRenegotiation     bool
	TolerateNoClientAuth bool
	FailOnAlpnMismatch  bool
}

// DefaultOptions returns the default accepted range: TLS 1.1 through 1.2.
func DefaultOptions() Options {
	return Options{
		MinVersion: stdtls.VersionTLS11,
		MaxVersion: stdtls.VersionTLS12,
	}
}

// BuildConfig translates Options plus a loaded certificate chain into a
// crypto/tls.Config, the opaque record-layer state machine this package
// treats as external. Keys are accepted as DER or PKCS#8 PEM and
// certificates as PEM chains, loaded by LoadCertificate below.
func BuildConfig(opts Options, certs []stdtls.Certificate) *stdtls.Config {
	cfg := &stdtls.Config{
		Certificates:           certs,
		MinVersion:             opts.MinVersion,
		MaxVersion:             opts.MaxVersion,
		PreferServerCipherSuites: opts.EnforceServerPref,
		Renegotiation:          stdtls.RenegotiateNever,
	}

	if !opts.NoRenegotiation {
		cfg.Renegotiation = stdtls.RenegotiateOnceAsClient
	}

	if opts.NoVerifyHost {
		cfg.InsecureSkipVerify = true
	}

	if opts.TolerateNoClientAuth {
		cfg.ClientAuth = stdtls.VerifyClientCertIfGiven
	}

	return cfg
}

// LoadCertificate loads a PEM certificate chain and either a DER or
// PKCS#8-PEM private key.
func LoadCertificate(certPEM, keyPEM []byte) (stdtls.Certificate, error) {
	if block, _ := pem.Decode(keyPEM); block == nil {
		// not PEM: treat it as a raw DER key
		keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyPEM})
	}

	return stdtls.X509KeyPair(certPEM, keyPEM)
}

// BuildConfigAutocert is BuildConfig's counterpart for certificates sourced
// dynamically (e.g. autocert.Manager.GetCertificate) rather than loaded
// once at startup: Certificates is left empty and GetCertificate resolves
// per handshake instead.
func BuildConfigAutocert(opts Options, getCertificate func(*stdtls.ClientHelloInfo) (*stdtls.Certificate, error)) *stdtls.Config {
	cfg := BuildConfig(opts, nil)
	cfg.GetCertificate = getCertificate

	return cfg
}

package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"rhel-lightspeed/cla-proxy/pkg/config"
)

// IdentitySource supplies the client identity presented to the backend and
// the roots used to verify it.
type IdentitySource interface {
	// ClientCertificate returns the key pair to present during the handshake.
	ClientCertificate() (*tls.Certificate, error)

	// RootCAs returns the pool used to verify the backend, or nil for the
	// system roots.
	RootCAs() *x509.CertPool
}

// FileIdentity reads the key pair from disk every time it is asked for one,
// so a rotated certificate is picked up by the next request.
type FileIdentity struct {
	certFile string
	keyFile  string
	rootCAs  *x509.CertPool
}

// NewFileIdentity creates a FileIdentity from the [backend.auth] section.
// The CA bundle, if configured, is read once here.
func NewFileIdentity(auth config.AuthConfig) (*FileIdentity, error) {
	id := &FileIdentity{
		certFile: auth.CertFile,
		keyFile:  auth.KeyFile,
	}

	if auth.CAFile != "" {
		pool, err := LoadCAPool(auth.CAFile)
		if err != nil {
			return nil, err
		}
		id.rootCAs = pool
	}

	return id, nil
}

// ClientCertificate implements IdentitySource.
func (f *FileIdentity) ClientCertificate() (*tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(f.certFile, f.keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate %q / key %q: %w", f.certFile, f.keyFile, err)
	}
	return &cert, nil
}

// RootCAs implements IdentitySource.
func (f *FileIdentity) RootCAs() *x509.CertPool {
	return f.rootCAs
}

// LoadCAPool reads a PEM bundle into a new certificate pool.
func LoadCAPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA bundle %q: %w", path, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA bundle %q: %w", path, ErrNoCertificate)
	}
	return pool, nil
}

// ClientTLSConfig builds the client side of the mutual TLS handshake from
// the identity source's current key pair.
func ClientTLSConfig(src IdentitySource) (*tls.Config, error) {
	cert, err := src.ClientCertificate()
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      src.RootCAs(),
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// CheckIdentity loads the current key pair and verifies that its leaf is
// within its validity period.
func CheckIdentity(src IdentitySource) (*x509.Certificate, error) {
	cert, err := src.ClientCertificate()
	if err != nil {
		return nil, err
	}

	leaf, err := LeafCertificate(cert)
	if err != nil {
		return nil, err
	}
	if err := ValidateX509Certificate(leaf); err != nil {
		return leaf, err
	}
	return leaf, nil
}

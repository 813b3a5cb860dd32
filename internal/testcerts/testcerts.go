// Package testcerts generates throwaway PKI material for tests: a CA, a
// server certificate for 127.0.0.1 and a client certificate, written as PEM
// files into a temporary directory.
package testcerts

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// Bundle holds generated PKI material and the files it was written to.
type Bundle struct {
	Dir string

	// CAFile verifies the server certificate.
	CAFile string

	// CertFile and KeyFile are the client identity.
	CertFile string
	KeyFile  string

	CAPool     *x509.CertPool
	ServerCert tls.Certificate
	ClientCert *x509.Certificate

	ca    *x509.Certificate
	caKey *ecdsa.PrivateKey
}

// Options control the generated client certificate.
type Options struct {
	CommonName string
	NotBefore  time.Time
	NotAfter   time.Time
}

func (o Options) withDefaults() Options {
	if o.CommonName == "" {
		o.CommonName = "test-consumer"
	}
	if o.NotBefore.IsZero() {
		o.NotBefore = time.Now().Add(-time.Hour)
	}
	if o.NotAfter.IsZero() {
		o.NotAfter = time.Now().Add(365 * 24 * time.Hour)
	}
	return o
}

// Generate creates a CA, a server certificate and a client certificate
// under t.TempDir().
func Generate(t testing.TB, opts Options) *Bundle {
	t.Helper()

	dir := t.TempDir()
	caKey := newKey(t)
	caTmpl := &x509.Certificate{
		SerialNumber:          serial(t),
		Subject:               pkix.Name{CommonName: "test-ca", Organization: []string{"cla-proxy tests"}},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatalf("failed to create CA certificate: %v", err)
	}
	ca, err := x509.ParseCertificate(caDER)
	if err != nil {
		t.Fatalf("failed to parse CA certificate: %v", err)
	}

	b := &Bundle{
		Dir:      dir,
		CAFile:   filepath.Join(dir, "ca.pem"),
		CertFile: filepath.Join(dir, "cert.pem"),
		KeyFile:  filepath.Join(dir, "key.pem"),
		CAPool:   x509.NewCertPool(),
		ca:       ca,
		caKey:    caKey,
	}
	b.CAPool.AddCert(ca)
	writePEM(t, b.CAFile, "CERTIFICATE", caDER)

	serverKey := newKey(t)
	serverDER := b.sign(t, &x509.Certificate{
		SerialNumber: serial(t),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:     []string{"localhost"},
	}, serverKey)
	b.ServerCert = tls.Certificate{Certificate: [][]byte{serverDER}, PrivateKey: serverKey}

	b.WriteClient(t, opts)
	return b
}

// WriteClient issues a new client certificate and overwrites CertFile and
// KeyFile with it.
func (b *Bundle) WriteClient(t testing.TB, opts Options) {
	t.Helper()
	opts = opts.withDefaults()

	key := newKey(t)
	der := b.sign(t, &x509.Certificate{
		SerialNumber: serial(t),
		Subject:      pkix.Name{CommonName: opts.CommonName, Organization: []string{"test-org"}},
		NotBefore:    opts.NotBefore,
		NotAfter:     opts.NotAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}, key)

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse client certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal client key: %v", err)
	}

	// Key first so a watcher never pairs a new certificate with an old key
	// for longer than one event.
	writePEM(t, b.KeyFile, "EC PRIVATE KEY", keyDER)
	writePEM(t, b.CertFile, "CERTIFICATE", der)
	b.ClientCert = cert
}

// ServerTLSConfig returns a server configuration that requires a client
// certificate issued by the bundle's CA.
func (b *Bundle) ServerTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{b.ServerCert},
		ClientCAs:    b.CAPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

func (b *Bundle) sign(t testing.TB, tmpl *x509.Certificate, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.CreateCertificate(rand.Reader, tmpl, b.ca, &key.PublicKey, b.caKey)
	if err != nil {
		t.Fatalf("failed to sign certificate %q: %v", tmpl.Subject.CommonName, err)
	}
	return der
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

func serial(t testing.TB) *big.Int {
	t.Helper()
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("failed to generate serial: %v", err)
	}
	return n
}

func writePEM(t testing.TB, path, blockType string, der []byte) {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

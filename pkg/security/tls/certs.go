package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrNoCertificate is returned when a PEM file holds no certificate block.
var ErrNoCertificate = errors.New("no certificate found in PEM data")

// ValidateCertificate checks that the leaf of a key pair is currently valid.
func ValidateCertificate(cert *tls.Certificate) error {
	leaf, err := LeafCertificate(cert)
	if err != nil {
		return err
	}
	return ValidateX509Certificate(leaf)
}

// LeafCertificate returns the parsed leaf of a key pair.
func LeafCertificate(cert *tls.Certificate) (*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return leaf, nil
}

// ValidateX509Certificate validates an x509 certificate for expiration.
func ValidateX509Certificate(cert *x509.Certificate) error {
	now := time.Now()

	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}

	return nil
}

// CheckCertificateExpiration returns the whole days left before cert expires
// and a warning when fewer than warnDays remain. Expired certificates report
// a negative day count.
func CheckCertificateExpiration(cert *x509.Certificate, warnDays int) (daysUntilExpiry int, warning string) {
	duration := time.Until(cert.NotAfter)
	daysUntilExpiry = int(duration.Hours() / 24)

	switch {
	case duration <= 0:
		warning = fmt.Sprintf("certificate expired on %s", cert.NotAfter.Format("2006-01-02"))
	case daysUntilExpiry < warnDays:
		warning = fmt.Sprintf("certificate expires in %d days (on %s)",
			daysUntilExpiry, cert.NotAfter.Format("2006-01-02"))
	}

	return daysUntilExpiry, warning
}

// LoadCertificateFile reads the first certificate from a PEM file.
func LoadCertificateFile(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %q: %w", path, err)
	}

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("%s: %w", path, ErrNoCertificate)
		}
		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %q: %w", path, err)
		}
		return cert, nil
	}
}

// CertificateInfo is a human-readable summary of a certificate.
type CertificateInfo struct {
	Subject            string    `json:"subject" yaml:"subject"`
	CommonName         string    `json:"common_name" yaml:"common_name"`
	Organization       []string  `json:"organization,omitempty" yaml:"organization,omitempty"`
	Issuer             string    `json:"issuer" yaml:"issuer"`
	SerialNumber       string    `json:"serial_number" yaml:"serial_number"`
	NotBefore          time.Time `json:"not_before" yaml:"not_before"`
	NotAfter           time.Time `json:"not_after" yaml:"not_after"`
	DNSNames           []string  `json:"dns_names,omitempty" yaml:"dns_names,omitempty"`
	IPAddresses        []string  `json:"ip_addresses,omitempty" yaml:"ip_addresses,omitempty"`
	SignatureAlgorithm string    `json:"signature_algorithm" yaml:"signature_algorithm"`
	PublicKeyAlgorithm string    `json:"public_key_algorithm" yaml:"public_key_algorithm"`
}

// ExtractCertificateInfo extracts information from an x509 certificate.
func ExtractCertificateInfo(cert *x509.Certificate) *CertificateInfo {
	info := &CertificateInfo{
		Subject:            cert.Subject.String(),
		CommonName:         cert.Subject.CommonName,
		Organization:       cert.Subject.Organization,
		Issuer:             cert.Issuer.String(),
		SerialNumber:       fmt.Sprintf("%x", cert.SerialNumber),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		DNSNames:           cert.DNSNames,
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
	}

	for _, ip := range cert.IPAddresses {
		info.IPAddresses = append(info.IPAddresses, ip.String())
	}

	return info
}

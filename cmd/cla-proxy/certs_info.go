package main

import (
	"crypto/x509"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rhel-lightspeed/cla-proxy/pkg/cli"
	securityTLS "rhel-lightspeed/cla-proxy/pkg/security/tls"
)

var infoFlags struct {
	format   string
	warnDays int
}

var certsInfoCmd = &cobra.Command{
	Use:   "info [cert-file]",
	Short: "Display certificate details",
	Long: `Display information about a PEM certificate.

Without an argument the client certificate named by backend.auth.cert_file
in the configuration is shown, and the expiry warning threshold defaults to
backend.auth.expiry_warning_days.

Output formats:
  - text (default): Human-readable formatted output
  - json, yaml: structured output for scripting

Examples:
  # Display the configured client certificate
  cla-proxy certs info

  # Display in JSON format
  cla-proxy certs info --format json /etc/pki/consumer/cert.pem`,
	Args: cobra.MaximumNArgs(1),
	RunE: displayCertInfo,
}

func init() {
	certsCmd.AddCommand(certsInfoCmd)

	certsInfoCmd.Flags().StringVar(&infoFlags.format, "format", "text", "output format: text, json, yaml")
	certsInfoCmd.Flags().IntVar(&infoFlags.warnDays, "warn-days", 0, "warn when fewer days remain (default from config)")
}

// certReport is the structured form of certs info.
type certReport struct {
	securityTLS.CertificateInfo `yaml:",inline"`

	File          string `json:"file" yaml:"file"`
	DaysRemaining int    `json:"days_remaining" yaml:"days_remaining"`
	Expired       bool   `json:"expired" yaml:"expired"`
	Warning       string `json:"warning,omitempty" yaml:"warning,omitempty"`
}

func displayCertInfo(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(infoFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatTOML {
		return fmt.Errorf("certs info does not support %s output", format)
	}

	certFile, warnDays := "", infoFlags.warnDays
	if len(args) == 1 {
		certFile = args[0]
	}
	if certFile == "" || warnDays == 0 {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if certFile == "" {
			certFile = cfg.Backend.Auth.CertFile
		}
		if warnDays == 0 {
			warnDays = cfg.Backend.Auth.ExpiryWarningDays
		}
	}

	cert, err := securityTLS.LoadCertificateFile(certFile)
	if err != nil {
		return err
	}

	report := newCertReport(certFile, cert, warnDays)
	if format == cli.FormatText {
		return printCertText(cmd.OutOrStdout(), report, cert)
	}

	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatTo(cmd.OutOrStdout(), report)
}

func newCertReport(file string, cert *x509.Certificate, warnDays int) *certReport {
	days, warning := securityTLS.CheckCertificateExpiration(cert, warnDays)
	return &certReport{
		File:            file,
		CertificateInfo: *securityTLS.ExtractCertificateInfo(cert),
		DaysRemaining:   days,
		Expired:         time.Now().After(cert.NotAfter),
		Warning:         warning,
	}
}

func printCertText(w io.Writer, r *certReport, cert *x509.Certificate) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Certificate: %s\n\n", r.File)

	b.WriteString("Subject:\n")
	fmt.Fprintf(&b, "  Common Name (CN): %s\n", r.CommonName)
	if len(r.Organization) > 0 {
		fmt.Fprintf(&b, "  Organization (O): %s\n", strings.Join(r.Organization, ", "))
	}

	b.WriteString("\nIssuer:\n")
	fmt.Fprintf(&b, "  %s\n", r.Issuer)

	b.WriteString("\nValidity:\n")
	fmt.Fprintf(&b, "  Not Before: %s\n", r.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(&b, "  Not After: %s\n", r.NotAfter.Format(time.RFC3339))
	if r.Expired {
		fmt.Fprintf(&b, "  Status: ✗ EXPIRED on %s\n", r.NotAfter.Format("2006-01-02"))
	} else {
		fmt.Fprintf(&b, "  Status: ✓ Valid (%d days remaining)\n", r.DaysRemaining)
		if r.Warning != "" {
			fmt.Fprintf(&b, "  Warning: ⚠  %s\n", r.Warning)
		}
	}

	if len(r.DNSNames) > 0 || len(r.IPAddresses) > 0 {
		b.WriteString("\nSubject Alternative Names:\n")
		for _, san := range r.DNSNames {
			fmt.Fprintf(&b, "  - DNS: %s\n", san)
		}
		for _, ip := range r.IPAddresses {
			fmt.Fprintf(&b, "  - IP: %s\n", ip)
		}
	}

	if len(cert.ExtKeyUsage) > 0 {
		b.WriteString("\nExtended Key Usage:\n")
		for _, usage := range cert.ExtKeyUsage {
			fmt.Fprintf(&b, "  - %s\n", extKeyUsageName(usage))
		}
	}

	b.WriteString("\nAlgorithms:\n")
	fmt.Fprintf(&b, "  Signature Algorithm: %s\n", r.SignatureAlgorithm)
	fmt.Fprintf(&b, "  Public Key Algorithm: %s\n", r.PublicKeyAlgorithm)
	fmt.Fprintf(&b, "\nSerial Number: %s\n", r.SerialNumber)

	_, err := io.WriteString(w, b.String())
	return err
}

func extKeyUsageName(usage x509.ExtKeyUsage) string {
	switch usage {
	case x509.ExtKeyUsageClientAuth:
		return "TLS Web Client Authentication"
	case x509.ExtKeyUsageServerAuth:
		return "TLS Web Server Authentication"
	case x509.ExtKeyUsageAny:
		return "Any"
	default:
		return fmt.Sprintf("Unknown (%d)", usage)
	}
}

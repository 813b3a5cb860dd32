package main

import (
	"github.com/spf13/cobra"
)

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Inspect the client certificate",
	Long: `Inspect the client certificate the proxy presents to the backend.

Subcommands:
  info - Display certificate details and expiry status

Examples:
  # Display the configured client certificate
  cla-proxy certs info

  # Display a specific certificate file
  cla-proxy certs info /etc/pki/consumer/cert.pem`,
}

func init() {
	rootCmd.AddCommand(certsCmd)
}

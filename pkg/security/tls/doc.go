/*
Package tls manages the client identity cla-proxy presents to the inference
backend.

# Identity Sources

The backend authenticates cla-proxy with mutual TLS. The key pair is the
system consumer certificate, which is renewed in place on disk. Two sources
are available:

	// Read the pair from disk on every request.
	id, err := tls.NewFileIdentity(cfg.Backend.Auth)

	// Keep the pair in memory and reload it when the files change.
	w, err := tls.NewIdentityWatcher(cfg.Backend.Auth, logger)
	w.Start(ctx)
	defer w.Stop()

Both implement IdentitySource, which ClientTLSConfig turns into a
crypto/tls client configuration.

# Expiry Monitoring

ExpiryMonitor checks the certificate on a cron schedule and logs a warning
when fewer than the configured number of days remain:

	m := tls.NewExpiryMonitor(id, "@hourly", 30, collector, logger)
	if err := m.Start(ctx); err != nil {
		return err
	}
*/
package tls

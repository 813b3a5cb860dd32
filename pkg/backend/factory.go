package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"rhel-lightspeed/cla-proxy/pkg/config"
	securityTLS "rhel-lightspeed/cla-proxy/pkg/security/tls"
)

// ErrClientClosed is returned by ScopedClient.Do after Close.
var ErrClientClosed = errors.New("backend client is closed")

const tlsHandshakeTimeout = 10 * time.Second

// ClientBuilder hands out a fresh client for one backend request.
type ClientBuilder interface {
	Build(ctx context.Context) (*ScopedClient, error)
}

// ClientFactory builds one mutually-authenticated HTTP client per request.
// No connection is reused between requests.
type ClientFactory struct {
	identity securityTLS.IdentitySource
	proxy    func(*http.Request) (*url.URL, error)
	timeout  time.Duration
}

// NewClientFactory creates a factory for the [backend] section. The proxy
// mounts are taken from cfg.Mounts, or parsed from cfg.Proxies when the
// config did not come from config.Load.
func NewClientFactory(cfg config.BackendConfig, identity securityTLS.IdentitySource) (*ClientFactory, error) {
	if identity == nil {
		return nil, errors.New("identity source is nil")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("invalid backend timeout: %d", cfg.Timeout)
	}

	mounts := cfg.Mounts
	if mounts == nil && len(cfg.Proxies) > 0 {
		parsed, errs := config.ParseProxyMounts("backend.proxies", cfg.Proxies)
		if len(errs) > 0 {
			return nil, config.ValidationError{Errors: errs}
		}
		mounts = parsed
	}

	if len(mounts) > 0 {
		slog.Debug("backend proxy mounts configured", "mounts", redactedMounts(mounts))
	}

	return &ClientFactory{
		identity: identity,
		proxy:    proxyFunc(mounts),
		timeout:  cfg.TimeoutDuration(),
	}, nil
}

// Build loads the current client key pair and returns a client that owns a
// dedicated transport. The caller must Close it.
func (f *ClientFactory) Build(ctx context.Context) (*ScopedClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, &BackendError{Op: "build_client", Kind: KindTransport, Message: "request cancelled", Cause: err}
	}

	tlsConfig, err := securityTLS.ClientTLSConfig(f.identity)
	if err != nil {
		return nil, &BackendError{Op: "build_client", Kind: KindIdentity, Message: "failed to load client identity", Cause: err}
	}

	transport := &http.Transport{
		Proxy:               f.proxy,
		TLSClientConfig:     tlsConfig,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		DisableKeepAlives:   true,
		DialContext: (&net.Dialer{
			Timeout: f.timeout,
		}).DialContext,
	}

	return &ScopedClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   f.timeout,
		},
		transport: transport,
	}, nil
}

// ScopedClient is an HTTP client whose lifetime is a single backend request.
type ScopedClient struct {
	client    *http.Client
	transport *http.Transport

	once   sync.Once
	closed atomic.Bool
}

// Do sends req with the scoped client.
func (c *ScopedClient) Do(req *http.Request) (*http.Response, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	return c.client.Do(req)
}

// Close releases the client's connections. It is safe to call more than once.
func (c *ScopedClient) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		c.transport.CloseIdleConnections()
	})
	return nil
}

// Closed reports whether Close has been called.
func (c *ScopedClient) Closed() bool {
	return c.closed.Load()
}

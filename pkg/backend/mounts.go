package backend

import (
	"net/http"
	"net/url"

	"rhel-lightspeed/cla-proxy/pkg/config"
)

// proxyFunc routes each request through the proxy mounted for its URL
// scheme. Schemes without a mount, and without an "all" mount, connect
// directly; the environment proxy variables are never consulted.
//
// http.Transport dials socks5:// proxies itself, so every scheme accepted by
// config.ParseProxyMounts can be returned unchanged.
func proxyFunc(mounts config.ProxyMounts) func(*http.Request) (*url.URL, error) {
	if len(mounts) == 0 {
		return nil
	}
	return func(req *http.Request) (*url.URL, error) {
		return mounts.ProxyFor(req.URL.Scheme), nil
	}
}

// redactedMounts renders mounts for logging with any proxy credentials
// masked.
func redactedMounts(mounts config.ProxyMounts) map[string]string {
	out := make(map[string]string, len(mounts))
	for _, key := range mounts.Keys() {
		out[key] = mounts[key].Redacted()
	}
	return out
}

package config

import (
	"fmt"
	"net/url"
	"sort"
)

// Proxy mount keys. A mount keyed by a URL scheme applies to requests with
// that scheme; MountAll applies to any scheme without a specific mount.
const (
	MountHTTP  = "http"
	MountHTTPS = "https"
	MountAll   = "all"
)

var (
	validMountKeys    = map[string]bool{MountHTTP: true, MountHTTPS: true, MountAll: true}
	validProxySchemes = map[string]bool{"http": true, "https": true, "socks5": true}
)

// ProxyMounts maps a mount key to its parsed proxy URL.
type ProxyMounts map[string]*url.URL

// ProxyFor returns the proxy for a request URL scheme, or nil when the
// request should connect directly.
func (m ProxyMounts) ProxyFor(scheme string) *url.URL {
	if p, ok := m[scheme]; ok {
		return p
	}
	return m[MountAll]
}

// Keys returns the mount keys in sorted order.
func (m ProxyMounts) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseProxyMounts validates raw scheme -> proxy URL pairs and parses them.
// Every invalid entry is reported as a FieldError under prefix.
func ParseProxyMounts(prefix string, raw map[string]string) (ProxyMounts, []FieldError) {
	var errs []FieldError
	mounts := make(ProxyMounts, len(raw))

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field := prefix + "." + key
		if !validMountKeys[key] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid proxy mount %q: must be 'http', 'https', or 'all'", key),
			})
			continue
		}

		u, err := url.Parse(raw[key])
		if err != nil {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid proxy URL: %v", err),
			})
			continue
		}
		if !validProxySchemes[u.Scheme] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("unsupported proxy scheme %q: must be 'http', 'https', or 'socks5'", u.Scheme),
			})
			continue
		}
		if u.Host == "" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "proxy URL must include a host",
			})
			continue
		}
		mounts[key] = u
	}

	return mounts, errs
}

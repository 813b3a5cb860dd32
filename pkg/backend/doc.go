// Package backend talks to the remote inference backend.
//
// # Client lifecycle
//
// The backend is reachable only over mutual TLS. ClientFactory.Build loads
// the current client key pair from an IdentitySource and returns a
// ScopedClient with its own transport, keep-alives disabled, so no
// connection outlives the request that opened it. The Forwarder closes the
// client with defer right after building it.
//
// # Proxies
//
// [backend.proxies] maps a URL scheme ("http", "https" or "all") to a proxy
// URL (http, https or socks5). A request uses the proxy mounted for its
// scheme, then the "all" mount, then a direct connection. HTTP_PROXY and
// friends are ignored.
//
// # Forwarding
//
//	fwd, _ := backend.NewForwarder(cfg.Backend, factory,
//	    backend.WithMetrics(collector),
//	    backend.WithTracerProvider(tracer.Provider()),
//	)
//	resp, err := fwd.ChatCompletion(ctx, req)
//
// Each call makes one attempt. Failures are returned as *BackendError:
// KindStatus carries the backend's status code and error detail; transport,
// identity and decode failures carry no status.
package backend

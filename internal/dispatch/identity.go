package dispatch

import (
	"net"
	"net/http"
	"strings"
)

// Extractor derives a connection-level identifier from a request, returning
// "" when it has nothing to offer.
type Extractor func(*http.Request) string

// FirstMatch combines extractors into one that returns the first non-empty
// result, trying them in order.
func FirstMatch(extractors ...Extractor) Extractor {
	return func(r *http.Request) string {
		for _, extract := range extractors {
			if v := extract(r); v != "" {
				return v
			}
		}
		return ""
	}
}

// defaultChain is the address fallback order: first hop of X-Forwarded-For,
// then X-Real-IP, then the connection's remote address.
var defaultChain = FirstMatch(forwardedFor, realIP, remoteAddr)

func forwardedFor(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ""
	}
	if idx := strings.IndexByte(xff, ','); idx >= 0 {
		xff = xff[:idx]
	}
	return strings.TrimSpace(xff)
}

func realIP(r *http.Request) string {
	return r.Header.Get("X-Real-IP")
}

func remoteAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ResolveIdentifier returns the key the rate limiter counts under. An
// authenticated actor gets "user:<id>"; otherwise the address chain is
// consulted, producing "ip:<addr>", or "ip:unknown" when even the
// connection metadata is missing.
func ResolveIdentifier(r *http.Request, actorID string) string {
	if actorID != "" {
		return "user:" + actorID
	}
	return addressIdentifier(r)
}

// addressIdentifier is the connection-derived key, used directly for route
// classes that are always address-scoped.
func addressIdentifier(r *http.Request) string {
	if addr := defaultChain(r); addr != "" {
		return "ip:" + addr
	}
	return "ip:unknown"
}

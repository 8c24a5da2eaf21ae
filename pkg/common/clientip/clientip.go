// Package clientip extracts the originating client address from a request.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the client IP for rate-limit keying. Behind a reverse
// proxy the first X-Forwarded-For entry is the original client; otherwise we
// fall back to the transport address. IPv6-mapped IPv4 addresses
// (::ffff:1.2.3.4) are normalized to their IPv4 form so the same client does
// not get two quota buckets.
func FromRequest(r *http.Request) string {
	ip := ""
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip = strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return strings.TrimPrefix(ip, "::ffff:")
}

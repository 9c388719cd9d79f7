package httpx

import (
	"net"
	"net/http"
	"strings"
)

// clientIP extracts the originating client address for rate-limit keying.
// The first X-Forwarded-For hop wins when present (we sit behind the edge
// proxy in every deployment); otherwise the socket peer is used.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

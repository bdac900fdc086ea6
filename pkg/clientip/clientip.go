// Package clientip resolves the real client address behind proxies.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the originating client IP, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then the connection's remote address.
func RealClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Package httputil holds request helpers shared by the API and stream
// handlers.
package httputil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the address used to key per-client stream limits and
// request logs. With trustProxy set, the leftmost X-Forwarded-For entry
// and then X-Real-IP are consulted; values that do not parse as an
// address are ignored. Otherwise only RemoteAddr is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip, ok := parseAddr(first); ok {
				return ip
			}
		}
		if ip, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	if ip, ok := parseAddr(r.RemoteAddr); ok {
		return ip
	}
	return r.RemoteAddr
}

// parseAddr accepts a bare address or host:port and returns the address
// in canonical form, with IPv4-mapped IPv6 unmapped.
func parseAddr(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(strings.Trim(s, "[]"))
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}

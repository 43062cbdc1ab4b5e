package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultHeaders are consulted in order before RemoteAddr. X-Forwarded-For
// contributes its first valid address.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// GetIP returns the normalized client address of r using DefaultHeaders.
func GetIP(r *http.Request) string {
	return FromHeaders(r, DefaultHeaders)
}

// FromHeaders returns the first valid address found in headers, then
// falls back to RemoteAddr. It returns "" when nothing parses.
func FromHeaders(r *http.Request, headers []string) string {
	for _, h := range headers {
		for candidate := range strings.SplitSeq(r.Header.Get(h), ",") {
			if ip := parseIP(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}

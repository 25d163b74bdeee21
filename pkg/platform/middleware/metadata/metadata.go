// Package metadata captures client metadata for audit events: IP, User-Agent,
// and a parsed browser/OS summary. The disclosure flow reveals personal data,
// so its audit trail records who asked from where.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"pakngate/pkg/requestcontext"
)

// Middleware stores client IP, User-Agent, and a device hint in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.UserAgent()
		ctx := requestcontext.WithClientMetadata(r.Context(), clientIP(r), ua, deviceHint(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP prefers X-Forwarded-For (the portal sits behind a reverse proxy)
// and falls back to the connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// First hop is the original client.
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// deviceHint condenses a User-Agent into "Browser version (OS)".
func deviceHint(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	hint := name
	if version != "" {
		hint += " " + version
	}
	if os := ua.OS(); os != "" {
		hint += " (" + os + ")"
	}
	return hint
}

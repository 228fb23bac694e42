package middleware

import (
	"net"
	"net/http"

	"github.com/ekaya-inc/ekaya-csvloader/pkg/audit"
)

// ClientIP stores the caller's address in the request context for audit
// events. Run it after chi's RealIP so proxy headers are honored.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithClientIP(r.Context(), hostOnly(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

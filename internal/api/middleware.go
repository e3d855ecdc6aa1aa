package api

import (
	"net"
	"net/http"
	"net/url"

	chimw "github.com/go-chi/chi/v5/middleware"
)

var (
	jsonOnly  = chimw.AllowContentType("application/json")
	inputOnly = chimw.AllowContentType("application/octet-stream")
	yamlOnly  = chimw.AllowContentType("application/yaml", "application/x-yaml")
)

// RequireLocalOrigin rejects browser requests sent from a page that is not
// served from the loopback interface. Requests without an Origin header come
// from non-browser clients and pass.
func RequireLocalOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && !isLoopbackOrigin(origin) {
			writeError(w, http.StatusForbidden, "Cross-origin request rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

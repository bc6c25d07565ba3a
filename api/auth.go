package api

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// adminUser is the basic auth username write requests must use.
const adminUser = "admin"

// requireAdmin wraps handlers that modify the library. Without a configured
// password hash writes are open.
func (a *API) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(a.adminPasswordHash) == 0 {
			next(w, r)
			return
		}
		user, password, ok := r.BasicAuth()
		if ok && user == adminUser &&
			bcrypt.CompareHashAndPassword(a.adminPasswordHash, []byte(password)) == nil {
			next(w, r)
			return
		}
		log.Warn().Str("remote", r.RemoteAddr).Str("url", r.URL.Path).Msg("unauthorized write request")
		w.Header().Set("WWW-Authenticate", `Basic realm="filmbrowser"`)
		apierror(w, "authentication required", http.StatusUnauthorized)
	}
}

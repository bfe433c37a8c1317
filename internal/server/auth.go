// Package server provides the HTTP server plumbing for the meter's web
// renderer: authentication, the WebSocket upgrader, and command handling.
package server

import (
	"crypto/subtle"
	"net/http"
)

// BasicAuth returns middleware that requires HTTP basic auth credentials.
// Comparison is constant-time to prevent timing attacks.
func BasicAuth(username, password string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
			if !ok || !userMatch || !passMatch {
				w.Header().Set("WWW-Authenticate", `Basic realm="vumeter"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next(w, r)
		}
	}
}

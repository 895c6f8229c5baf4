package handlers

import (
	"net/http"
	"strings"

	"focus-thumbnailer/internal/logging"

	"golang.org/x/crypto/bcrypt"
)

const bearerPrefix = "Bearer "

// RequireToken protects next with the configured bearer token. Without a
// configured token hash it is a pass-through.
func (h *Handlers) RequireToken(next http.Handler) http.Handler {
	if len(h.tokenHash) == 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(auth, bearerPrefix)
		if !ok || token == "" {
			writeUnauthorized(w)
			return
		}

		if err := bcrypt.CompareHashAndPassword(h.tokenHash, []byte(token)); err != nil {
			logging.Warn("Rejected enqueue from %s: invalid token", r.RemoteAddr)
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="thumbnailer"`)
	writeEnqueue(w, http.StatusUnauthorized, EnqueueResponse{Error: "Unauthorized"})
}

package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"focus-thumbnailer/internal/logging"
)

// Recover turns a handler panic into a JSON 500 so one bad request cannot
// take the intake down. http.ErrAbortHandler is re-raised.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := newResponseWriter(w)
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logging.Error("panic serving %s %s (request %s): %v\n%s",
				r.Method, sanitizeLogField(r.URL.Path), RequestIDFromContext(r.Context()), rec, debug.Stack())

			if rw.wroteHeader {
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			rw.WriteHeader(http.StatusInternalServerError)
			if err := json.NewEncoder(rw).Encode(map[string]interface{}{
				"ok":    false,
				"error": "Internal server error",
			}); err != nil {
				logging.Error("failed to encode JSON response: %v", err)
			}
		}()

		next.ServeHTTP(rw, r)
	})
}

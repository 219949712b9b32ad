package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"leadgate/pkg/requestcontext"
)

// RequireAdmin gates the admin surface behind static API keys. Real identity
// management is an external collaborator; the key's label doubles as the
// activity-trail actor.
func RequireAdmin(keys map[string]string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if presented != "" {
				for key, label := range keys {
					if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
						ctx := requestcontext.WithActor(r.Context(), label)
						next.ServeHTTP(w, r.WithContext(ctx))
						return
					}
				}
			}

			logger.WarnContext(r.Context(), "unauthorized admin access",
				"request_id", requestcontext.RequestID(r.Context()),
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"missing or invalid API key"}`))
		})
	}
}

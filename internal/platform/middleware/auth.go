package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"dqa/pkg/platform/httputil"
	"dqa/pkg/requestcontext"
)

// RequireAPIKey rejects requests whose Authorization header does not equal
// key. Paths starting with one of the public prefixes are served without it.
func RequireAPIKey(key string, public []string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path, public) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get("Authorization")
			if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized request",
					"path", r.URL.Path,
					"missing_key", token == "",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, httputil.NewError(http.StatusUnauthorized, "Unauthorized"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isPublic(path string, public []string) bool {
	for _, prefix := range public {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

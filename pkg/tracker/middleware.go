package tracker

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// requireToken checks the Bearer token against the configured tokens.
// Configured entries starting with "$2" are treated as bcrypt hashes,
// anything else as a plaintext token.
func (s *server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"authentication required"})

			return
		}

		if !s.tokenValid(authHeader[7:]) {
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"invalid token"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *server) tokenValid(token string) bool {
	for _, configured := range s.cfg.Auth.Tokens {
		if strings.HasPrefix(configured, "$2") {
			if bcrypt.CompareHashAndPassword(
				[]byte(configured), []byte(token),
			) == nil {
				return true
			}

			continue
		}

		if subtle.ConstantTimeCompare(
			[]byte(configured), []byte(token),
		) == 1 {
			return true
		}
	}

	return false
}

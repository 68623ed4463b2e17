package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/minesgame/internal/api/apierr"
)

// AdminKey rejects requests whose bearer token does not match the bcrypt
// hash of the admin API key. An empty hash disables every route behind it.
func AdminKey(keyHash string) func(http.Handler) http.Handler {
	hash := []byte(keyHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if len(hash) == 0 || token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

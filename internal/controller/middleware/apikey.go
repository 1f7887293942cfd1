package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"tuneplane/internal/auth"
	"tuneplane/pkg/api"
)

// RequireAPIKey ensures the request carries the configured API key as
// a bearer token. keyHash is the hex SHA-256 digest of the key, as
// produced by auth.HashKey.
func RequireAPIKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				unauthorized(w, "invalid authorization header")
				return
			}

			if !auth.Verify(parts[1], keyHash) {
				unauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(api.ErrorResponse{
		Error: msg,
		Code:  "401",
	})
}

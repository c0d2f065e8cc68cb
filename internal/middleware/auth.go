package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mwilkes/basket/internal/auth"
)

// RequireAuth validates the Authorization bearer token and populates
// AuthContext. Missing or invalid credentials answer 401 uniformly.
func RequireAuth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w)
				return
			}

			userID, email, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{UserID: userID, Email: email}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  "UNAUTHORIZED",
		"error": "missing or invalid bearer token",
	})
}

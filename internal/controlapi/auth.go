package controlapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/rafaeljc/recommender/internal/logger"
)

// APIKeyHeader carries the control plane API key.
const APIKeyHeader = "X-API-Key"

// HashAPIKey returns the hex SHA-256 of key, the format expected in
// RECOMMENDER_SERVER_CONTROL_API_KEY_HASH.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// authenticateAPIKey accepts the key from X-API-Key or an
// "Authorization: Bearer" header and compares its hash in constant time.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		given := HashAPIKey(key)
		expected := strings.ToLower(a.apiKeyHash)
		if key == "" || subtle.ConstantTimeCompare([]byte(given), []byte(expected)) != 1 {
			logger.FromContext(r.Context()).Warn("rejected unauthenticated request")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{
				Code:    CodeUnauthorized,
				Message: "A valid API key is required",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/storefront-api/internal/domain/auth"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "Api-Key"

// APIKeyAuth returns a middleware authenticating requests via HMAC-SHA256
// hashed API keys. Only the keyed hash is stored; the pepper never leaves
// the process.
func APIKeyAuth(apikeys auth.Repository, pepper []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				writeError(w, http.StatusForbidden, "api key required")
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusForbidden, "access denied")
				return
			}

			// Constant-time comparison guards against timing side-channels even
			// though the lookup already succeeded.
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusForbidden, "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/xenking/retail-orders/internal/domain/auth"
	"github.com/xenking/retail-orders/pkg/httpmiddleware"
)

type actorKey struct{}

// ActorFromContext returns the name of the authenticated API key, or an
// empty string when the request was not authenticated.
func ActorFromContext(ctx context.Context) string {
	if name, ok := ctx.Value(actorKey{}).(string); ok {
		return name
	}
	return ""
}

// RequireAPIKey returns a middleware authenticating requests via the
// X-API-Key header. Keys are stored as HMAC-SHA256 hashes computed with a
// server-side pepper; the lookup result is re-compared in constant time to
// guard against timing side-channels. The key name is stored in the request
// context as the acting identity.
func RequireAPIKey(apikeys auth.Repository, pepper []byte) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing API key", nil)
				return
			}

			mac := hmac.New(sha256.New, pepper)
			mac.Write([]byte(key))
			hash := mac.Sum(nil)

			info, err := apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(hash, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey{}, info.Name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

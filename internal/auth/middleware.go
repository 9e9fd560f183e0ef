package auth

import (
	"encoding/json"
	"net/http"

	"github.com/micro-nova/amplipi-prefs/internal/models"
)

// APIKeyName is both the query parameter and the request header that carry
// an access key.
const APIKeyName = "api-key"

// Middleware enforces authentication. In open mode all requests pass
// through. Otherwise the api-key header or query parameter must hold a valid
// access key; anything else gets a 401 JSON error.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.IsOpenMode() {
			next.ServeHTTP(w, r)
			return
		}

		if s.VerifyKey(r.Header.Get(APIKeyName)) || s.VerifyKey(r.URL.Query().Get(APIKeyName)) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(models.ErrUnauthorized)
	})
}

package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/platinummonkey/carebase/pkg/auth"
	"github.com/platinummonkey/carebase/pkg/contextkeys"
	"github.com/platinummonkey/carebase/pkg/httputil"
)

// AuthMiddleware guards protected routes with the token gate
type AuthMiddleware struct {
	service *auth.Service
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(service *auth.Service) *AuthMiddleware {
	return &AuthMiddleware{service: service}
}

// Handler wraps an HTTP handler with authentication. Requests that fail the
// gate never reach next.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := m.service.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeGateError(w, r, err)
			return
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		ctx = contextkeys.WithUserID(ctx, strconv.FormatInt(identity.User.ID, 10))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeGateError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		httputil.WriteBadRequest(w, "token not provided")
	case errors.Is(err, auth.ErrMalformedToken), errors.Is(err, auth.ErrInvalidToken):
		httputil.WriteUnauthorized(w, "invalid token")
	case errors.Is(err, auth.ErrRevokedToken):
		httputil.WriteUnauthorized(w, "token revoked")
	case errors.Is(err, auth.ErrUnknownUser):
		httputil.WriteUnauthorized(w, "user not found")
	default:
		httputil.WriteInternalError(w, r, err)
	}
}

// GetIdentity extracts the authenticated identity from the request context
func GetIdentity(r *http.Request) *auth.Identity {
	identity, ok := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}

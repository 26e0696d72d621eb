package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/carebase/pkg/auth"
	"github.com/platinummonkey/carebase/pkg/httputil"
)

// AuthHandlers handles registration, login and logout
type AuthHandlers struct {
	service *auth.Service
	audit   *auth.AuditLogger
}

// NewAuthHandlers creates a new auth handlers instance. audit may be nil.
func NewAuthHandlers(service *auth.Service, audit *auth.AuditLogger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		audit:   audit,
	}
}

// register handles POST /users/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		h.audit.LogFromRequest(r, auth.ActionRegister, auth.StatusFailure, nil, err)
		if errors.Is(err, auth.ErrUserExists) {
			httputil.WriteConflict(w, "user already exists")
			return
		}
		httputil.WriteInternalError(w, r, err)
		return
	}

	h.audit.LogFromRequest(r, auth.ActionRegister, auth.StatusSuccess, &user.ID, nil)
	httputil.WriteCreated(w, user)
}

// login handles POST /users/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseAndValidate(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.audit.LogFromRequest(r, auth.ActionLogin, auth.StatusFailure, nil, err)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			httputil.WriteUnauthorized(w, "invalid email or password")
			return
		}
		httputil.WriteInternalError(w, r, err)
		return
	}

	h.audit.LogFromRequest(r, auth.ActionLogin, auth.StatusSuccess, &session.User.ID, nil)
	httputil.WriteSuccess(w, loginResponse{
		Message:   "login successful",
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// logout handles POST /users/logout. The route is public: the token is
// revoked whether or not it still verifies.
func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	err := h.service.Logout(r.Context(), r.Header.Get("Authorization"))
	switch {
	case err == nil:
		h.audit.LogFromRequest(r, auth.ActionLogout, auth.StatusSuccess, nil, nil)
		httputil.WriteMessage(w, "logout successful")
	case errors.Is(err, auth.ErrMissingToken):
		httputil.WriteBadRequest(w, "token not provided")
	case errors.Is(err, auth.ErrMalformedToken):
		httputil.WriteBadRequest(w, "invalid token")
	default:
		h.audit.LogFromRequest(r, auth.ActionLogout, auth.StatusFailure, nil, err)
		httputil.WriteInternalError(w, r, err)
	}
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/Jis87-63/moz-digital-store/internal/identity"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/middleware"
)

// AuthHandler exposes account creation and session management.
type AuthHandler struct {
	gate   *identity.Gate
	logger *slog.Logger
}

func NewAuthHandler(gate *identity.Gate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{gate: gate, logger: logger}
}

// SignInRequest is the JSON body of POST /api/v1/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req identity.SignUpInput
	if !decodeRaw(w, r, &req) {
		return
	}

	sess, err := h.gate.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusCreated, sess)
}

// SignIn handles POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeRaw(w, r, &req) {
		return
	}

	sess, err := h.gate.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	writeData(w, r, http.StatusOK, sess)
}

// SignOut handles POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.BearerToken(r)
	if !ok {
		writeError(w, r, apperrors.AuthRequired("authentication required"), h.logger)
		return
	}
	if err := h.gate.SignOut(r.Context(), token); err != nil {
		writeError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if id == nil {
		writeError(w, r, apperrors.AuthRequired("authentication required"), h.logger)
		return
	}
	writeData(w, r, http.StatusOK, id.Profile)
}

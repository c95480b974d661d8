package server

import (
	"net/http"
	"time"

	"github.com/jonathan/voice-agent-builder/internal/config"
)

// TokenRequest is the body of POST /auth/token.
type TokenRequest struct {
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by POST /auth/token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthHandler exchanges the admin password for an API token.
type AuthHandler struct {
	passwords  *config.PasswordConfig
	jwtService *JWTService
}

// NewAuthHandler creates a new AuthHandler with the given dependencies.
func NewAuthHandler(passwords *config.PasswordConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		passwords:  passwords,
		jwtService: jwtService,
	}
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeRequest(r, &req); err != nil {
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	ok, err := h.passwords.VerifyAdmin(req.Password)
	if err != nil {
		errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !ok {
		err := &ErrInvalidCredentials{}
		errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(AdminSubject)
	if err != nil {
		errorResponse(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	jsonResponse(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expiresAt})
}

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/model"
	"github.com/sakif/bucketlist/internal/service"
)

// AuthHandler serves registration, login and token checks.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister     → create an account
//   - HandleLogin        → check credentials, issue a token
//   - HandleAuthenticate → report who the presented token belongs to
//
// Tokens are stateless: there is no logout endpoint because nothing is
// stored server-side. A token stays valid until it expires.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// loginRequest accepts the identifier as either "username" or "email".
type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// AuthenticateResponse is the body of a successful token check.
type AuthenticateResponse struct {
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /auth/register
// REQUEST BODY: {"first_name","last_name","username","email","password"}
//
// 201 with the new user, 400 on invalid input, 409 when the username or
// email is taken.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"username": "liyai", "password": "..."} or {"email": ..., "password": ...}
//
// Any failure is the same 401 invalid_credentials, so the response does not
// reveal whether the account exists.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}
	if identifier == "" || req.Password == "" {
		writeError(w, apperror.ValidationFailed("", "username (or email) and password are required"))
		return
	}

	res, err := h.auth.Login(r.Context(), identifier, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     res.Token.Token,
		ExpiresAt: res.Token.ExpiresAt,
		User:      res.User,
	})
}

// HandleAuthenticate reports the user behind a valid token.
//
// HTTP: GET /auth/authenticate
// Auth: Required (RequireAuth has already validated the token)
func (h *AuthHandler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized(auth.CauseTokenMissing, "authentication token is required"))
		return
	}

	writeJSON(w, http.StatusOK, AuthenticateResponse{
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt,
	})
}

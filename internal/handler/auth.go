package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/bookifyme/internal/auth"
	"github.com/sakif/bookifyme/internal/model"
	"github.com/sakif/bookifyme/internal/service"
)

// AuthService is what AuthHandler needs from service.AuthService.
// Declaring it here (accept interfaces) lets handler tests use a mock.
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthHandler serves account endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create an account, return user + token
//   - HandleLogin          → verify credentials, return user + token
//   - HandleLogout         → acknowledge; tokens are stateless
//   - HandleMe             → return the authenticated user
//   - HandleForgotPassword → start a password reset
//   - HandleResetPassword  → finish it with the emailed token
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// resetPasswordRequest accepts the new password as either "password" or
// "new_password".
type resetPasswordRequest struct {
	Token       string `json:"token"`
	Password    string `json:"password"`
	NewPassword string `json:"new_password"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User registered successfully", res)
}

// HandleLogin exchanges credentials for a bearer token.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", res)
}

// HandleLogout acknowledges a logout. Bearer tokens are not tracked
// server-side; the client discards its copy.
//
// HTTP: POST /api/auth/logout (authenticated)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}

// HandleMe returns the authenticated user.
//
// HTTP: GET /api/auth/me (authenticated)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "User data retrieved successfully", map[string]*model.User{"user": user})
}

// HandleForgotPassword starts a password reset. The response is the same
// whether or not the address belongs to an account.
//
// HTTP: POST /api/auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "If that email is registered, a reset link has been sent", nil)
}

// HandleResetPassword sets a new password using a reset token.
//
// HTTP: POST /api/auth/reset-password
// REQUEST BODY: {"token": "...", "password": "..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	password := req.Password
	if password == "" {
		password = req.NewPassword
	}
	if err := h.auth.ResetPassword(r.Context(), req.Token, password); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password has been reset", nil)
}

// currentUser returns the user stored by auth.RequireAuth. If a route is
// mounted without that middleware it answers 401 and reports false.
func currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, Envelope{Message: "Invalid or expired token", Error: "unauthorized"})
		return nil, false
	}
	return user, true
}

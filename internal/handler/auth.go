package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/service"
)

type registerRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Register(r.Context(), service.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeServiceError(w, "register user", err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login выполняет аутентификацию по email и паролю.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, "login user", err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

type googleLoginRequest struct {
	GoogleIDToken string `json:"googleIdToken"`
}

// GoogleLogin выполняет вход по ID-токену Google.
func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.GoogleLogin(r.Context(), req.GoogleIDToken)
	if err != nil {
		h.writeServiceError(w, "google login", err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// Logout подтверждает выход. Токен не хранится на сервере, клиент удаляет его сам.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, "logged out, discard the token")
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword отправляет код сброса пароля на email пользователя.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, "forgot password", err)
		return
	}

	writeMessage(w, "reset code sent")
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword устанавливает новый пароль по коду сброса.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		h.writeServiceError(w, "reset password", err)
		return
	}

	writeMessage(w, "password updated")
}

// Me возвращает профиль текущего пользователя.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), id.UserID)
	if err != nil {
		h.writeServiceError(w, "get profile", err, zap.Int64("userID", id.UserID))
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

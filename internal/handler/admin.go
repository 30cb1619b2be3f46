package handler

import (
	"net/http"

	"go.uber.org/zap"
)

type registerTokenRequest struct {
	Token string `json:"token"`
}

// RegisterAdminToken сохраняет push-токен устройства текущего администратора.
func (h *Handler) RegisterAdminToken(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req registerTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.RegisterAdminToken(r.Context(), id.UserID, req.Token); err != nil {
		h.writeServiceError(w, "register admin token", err, zap.Int64("userID", id.UserID))
		return
	}

	writeMessage(w, "token registered")
}

type notificationRequest struct {
	UserID int64  `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// SendNotification отправляет push-уведомление на устройство указанного пользователя.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.SendNotification(r.Context(), req.UserID, req.Title, req.Body); err != nil {
		h.writeServiceError(w, "send notification", err, zap.Int64("userID", req.UserID))
		return
	}

	writeMessage(w, "notification sent")
}

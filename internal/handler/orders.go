package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// GetOrders возвращает заказы текущего пользователя, новые первыми.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	orders, err := h.service.OrdersByUser(r.Context(), id.UserID)
	if err != nil {
		h.writeServiceError(w, "get orders", err, zap.Int64("userID", id.UserID))
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// ListOrders возвращает все заказы магазина.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.writeServiceError(w, "list orders", err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

type orderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus меняет статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req orderStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, req.Status)
	if err != nil {
		h.writeServiceError(w, "update order status", err, zap.Int64("orderID", orderID))
		return
	}

	writeJSON(w, http.StatusOK, order)
}

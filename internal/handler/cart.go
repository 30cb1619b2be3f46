package handler

import (
	"net/http"

	"go.uber.org/zap"
)

type addItemRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// AddToCart добавляет товар в корзину текущего пользователя.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cart, err := h.service.AddItem(r.Context(), id.UserID, req.ProductID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, "add to cart", err,
			zap.Int64("userID", id.UserID), zap.Int64("productID", req.ProductID))
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// GetCart возвращает корзину текущего пользователя.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	cart, err := h.service.GetCart(r.Context(), id.UserID)
	if err != nil {
		h.writeServiceError(w, "get cart", err, zap.Int64("userID", id.UserID))
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// RemoveFromCart удаляет товар из корзины текущего пользователя.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	productID, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), id.UserID, productID)
	if err != nil {
		h.writeServiceError(w, "remove from cart", err,
			zap.Int64("userID", id.UserID), zap.Int64("productID", productID))
		return
	}

	writeJSON(w, http.StatusOK, cart)
}

// ClearCart удаляет корзину текущего пользователя.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearCart(r.Context(), id.UserID); err != nil {
		h.writeServiceError(w, "clear cart", err, zap.Int64("userID", id.UserID))
		return
	}

	writeMessage(w, "cart cleared")
}

// Pay оформляет заказ из корзины текущего пользователя.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	res, err := h.service.Checkout(r.Context(), id.UserID)
	if err != nil {
		h.writeServiceError(w, "checkout", err, zap.Int64("userID", id.UserID))
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// Package handler содержит HTTP-обработчики API интернет-магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/metrics"
	"github.com/mmeshcher/comfyshop/internal/middleware"
	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/repository"
	"github.com/mmeshcher/comfyshop/internal/service"
	"github.com/mmeshcher/comfyshop/internal/storage"
	"github.com/mmeshcher/comfyshop/internal/validation"
)

const maxJSONBody = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	GoogleLogin(ctx context.Context, idToken string) (*service.Session, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Profile(ctx context.Context, userID int64) (*model.Profile, error)

	AddItem(ctx context.Context, userID, productID int64, quantity int) (*model.Cart, error)
	GetCart(ctx context.Context, userID int64) (*model.Cart, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*model.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
	Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error)

	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	CreateProduct(ctx context.Context, p model.Product, img *service.ImageUpload) (*model.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch, img *service.ImageUpload) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	OrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*model.Order, error)

	RegisterAdminToken(ctx context.Context, userID int64, token string) error
	SendNotification(ctx context.Context, userID int64, title, body string) error
}

// Handler реализует HTTP-обработчики API интернет-магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	authLimiter    *middleware.RateLimiter
	metrics        *metrics.Collector
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// authLimiter и collector могут быть nil.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware,
	authLimiter *middleware.RateLimiter, collector *metrics.Collector) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		authLimiter:    authLimiter,
		metrics:        collector,
	}
}

type errorMapping struct {
	err    error
	status int
	kind   string
}

var errorMappings = []errorMapping{
	{service.ErrMissingFields, http.StatusBadRequest, middleware.KindValidationFailed},
	{service.ErrInvalidEmail, http.StatusBadRequest, middleware.KindValidationFailed},
	{service.ErrPasswordMismatch, http.StatusBadRequest, middleware.KindValidationFailed},
	{service.ErrPasswordTooLong, http.StatusBadRequest, middleware.KindValidationFailed},
	{service.ErrInvalidQuantity, http.StatusBadRequest, middleware.KindValidationFailed},
	{repository.ErrQuantityOutOfRange, http.StatusBadRequest, middleware.KindValidationFailed},
	{service.ErrUnknownStatus, http.StatusBadRequest, middleware.KindValidationFailed},
	{service.ErrImageStorageDisabled, http.StatusBadRequest, middleware.KindValidationFailed},
	{storage.ErrInvalidImage, http.StatusBadRequest, middleware.KindValidationFailed},
	{validation.ErrInvalidPrice, http.StatusBadRequest, middleware.KindValidationFailed},
	{validation.ErrInvalidStock, http.StatusBadRequest, middleware.KindValidationFailed},
	{validation.ErrInvalidVariants, http.StatusBadRequest, middleware.KindValidationFailed},
	{repository.ErrUserExists, http.StatusBadRequest, middleware.KindDuplicateEmail},
	{service.ErrInvalidCredentials, http.StatusBadRequest, middleware.KindInvalidCredentials},
	{service.ErrInvalidGoogleToken, http.StatusUnauthorized, middleware.KindInvalidGoogleToken},
	{service.ErrUnknownEmail, http.StatusBadRequest, middleware.KindUnknownEmail},
	{service.ErrInvalidResetCode, http.StatusBadRequest, middleware.KindInvalidResetCode},
	{service.ErrEmptyCart, http.StatusBadRequest, middleware.KindEmptyCart},
	{repository.ErrProductNotFound, http.StatusNotFound, middleware.KindProductNotFound},
	{repository.ErrCartNotFound, http.StatusNotFound, middleware.KindCartNotFound},
	{repository.ErrOrderNotFound, http.StatusNotFound, middleware.KindOrderNotFound},
	{repository.ErrAdminTokenNotFound, http.StatusNotFound, middleware.KindTokenNotFound},
	{repository.ErrUserNotFound, http.StatusNotFound, middleware.KindNotFound},
	{service.ErrInvalidStatusTransition, http.StatusConflict, middleware.KindInvalidStatusTransition},
	{service.ErrPushFailed, http.StatusBadGateway, middleware.KindUpstreamFailed},
}

// writeServiceError переводит ошибку бизнес-логики в HTTP-ответ.
// Неизвестные ошибки логируются и отдаются клиенту как внутренние.
func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			message := m.err.Error()
			if m.kind == middleware.KindValidationFailed {
				message = err.Error()
			}
			middleware.WriteError(w, m.status, m.kind, message)
			return
		}
	}

	h.logger.Error(op+" error", append(fields, zap.Error(err))...)
	middleware.WriteInternalError(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, messageResponse{Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, middleware.KindValidationFailed, "malformed JSON body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, middleware.KindValidationFailed, "invalid "+name)
		return 0, false
	}
	return id, true
}

func identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.KindUnauthenticated, "authentication required")
		return model.Identity{}, false
	}
	return id, true
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		middleware.WriteError(w, http.StatusServiceUnavailable, middleware.KindInternal, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

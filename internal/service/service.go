// Package service реализует бизнес-логику интернет-магазина.
package service

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/auth"
	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/storage"
)

var (
	// ErrMissingFields возвращается, если не заполнены обязательные поля.
	ErrMissingFields = errors.New("required fields are missing")
	// ErrInvalidEmail возвращается для некорректного email.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrPasswordMismatch возвращается, если пароль и подтверждение не совпадают.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordTooLong возвращается, если пароль длиннее 72 байт.
	ErrPasswordTooLong = errors.New("password must be at most 72 bytes")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidGoogleToken возвращается, если Google не подтвердил ID-токен.
	ErrInvalidGoogleToken = errors.New("invalid google token")
	// ErrUnknownEmail возвращается, если пользователь с email не найден при запросе сброса пароля.
	ErrUnknownEmail = errors.New("unknown email")
	// ErrInvalidResetCode возвращается для неверного или просроченного кода сброса.
	ErrInvalidResetCode = errors.New("invalid or expired reset code")
	// ErrInvalidQuantity возвращается, если количество меньше единицы или слишком велико.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 2147483647")
	// ErrEmptyCart возвращается при оформлении отсутствующей или пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrUnknownStatus возвращается для неизвестного статуса заказа.
	ErrUnknownStatus = errors.New("unknown order status")
	// ErrInvalidStatusTransition возвращается при недопустимой смене статуса заказа.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrImageStorageDisabled возвращается при загрузке изображения без настроенного хранилища.
	ErrImageStorageDisabled = errors.New("image storage is not configured")
	// ErrPushFailed возвращается, если провайдер push-уведомлений отклонил отправку.
	ErrPushFailed = errors.New("push notification failed")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	HasAdmin(ctx context.Context) (bool, error)
	SetResetCode(ctx context.Context, userID int64, codeHash []byte, expiry time.Time) error
	RecordResetFailure(ctx context.Context, userID int64, maxAttempts int) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash []byte) error

	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch model.ProductPatch) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	AddCartItem(ctx context.Context, userID int64, item model.CartItem) (*model.Cart, error)
	GetCart(ctx context.Context, userID int64) (*model.Cart, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) (*model.Cart, error)
	DeleteCart(ctx context.Context, userID int64) error

	CreateOrder(ctx context.Context, userID int64, items []model.CartItem) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error

	UpsertAdminToken(ctx context.Context, userID int64, token string) error
	GetAdminToken(ctx context.Context, userID int64) (*model.AdminToken, error)
}

// TokenIssuer выпускает bearer-токены.
type TokenIssuer interface {
	Issue(userID int64, role model.Role, ttl time.Duration) (string, error)
}

// GoogleVerifier проверяет ID-токены Google.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleUser, error)
}

// ImageStore сохраняет изображения товаров.
type ImageStore interface {
	SaveImage(ctx context.Context, filename string, r io.Reader) (*storage.Image, error)
}

// Notifier ставит в очередь уведомления. Методы без ошибки не блокируют вызывающего.
type Notifier interface {
	NotifyProductCreated(p model.Product)
	NotifyLowStock(p model.Product)
	SendPasswordResetCode(email, name, code string, ttl time.Duration)
	SendPush(ctx context.Context, token, title, body string) error
}

// CheckoutRecorder учитывает исходы оформления заказов.
type CheckoutRecorder interface {
	RecordCheckout(outcome string)
}

// Options содержит необязательные зависимости и параметры сервиса.
type Options struct {
	Google            GoogleVerifier
	Images            ImageStore
	Notifier          Notifier
	Metrics           CheckoutRecorder
	ResetCodeTTL      time.Duration
	LowStockThreshold int
}

// Service содержит бизнес-логику интернет-магазина.
type Service struct {
	repo              Repository
	tokens            TokenIssuer
	google            GoogleVerifier
	images            ImageStore
	notifier          Notifier
	metrics           CheckoutRecorder
	logger            *zap.Logger
	resetCodeTTL      time.Duration
	lowStockThreshold int
	now               func() time.Time
}

// NewService создаёт сервис с указанным репозиторием и эмитентом токенов.
func NewService(repo Repository, tokens TokenIssuer, logger *zap.Logger, opts Options) *Service {
	s := &Service{
		repo:              repo,
		tokens:            tokens,
		google:            opts.Google,
		images:            opts.Images,
		notifier:          opts.Notifier,
		metrics:           opts.Metrics,
		logger:            logger,
		resetCodeTTL:      opts.ResetCodeTTL,
		lowStockThreshold: opts.LowStockThreshold,
		now:               time.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	if s.resetCodeTTL <= 0 {
		s.resetCodeTTL = 15 * time.Minute
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

type noopNotifier struct{}

func (noopNotifier) NotifyProductCreated(model.Product) {}

func (noopNotifier) NotifyLowStock(model.Product) {}

func (noopNotifier) SendPasswordResetCode(string, string, string, time.Duration) {}

func (noopNotifier) SendPush(context.Context, string, string, string) error {
	return errors.New("notifications are disabled")
}

type noopRecorder struct{}

func (noopRecorder) RecordCheckout(string) {}

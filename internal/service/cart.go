package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/repository"
	"github.com/mmeshcher/comfyshop/internal/validation"
)

// Исходы оформления заказа для метрик.
const (
	CheckoutCompleted = "completed"
	CheckoutEmpty     = "empty"
	CheckoutFailed    = "failed"
)

// AddItem добавляет товар в корзину пользователя, фиксируя текущие название, цену и изображение.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, quantity int) (*model.Cart, error) {
	if quantity < 1 || quantity > validation.MaxQuantity {
		return nil, ErrInvalidQuantity
	}

	p, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.repo.AddCartItem(ctx, userID, model.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  quantity,
	})
}

// GetCart возвращает корзину пользователя. Отсутствующая корзина возвращается пустой.
func (s *Service) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
		}
		return nil, err
	}
	return cart, nil
}

// RemoveItem удаляет товар из корзины. Возвращает repository.ErrCartNotFound, если корзины нет.
func (s *Service) RemoveItem(ctx context.Context, userID, productID int64) (*model.Cart, error) {
	return s.repo.RemoveCartItem(ctx, userID, productID)
}

// ClearCart удаляет корзину пользователя.
func (s *Service) ClearCart(ctx context.Context, userID int64) error {
	return s.repo.DeleteCart(ctx, userID)
}

// Checkout превращает корзину пользователя в заказ со статусом packing.
// Если заказ не создан, корзина сохраняется. Если заказ создан, а корзину удалить
// не удалось, оформление считается успешным: корзину очистит повторный вызов ClearCart.
func (s *Service) Checkout(ctx context.Context, userID int64) (*model.CheckoutResult, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.metrics.RecordCheckout(CheckoutFailed)
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		s.metrics.RecordCheckout(CheckoutEmpty)
		return nil, ErrEmptyCart
	}

	total := cart.Total()

	order, err := s.repo.CreateOrder(ctx, userID, cart.Items)
	if err != nil {
		s.metrics.RecordCheckout(CheckoutFailed)
		return nil, err
	}

	if err := s.repo.DeleteCart(ctx, userID); err != nil {
		s.logger.Warn("cart was not cleared after checkout",
			zap.Int64("userID", userID),
			zap.Int64("orderID", order.ID),
			zap.Error(err),
		)
	}

	s.metrics.RecordCheckout(CheckoutCompleted)
	s.logger.Info("order created",
		zap.Int64("userID", userID),
		zap.Int64("orderID", order.ID),
		zap.String("total", total.StringFixed(2)),
	)

	return &model.CheckoutResult{OrderID: order.ID, Total: total}, nil
}

package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/model"
	"github.com/mmeshcher/comfyshop/internal/repository"
)

// OrdersByUser возвращает заказы пользователя.
func (s *Service) OrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.repo.GetOrdersByUser(ctx, userID)
}

// ListOrders возвращает все заказы магазина.
func (s *Service) ListOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// UpdateOrderStatus переводит заказ в новый статус по правилам перехода
// packing → shipped → delivered с возможной отменой до доставки.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*model.Order, error) {
	next, err := model.ParseOrderStatus(status)
	if err != nil {
		return nil, ErrUnknownStatus
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(next) {
		return nil, ErrInvalidStatusTransition
	}
	if order.Status == next {
		return order, nil
	}

	if err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, next); err != nil {
		if errors.Is(err, repository.ErrOrderStatusConflict) {
			return nil, ErrInvalidStatusTransition
		}
		return nil, err
	}

	s.logger.Info("order status changed",
		zap.Int64("orderID", orderID),
		zap.String("from", string(order.Status)),
		zap.String("to", string(next)),
	)

	return s.repo.GetOrder(ctx, orderID)
}

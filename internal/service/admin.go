package service

import (
	"context"
	"fmt"
	"strings"
)

// RegisterAdminToken сохраняет push-токен устройства администратора.
func (s *Service) RegisterAdminToken(ctx context.Context, userID int64, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingFields
	}
	return s.repo.UpsertAdminToken(ctx, userID, token)
}

// SendNotification отправляет push-уведомление на устройство указанного пользователя.
func (s *Service) SendNotification(ctx context.Context, userID int64, title, body string) error {
	if userID == 0 || strings.TrimSpace(title) == "" {
		return ErrMissingFields
	}

	t, err := s.repo.GetAdminToken(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.notifier.SendPush(ctx, t.Token, title, body); err != nil {
		return fmt.Errorf("%w: %v", ErrPushFailed, err)
	}
	return nil
}

package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrTokenUnregistered возвращается, если устройство с данным токеном больше не зарегистрировано.
var ErrTokenUnregistered = errors.New("push token is no longer registered")

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender отправляет push-уведомления через Firebase Cloud Messaging.
type FCMSender struct {
	client  messageSender
	breaker *gobreaker.CircuitBreaker
}

// NewFCMSender инициализирует клиент FCM по JSON-ключу сервисного аккаунта.
func NewFCMSender(ctx context.Context, credentialsJSON string, logger *zap.Logger) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}

	return newFCMSender(client, logger), nil
}

func newFCMSender(client messageSender, logger *zap.Logger) *FCMSender {
	return &FCMSender{
		client: client,
		breaker: newBreaker("fcm", logger, func(err error) bool {
			return err == nil || messaging.IsRegistrationTokenNotRegistered(err)
		}),
	}
}

// Send отправляет одно уведомление на устройство с указанным токеном.
func (s *FCMSender) Send(ctx context.Context, token, title, body string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return s.client.Send(ctx, &messaging.Message{
			Token:        token,
			Notification: &messaging.Notification{Title: title, Body: body},
		})
	})
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) {
			return fmt.Errorf("%w: %v", ErrTokenUnregistered, err)
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

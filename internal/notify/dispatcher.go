// Package notify доставляет push-уведомления администраторам и письма пользователям
// в фоне, не блокируя обработку запросов.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/comfyshop/internal/model"
)

// Каналы и исходы доставки для метрик.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"

	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeDropped = "dropped"
	OutcomeSkipped = "skipped"
)

const (
	// DefaultQueueSize задаёт ёмкость очереди задач по умолчанию.
	DefaultQueueSize = 256

	taskTimeout  = 15 * time.Second
	drainTimeout = 5 * time.Second
)

// PushSender отправляет push-уведомление на одно устройство.
type PushSender interface {
	Send(ctx context.Context, token, title, body string) error
}

// Mailer отправляет письмо одному получателю.
type Mailer interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, html string) error
}

// TokenStore предоставляет доступ к push-токенам администраторов.
type TokenStore interface {
	ListAdminTokens(ctx context.Context) ([]model.AdminToken, error)
	DeleteAdminToken(ctx context.Context, token string) error
}

// Recorder учитывает исходы доставки.
type Recorder interface {
	RecordNotification(channel, outcome string)
}

type task struct {
	name string
	run  func(ctx context.Context)
}

var resetEmailTemplate = template.Must(template.New("reset").Parse(
	`<p>Hello {{.Name}},</p>
<p>Your password reset code is <strong>{{.Code}}</strong>.</p>
<p>The code expires in {{.TTL}}. If you did not request a reset, ignore this email.</p>`))

// Dispatcher выполняет задачи доставки в отдельной горутине.
// Ошибки доставки логируются и учитываются в метриках, но не возвращаются вызывающему.
type Dispatcher struct {
	mu      sync.RWMutex
	stopped bool

	tasks   chan task
	push    PushSender
	mail    Mailer
	tokens  TokenStore
	metrics Recorder
	logger  *zap.Logger
}

// NewDispatcher создаёт диспетчер. push и mail могут быть nil, если провайдер не настроен;
// соответствующие задачи тогда пропускаются.
func NewDispatcher(push PushSender, mail Mailer, tokens TokenStore, metrics Recorder, logger *zap.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		tasks:   make(chan task, queueSize),
		push:    push,
		mail:    mail,
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
	}
}

// Run обрабатывает задачи до отмены ctx, затем дообрабатывает уже поставленные в очередь.
// После отмены новые задачи не принимаются и учитываются как отброшенные, поэтому ctx
// следует отменять после остановки HTTP-сервера.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("notification dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()

			d.drain()
			d.logger.Info("notification dispatcher stopped")
			return nil
		case t := <-d.tasks:
			d.execute(context.Background(), t)
		}
	}
}

func (d *Dispatcher) drain() {
	deadline := time.Now().Add(drainTimeout)
	for time.Now().Before(deadline) {
		select {
		case t := <-d.tasks:
			d.execute(context.Background(), t)
		default:
			return
		}
	}
}

func (d *Dispatcher) execute(parent context.Context, t task) {
	ctx, cancel := context.WithTimeout(parent, taskTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("notification task panicked", zap.String("task", t.name), zap.Any("panic", rec))
		}
	}()

	t.run(ctx)
}

func (d *Dispatcher) enqueue(name, channel string, run func(ctx context.Context)) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.Warn("notification dispatcher is stopped, task dropped", zap.String("task", name))
		d.metrics.RecordNotification(channel, OutcomeDropped)
		return
	}

	select {
	case d.tasks <- task{name: name, run: run}:
	default:
		d.logger.Warn("notification queue is full, task dropped", zap.String("task", name))
		d.metrics.RecordNotification(channel, OutcomeDropped)
	}
}

// NotifyProductCreated рассылает администраторам уведомление о новом товаре.
func (d *Dispatcher) NotifyProductCreated(p model.Product) {
	title := "New product"
	body := fmt.Sprintf("%s was added to the catalog at %s", p.Name, p.Price.StringFixed(2))
	d.enqueue("product_created", ChannelPush, func(ctx context.Context) {
		d.broadcast(ctx, title, body, zap.Int64("productID", p.ID))
	})
}

// NotifyLowStock рассылает администраторам уведомление о заканчивающемся товаре.
func (d *Dispatcher) NotifyLowStock(p model.Product) {
	title := "Low stock"
	body := fmt.Sprintf("Only %d left of %s", p.Stock, p.Name)
	d.enqueue("low_stock", ChannelPush, func(ctx context.Context) {
		d.broadcast(ctx, title, body, zap.Int64("productID", p.ID))
	})
}

// SendPasswordResetCode отправляет пользователю письмо с кодом сброса пароля.
func (d *Dispatcher) SendPasswordResetCode(email, name, code string, ttl time.Duration) {
	d.enqueue("password_reset", ChannelEmail, func(ctx context.Context) {
		if d.mail == nil {
			d.logger.Warn("mailer is not configured, reset email skipped", zap.String("task", "password_reset"))
			d.metrics.RecordNotification(ChannelEmail, OutcomeSkipped)
			return
		}

		var html bytes.Buffer
		data := struct {
			Name string
			Code string
			TTL  time.Duration
		}{Name: name, Code: code, TTL: ttl}
		if err := resetEmailTemplate.Execute(&html, data); err != nil {
			d.logger.Error("render reset email", zap.Error(err))
			d.metrics.RecordNotification(ChannelEmail, OutcomeFailed)
			return
		}

		if err := d.mail.SendEmail(ctx, email, name, "Your password reset code", html.String()); err != nil {
			d.logger.Error("send reset email", zap.Error(err))
			d.metrics.RecordNotification(ChannelEmail, OutcomeFailed)
			return
		}
		d.metrics.RecordNotification(ChannelEmail, OutcomeSent)
	})
}

// SendPush синхронно отправляет одно уведомление на указанный токен.
func (d *Dispatcher) SendPush(ctx context.Context, token, title, body string) error {
	if d.push == nil {
		d.metrics.RecordNotification(ChannelPush, OutcomeSkipped)
		return errors.New("push sender is not configured")
	}
	return d.deliver(ctx, token, title, body)
}

func (d *Dispatcher) broadcast(ctx context.Context, title, body string, fields ...zap.Field) {
	if d.push == nil {
		d.logger.Debug("push sender is not configured, broadcast skipped", fields...)
		d.metrics.RecordNotification(ChannelPush, OutcomeSkipped)
		return
	}

	tokens, err := d.tokens.ListAdminTokens(ctx)
	if err != nil {
		d.logger.Error("list admin tokens", append(fields, zap.Error(err))...)
		d.metrics.RecordNotification(ChannelPush, OutcomeFailed)
		return
	}

	for _, t := range tokens {
		if err := d.deliver(ctx, t.Token, title, body); err != nil {
			d.logger.Warn("push delivery failed",
				append(fields, zap.Int64("userID", t.UserID), zap.Error(err))...)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, token, title, body string) error {
	err := d.push.Send(ctx, token, title, body)
	if err == nil {
		d.metrics.RecordNotification(ChannelPush, OutcomeSent)
		return nil
	}

	d.metrics.RecordNotification(ChannelPush, OutcomeFailed)
	if errors.Is(err, ErrTokenUnregistered) {
		if delErr := d.tokens.DeleteAdminToken(ctx, token); delErr != nil {
			d.logger.Error("delete unregistered admin token", zap.Error(delErr))
		}
	}
	return err
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultBrevoURL содержит адрес API отправки транзакционных писем Brevo.
const DefaultBrevoURL = "https://api.brevo.com/v3/smtp/email"

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

// BrevoMailer отправляет письма через HTTP API Brevo.
type BrevoMailer struct {
	apiURL     string
	apiKey     string
	from       brevoContact
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewBrevoMailer создаёт клиент Brevo. Пустой apiURL означает DefaultBrevoURL.
func NewBrevoMailer(apiURL, apiKey, fromEmail, fromName string, logger *zap.Logger) *BrevoMailer {
	if apiURL == "" {
		apiURL = DefaultBrevoURL
	}
	return &BrevoMailer{
		apiURL:     apiURL,
		apiKey:     apiKey,
		from:       brevoContact{Email: fromEmail, Name: fromName},
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    newBreaker("brevo", logger, nil),
	}
}

// SendEmail отправляет HTML-письмо одному получателю.
func (m *BrevoMailer) SendEmail(ctx context.Context, toEmail, toName, subject, html string) error {
	body, err := json.Marshal(brevoRequest{
		Sender:      m.from,
		To:          []brevoContact{{Email: toEmail, Name: toName}},
		Subject:     subject,
		HTMLContent: html,
	})
	if err != nil {
		return fmt.Errorf("marshal email request: %w", err)
	}

	_, err = m.breaker.Execute(func() (interface{}, error) {
		return nil, m.post(ctx, body)
	})
	return err
}

func (m *BrevoMailer) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create brevo request: %w", err)
	}
	req.Header.Set("api-key", m.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("brevo api error: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// ErrInvalidGoogleToken возвращается, если Google не подтвердил ID-токен.
var ErrInvalidGoogleToken = errors.New("invalid google id token")

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// GoogleUser содержит данные пользователя из подтверждённого Google ID-токена.
type GoogleUser struct {
	Subject string
	Email   string
	Name    string
}

type idTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier проверяет подпись и утверждения Google ID-токенов по открытым ключам Google.
type GoogleVerifier struct {
	clientID  string
	validator idTokenValidator
}

// NewGoogleVerifier создаёт GoogleVerifier для указанного OAuth client ID.
// opts позволяют подменить HTTP-клиент, которым загружаются ключи Google.
func NewGoogleVerifier(ctx context.Context, clientID string, opts ...option.ClientOption) (*GoogleVerifier, error) {
	opts = append([]option.ClientOption{
		option.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
	}, opts...)

	validator, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return newGoogleVerifier(clientID, validator), nil
}

func newGoogleVerifier(clientID string, validator idTokenValidator) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID, validator: validator}
}

// Verify проверяет ID-токен и возвращает данные пользователя.
// Токен должен быть выпущен Google для нашего client ID и содержать подтверждённый email.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleUser, error) {
	if idToken == "" {
		return nil, ErrInvalidGoogleToken
	}

	payload, err := v.validator.Validate(ctx, idToken, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoogleToken, err)
	}

	if !googleIssuers[payload.Issuer] {
		return nil, ErrInvalidGoogleToken
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, ErrInvalidGoogleToken
	}

	name, _ := payload.Claims["name"].(string)
	if name == "" {
		name = email
	}

	return &GoogleUser{
		Subject: payload.Subject,
		Email:   email,
		Name:    name,
	}, nil
}

// Package middleware содержит HTTP middleware интернет-магазина.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mmeshcher/comfyshop/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier проверяет bearer-токен и возвращает закодированную в нём личность.
type TokenVerifier interface {
	Verify(token string) (model.Identity, error)
}

// AuthMiddleware проверяет bearer-токен из заголовка Authorization.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware создаёт AuthMiddleware поверх указанного верификатора токенов.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Middleware пропускает запрос дальше только с действительным токеном
// и добавляет личность пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			WriteError(w, http.StatusUnauthorized, KindUnauthenticated, "no token provided")
			return
		}

		token, ok := bearerToken(header)
		if !ok {
			WriteError(w, http.StatusUnauthorized, KindUnauthenticated, "token missing")
			return
		}

		identity, err := a.verifier.Verify(token)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, KindInvalidCredential, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAdmin пропускает только запросы администраторов. Должен стоять после AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusUnauthorized, KindUnauthenticated, "authentication required")
			return
		}

		if !identity.Role.IsAdmin() {
			WriteError(w, http.StatusForbidden, KindForbidden, "admin required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// WithIdentity возвращает контекст с личностью пользователя.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext извлекает личность пользователя из контекста запроса.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok
}

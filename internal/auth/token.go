// Package auth выпускает и проверяет bearer-токены и проверяет Google ID-токены.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/comfyshop/internal/model"
)

// ErrInvalidToken возвращается для токена с неверной подписью, структурой, ролью или истёкшим сроком.
var ErrInvalidToken = errors.New("invalid token")

// Claims описывает утверждения bearer-токена.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

// Codec выпускает и проверяет токены, подписанные HS256 секретом сервера.
type Codec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
}

// NewCodec создаёт Codec. defaultTTL применяется, когда Issue вызывается с нулевым ttl;
// отрицательный defaultTTL выпускает бессрочные токены.
func NewCodec(secret []byte, defaultTTL time.Duration) *Codec {
	return &Codec{
		secret:     secret,
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Issue выпускает токен для пользователя. ttl == 0 означает срок по умолчанию,
// ttl < 0 означает токен без срока действия.
func (c *Codec) Issue(userID int64, role model.Role, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
		Role:   string(role),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия токена и возвращает закодированную личность.
func (c *Codec) Verify(tokenString string) (model.Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{UserID: claims.UserID, Role: role}, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comfyshop/internal/model"
)

// UpsertAdminToken сохраняет push-токен администратора, заменяя предыдущий.
func (r *PostgresRepository) UpsertAdminToken(ctx context.Context, userID int64, token string) error {
	return r.withRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO admin_tokens (user_id, token, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, updated_at = now()`,
			userID, token,
		)
		if err != nil {
			return fmt.Errorf("upsert admin token: %w", err)
		}
		return nil
	})
}

// GetAdminToken возвращает push-токен пользователя.
func (r *PostgresRepository) GetAdminToken(ctx context.Context, userID int64) (*model.AdminToken, error) {
	t := &model.AdminToken{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, token, updated_at FROM admin_tokens WHERE user_id = $1`, userID,
	).Scan(&t.UserID, &t.Token, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminTokenNotFound
		}
		return nil, fmt.Errorf("get admin token: %w", err)
	}
	return t, nil
}

// ListAdminTokens возвращает push-токены всех администраторов.
func (r *PostgresRepository) ListAdminTokens(ctx context.Context) ([]model.AdminToken, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.user_id, t.token, t.updated_at
		 FROM admin_tokens t JOIN users u ON u.id = t.user_id
		 WHERE u.role = $1
		 ORDER BY t.user_id`,
		string(model.RoleAdmin),
	)
	if err != nil {
		return nil, fmt.Errorf("select admin tokens: %w", err)
	}
	defer rows.Close()

	tokens := []model.AdminToken{}
	for rows.Next() {
		var t model.AdminToken
		if err := rows.Scan(&t.UserID, &t.Token, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan admin token: %w", err)
		}
		tokens = append(tokens, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tokens, nil
}

// DeleteAdminToken удаляет токен, который провайдер push-уведомлений счёл недействительным.
func (r *PostgresRepository) DeleteAdminToken(ctx context.Context, token string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM admin_tokens WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete admin token: %w", err)
	}
	return nil
}

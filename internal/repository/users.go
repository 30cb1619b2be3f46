package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comfyshop/internal/model"
)

const userColumns = `id, name, email, password_hash, role, reset_code_hash, reset_code_expiry, created_at`

// CreateUser создаёт нового пользователя и возвращает его идентификатор.
func (r *PostgresRepository) CreateUser(ctx context.Context, u *model.User) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Name, u.Email, u.PasswordHash, string(u.Role),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, u.Email)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var u *model.User
	err := r.withRetry(ctx, func() error {
		var (
			role string
			err  error
		)
		u = &model.User{}
		err = r.pool.QueryRow(ctx, query, arg).Scan(
			&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role,
			&u.ResetCodeHash, &u.ResetCodeExpiry, &u.CreatedAt,
		)
		if err != nil {
			return err
		}
		u.Role, err = model.ParseRole(role)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// HasAdmin сообщает, существует ли хотя бы один администратор.
func (r *PostgresRepository) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE role = $1)`, string(model.RoleAdmin),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check admin: %w", err)
	}
	return exists, nil
}

// SetResetCode сохраняет хэш кода сброса пароля и срок его действия.
func (r *PostgresRepository) SetResetCode(ctx context.Context, userID int64, codeHash []byte, expiry time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET reset_code_hash = $2, reset_code_expiry = $3, reset_attempts = 0 WHERE id = $1`,
		userID, codeHash, expiry,
	)
	if err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordResetFailure учитывает неверную попытку ввода кода сброса.
// После maxAttempts неудачных попыток код аннулируется.
func (r *PostgresRepository) RecordResetFailure(ctx context.Context, userID int64, maxAttempts int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET
		     reset_attempts    = reset_attempts + 1,
		     reset_code_hash   = CASE WHEN reset_attempts + 1 >= $2 THEN NULL ELSE reset_code_hash END,
		     reset_code_expiry = CASE WHEN reset_attempts + 1 >= $2 THEN NULL ELSE reset_code_expiry END
		 WHERE id = $1`,
		userID, maxAttempts,
	)
	if err != nil {
		return fmt.Errorf("record reset failure: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword устанавливает новый хэш пароля и сбрасывает код восстановления.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash []byte) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, reset_code_hash = NULL, reset_code_expiry = NULL, reset_attempts = 0
		 WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

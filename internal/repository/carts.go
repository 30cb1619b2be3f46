package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comfyshop/internal/model"
)

// AddCartItem добавляет товар в корзину пользователя, создавая корзину при необходимости.
// Повторное добавление того же товара увеличивает количество одной атомарной операцией
// и сохраняет снимок цены, сделанный при первом добавлении.
func (r *PostgresRepository) AddCartItem(ctx context.Context, userID int64, item model.CartItem) (*model.Cart, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO carts (user_id, updated_at) VALUES ($1, now())
		 ON CONFLICT (user_id) DO UPDATE SET updated_at = now()`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}

	// Конфликт по (user_id, product_id) берёт блокировку строки, поэтому параллельные
	// добавления одного товара складываются, а не перезаписывают друг друга.
	// Снимок name/price_cents/image остаётся от первого добавления.
	_, err = tx.Exec(ctx,
		`INSERT INTO cart_items (user_id, product_id, name, price_cents, image, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		userID, item.ProductID, item.Name, toCents(item.Price), item.Image, item.Quantity,
	)
	if err != nil {
		if isOutOfRange(err) {
			return nil, ErrQuantityOutOfRange
		}
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	cart, err := loadCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return cart, nil
}

// GetCart возвращает корзину пользователя или ErrCartNotFound, если её нет.
func (r *PostgresRepository) GetCart(ctx context.Context, userID int64) (*model.Cart, error) {
	var cart *model.Cart
	err := r.withRetry(ctx, func() error {
		var err error
		cart, err = loadCart(ctx, r.pool, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveCartItem удаляет товар из корзины. Отсутствие товара в корзине ошибкой не считается.
func (r *PostgresRepository) RemoveCartItem(ctx context.Context, userID, productID int64) (*model.Cart, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var updatedAt time.Time
	err = tx.QueryRow(ctx,
		`UPDATE carts SET updated_at = now() WHERE user_id = $1 RETURNING updated_at`,
		userID,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("touch cart: %w", err)
	}

	_, err = tx.Exec(ctx,
		`DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`,
		userID, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}

	cart, err := loadCart(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return cart, nil
}

// DeleteCart удаляет корзину пользователя вместе со строками. Идемпотентна.
func (r *PostgresRepository) DeleteCart(ctx context.Context, userID int64) error {
	return r.withRetry(ctx, func() error {
		if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete cart: %w", err)
		}
		return nil
	})
}

func loadCart(ctx context.Context, q querier, userID int64) (*model.Cart, error) {
	var updatedAt time.Time
	err := q.QueryRow(ctx, `SELECT updated_at FROM carts WHERE user_id = $1`, userID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT product_id, name, price_cents, image, quantity
		 FROM cart_items
		 WHERE user_id = $1
		 ORDER BY added_at, product_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	cart := &model.Cart{UserID: userID, Items: []model.CartItem{}, UpdatedAt: &updatedAt}
	for rows.Next() {
		var (
			it         model.CartItem
			priceCents int64
		)
		if err := rows.Scan(&it.ProductID, &it.Name, &priceCents, &it.Image, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		it.Price = fromCents(priceCents)
		cart.Items = append(cart.Items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cart, nil
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/comfyshop/internal/model"
)

// CreateOrder сохраняет заказ со статусом packing и все его строки в одной транзакции.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID int64, items []model.CartItem) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order := &model.Order{UserID: userID, Items: items}
	var status string
	err = tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, status) VALUES ($1, $2)
		 RETURNING id, status, created_at, updated_at`,
		userID, string(model.OrderStatusPacking),
	).Scan(&order.ID, &status, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	order.Status = model.OrderStatus(status)

	// Ошибка любой строки откатывает и заголовок заказа через отложенный Rollback.
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(
			`INSERT INTO order_items (order_id, position, product_id, name, price_cents, image, quantity)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, i, it.ProductID, it.Name, toCents(it.Price), it.Image, it.Quantity,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}

// GetOrdersByUser возвращает заказы пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders
		 WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
}

// ListOrders возвращает все заказы магазина, новые первыми.
func (r *PostgresRepository) ListOrders(ctx context.Context) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders
		 ORDER BY created_at DESC, id DESC`,
	)
}

// GetOrder возвращает заказ по идентификатору вместе со строками.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	orders, err := r.listOrders(ctx,
		`SELECT id, user_id, status, created_at, updated_at FROM orders WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// UpdateOrderStatus переводит заказ из статуса from в статус to.
// Если статус успел измениться, возвращается ErrOrderStatusConflict.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderStatusConflict
	}
	return nil
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		orders, err = r.queryOrders(ctx, query, args...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []model.Order{}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			o      model.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = model.OrderStatus(status)
		o.Items = []model.CartItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}

	itemRows, err := r.pool.Query(ctx,
		`SELECT order_id, product_id, name, price_cents, image, quantity
		 FROM order_items
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			orderID    int64
			it         model.CartItem
			priceCents int64
		)
		if err := itemRows.Scan(&orderID, &it.ProductID, &it.Name, &priceCents, &it.Image, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		it.Price = fromCents(priceCents)
		i, ok := index[orderID]
		if !ok {
			continue
		}
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
